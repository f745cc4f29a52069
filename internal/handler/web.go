package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/mancala/internal/game"
	"github.com/iliyamo/mancala/internal/model"
	"github.com/iliyamo/mancala/internal/service"
)

// WebHandler serves the HTML game.  The whole game state travels in the
// URL, so the server keeps no session.
type WebHandler struct {
	Games *service.GameService
	Log   *zap.Logger
}

func NewWebHandler(games *service.GameService, log *zap.Logger) *WebHandler {
	return &WebHandler{Games: games, Log: log}
}

// stateParam parses :state, falling back to the opening position for "/".
func stateParam(c echo.Context) (game.Board, error) {
	raw := c.Param("state")
	if raw == "" {
		raw = game.DefaultState
	}
	return game.ParseBoard(raw)
}

// Game handles GET / and GET|POST /game/:state.  It never runs the AI, which
// keeps "/" cheap enough for container health probes.
func (h *WebHandler) Game(c echo.Context) error {
	b, err := stateParam(c)
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid board: "+err.Error())
	}
	return c.Render(http.StatusOK, "game", newBoardView(b, true))
}

// Move handles POST /move/:state with form field "pot".  Illegal pots send
// the player back to the same position.
func (h *WebHandler) Move(c echo.Context) error {
	b, err := stateParam(c)
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid board: "+err.Error())
	}
	pot, err := strconv.Atoi(strings.TrimSpace(c.FormValue("pot")))
	if err != nil {
		return c.Redirect(http.StatusTemporaryRedirect, "/game/"+b.String())
	}

	r, err := h.Games.PlayRound(c.Request().Context(), b, pot, service.Owner{Source: model.SourceWeb})
	if errors.Is(err, service.ErrIllegalMove) {
		return c.Redirect(http.StatusTemporaryRedirect, "/game/"+b.String())
	}
	if err != nil {
		h.Log.Error("play round failed", zap.String("state", b.String()), zap.Error(err))
		return c.String(http.StatusServiceUnavailable, "the AI could not answer, please retry")
	}
	if r.Finished {
		return c.Redirect(http.StatusTemporaryRedirect, "/end/"+r.Board.String())
	}
	return c.Redirect(http.StatusTemporaryRedirect, "/game/"+r.Board.String())
}

// End handles GET|POST /end/:state.
func (h *WebHandler) End(c echo.Context) error {
	b, err := stateParam(c)
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid board: "+err.Error())
	}
	v := newBoardView(b, false)
	v.Title = EndTitle(b.Outcome())
	return c.Render(http.StatusOK, "end", v)
}

// EndTitle is the headline of the final page.
func EndTitle(o game.Outcome) string {
	switch o.Winner {
	case game.One:
		return fmt.Sprintf("Human wins by %d!", o.Margin)
	case game.Two:
		return fmt.Sprintf("AI wins by %d!", o.Margin)
	}
	return "Draw!"
}
