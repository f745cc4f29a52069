package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/mancala/internal/ai"
	"github.com/iliyamo/mancala/internal/game"
	"github.com/iliyamo/mancala/internal/middleware"
	"github.com/iliyamo/mancala/internal/model"
	"github.com/iliyamo/mancala/internal/repository"
	"github.com/iliyamo/mancala/internal/service"
)

// GameReader is the read side of the games table.
type GameReader interface {
	ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Game, error)
	Stats(ctx context.Context) (model.GameStats, error)
	Search(ctx context.Context, q repository.GameSearchQuery) ([]model.Game, int64, error)
}

// APIHandler serves the JSON game API.  Games may be nil when storage is
// disabled; the stats and history endpoints then answer 503.
type APIHandler struct {
	Svc   *service.GameService
	Games GameReader
	Log   *zap.Logger
}

func NewAPIHandler(svc *service.GameService, games GameReader, log *zap.Logger) *APIHandler {
	return &APIHandler{Svc: svc, Games: games, Log: log}
}

// ----- DTOs -----

type boardResp struct {
	Board    []int  `json:"board"`
	State    string `json:"state"`
	Half     int    `json:"half"`
	P1Moves  []int  `json:"p1_moves"`
	P2Moves  []int  `json:"p2_moves"`
	P1WinsBy int    `json:"p1_wins_by"`
	Finished bool   `json:"finished"`
}

func summarize(b game.Board) boardResp {
	p1, p2 := b.PossibleMoves(game.One), b.PossibleMoves(game.Two)
	if p1 == nil {
		p1 = []int{}
	}
	if p2 == nil {
		p2 = []int{}
	}
	return boardResp{
		Board:    b.Slots(),
		State:    b.String(),
		Half:     b.Half(),
		P1Moves:  p1,
		P2Moves:  p2,
		P1WinsBy: b.P1WinsBy(),
		Finished: b.Finished(),
	}
}

type moveReq struct {
	Player int `json:"player"`
	Pot    int `json:"pot"`
}

type playReq struct {
	Pot int `json:"pot"`
}

type resultPart struct {
	Winner string `json:"winner"`
	Margin int    `json:"margin"`
	Title  string `json:"title"`
}

type playResp struct {
	boardResp
	HumanPot int         `json:"human_pot"`
	AIPot    *int        `json:"ai_pot"`
	Result   *resultPart `json:"result,omitempty"`
	GameID   string      `json:"game_id,omitempty"`
}

type suggestResp struct {
	Pot     *int               `json:"pot"`
	Player  int                `json:"player"`
	Runs    int                `json:"runs"`
	Margins map[string]float64 `json:"margins"`
}

type gamePart struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	FinalBoard string    `json:"final_board"`
	P1Score    int       `json:"p1_score"`
	P2Score    int       `json:"p2_score"`
	Margin     int       `json:"margin"`
	Winner     string    `json:"winner"`
	CreatedAt  time.Time `json:"created_at"`
}

// GetBoard handles GET /v1/boards/:state.
func (h *APIHandler) GetBoard(c echo.Context) error {
	b, err := game.ParseBoard(c.Param("state"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, summarize(b))
}

// Move handles POST /v1/boards/:state/move.  It applies a single move for
// either player without involving the AI.
func (h *APIHandler) Move(c echo.Context) error {
	b, err := game.ParseBoard(c.Param("state"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req moveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p := game.Player(req.Player)
	if !p.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "player must be 1 or 2"})
	}
	next, err := b.Move(p, req.Pot)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, summarize(next))
}

// Suggest handles GET /v1/boards/:state/suggest?player=1|2&runs=N.
func (h *APIHandler) Suggest(c echo.Context) error {
	b, err := game.ParseBoard(c.Param("state"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	p := game.One
	if raw := c.QueryParam("player"); raw != "" {
		if p, err = game.ParsePlayer(raw); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
	}
	runs := h.Svc.Advisor().Runs()
	if raw := c.QueryParam("runs"); raw != "" {
		if runs, err = strconv.Atoi(raw); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "runs must be an integer"})
		}
		if runs < ai.MinRuns || runs > ai.MaxRuns {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": ai.ErrRuns.Error()})
		}
	}

	sug, err := h.Svc.Suggest(c.Request().Context(), b, p, runs)
	resp := suggestResp{Player: int(p), Runs: runs, Margins: map[string]float64{}}
	switch {
	case errors.Is(err, ai.ErrNoMoves):
		return c.JSON(http.StatusOK, resp)
	case errors.Is(err, ai.ErrRuns):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case err != nil:
		h.Log.Error("suggest failed", zap.String("state", b.String()), zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "suggestion unavailable"})
	}
	resp.Pot = &sug.Pot
	for pot, m := range sug.Margins {
		resp.Margins[strconv.Itoa(pot)] = m
	}
	return c.JSON(http.StatusOK, resp)
}

// Play handles POST /v1/play/:state: the caller plays Player One's pot and
// the AI answers.  Finished games are recorded, attributed to the caller
// when a bearer token was supplied.
func (h *APIHandler) Play(c echo.Context) error {
	b, err := game.ParseBoard(c.Param("state"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req playReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	owner := service.Owner{Source: model.SourceAPI}
	if id, ok := middleware.UserID(c); ok {
		owner.UserID = &id
	}

	r, err := h.Svc.PlayRound(c.Request().Context(), b, req.Pot, owner)
	if errors.Is(err, service.ErrIllegalMove) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}
	if err != nil {
		h.Log.Error("play round failed", zap.String("state", b.String()), zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "the AI could not answer"})
	}

	resp := playResp{boardResp: summarize(r.Board), HumanPot: r.HumanPot, GameID: r.GameID}
	if r.AIPot != 0 {
		resp.AIPot = &r.AIPot
	}
	if r.Finished {
		resp.Result = &resultPart{
			Winner: service.WinnerLabel(r.Outcome),
			Margin: r.Outcome.Margin,
			Title:  EndTitle(r.Outcome),
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Stats handles GET /v1/stats.
func (h *APIHandler) Stats(c echo.Context) error {
	if h.Games == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage disabled"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.Games.Stats(ctx)
	if err != nil {
		h.Log.Error("stats query failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total":          s.Total,
		"human_wins":     s.HumanWins,
		"ai_wins":        s.AIWins,
		"draws":          s.Draws,
		"average_margin": s.AverageMargin,
	})
}

// MyGames handles GET /v1/me/games?limit=N.  JWTAuth must run first.
func (h *APIHandler) MyGames(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if h.Games == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage disabled"})
	}
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be between 1 and 100"})
		}
		limit = n
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	games, err := h.Games.ListByUser(ctx, userID, limit)
	if err != nil {
		h.Log.Error("list games failed", zap.Uint64("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"games": gameParts(games)})
}

// SearchGames handles GET /v1/games?winner=&source=&page=&page_size=.
func (h *APIHandler) SearchGames(c echo.Context) error {
	if h.Games == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage disabled"})
	}
	winner := strings.ToUpper(strings.TrimSpace(c.QueryParam("winner")))
	switch winner {
	case "", model.WinnerHuman, model.WinnerAI, model.WinnerDraw:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "winner must be HUMAN, AI or DRAW"})
	}
	source := strings.ToLower(strings.TrimSpace(c.QueryParam("source")))
	switch source {
	case "", model.SourceWeb, model.SourceAPI:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "source must be web or api"})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	ps, _ := strconv.Atoi(c.QueryParam("page_size"))
	if ps < 1 {
		ps = 20
	}
	if ps > 100 {
		ps = 100
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	games, total, err := h.Games.Search(ctx, repository.GameSearchQuery{
		Winner:   winner,
		Source:   source,
		Page:     page,
		PageSize: ps,
	})
	if err != nil {
		h.Log.Error("search games failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      gameParts(games),
		"total":     total,
		"page":      page,
		"page_size": ps,
	})
}

func gameParts(games []model.Game) []gamePart {
	out := make([]gamePart, 0, len(games))
	for _, g := range games {
		out = append(out, gamePart{
			ID:         g.PublicID,
			Source:     g.Source,
			FinalBoard: g.FinalBoard,
			P1Score:    g.P1Score,
			P2Score:    g.P2Score,
			Margin:     g.Margin,
			Winner:     g.Winner,
			CreatedAt:  g.CreatedAt,
		})
	}
	return out
}
