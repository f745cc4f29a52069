// Package service holds the game flow shared by the HTML pages and the JSON
// API, plus the event publisher it reports finished games to.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/mancala/internal/ai"
	"github.com/iliyamo/mancala/internal/game"
	"github.com/iliyamo/mancala/internal/model"
	q "github.com/iliyamo/mancala/internal/queue"
)

// ErrIllegalMove is returned when the human picks an empty or unknown pot.
var ErrIllegalMove = errors.New("illegal move")

// GameStore persists finished games.
type GameStore interface {
	Create(ctx context.Context, g *model.Game) error
}

// Owner says who finished a game and through which surface.
type Owner struct {
	UserID *uint64
	Source string
}

// Round is the result of one human move and the AI's reply.
type Round struct {
	Board    game.Board
	HumanPot int
	AIPot    int // zero when the game ended before the AI moved
	Finished bool
	Outcome  game.Outcome
	GameID   string // set once a finished game has been recorded
}

// GameService runs rounds between a human (Player One) and the advisor
// (Player Two).  Store and events are optional.
type GameService struct {
	advisor *ai.Advisor
	store   GameStore
	events  EventPublisher
	log     *zap.Logger
	now     func() time.Time
}

func NewGameService(advisor *ai.Advisor, store GameStore, events EventPublisher, log *zap.Logger) *GameService {
	if log == nil {
		log = zap.NewNop()
	}
	return &GameService{advisor: advisor, store: store, events: events, log: log, now: time.Now}
}

func (s *GameService) Advisor() *ai.Advisor { return s.advisor }

// PlayRound applies the human's pot, lets the AI answer unless the game is
// over, and records the game once it is finished.
func (s *GameService) PlayRound(ctx context.Context, b game.Board, pot int, owner Owner) (Round, error) {
	next, err := b.Move(game.One, pot)
	if err != nil {
		return Round{}, fmt.Errorf("%w: %w", ErrIllegalMove, err)
	}
	r := Round{Board: next, HumanPot: pot}
	if next.Finished() {
		return s.finish(ctx, r, owner), nil
	}

	sug, err := s.advisor.Suggest(ctx, next, game.Two)
	if err != nil {
		return Round{}, fmt.Errorf("suggest: %w", err)
	}
	next, err = next.Move(game.Two, sug.Pot)
	if err != nil {
		return Round{}, fmt.Errorf("ai move: %w", err)
	}
	r.Board, r.AIPot = next, sug.Pot
	if next.Finished() {
		return s.finish(ctx, r, owner), nil
	}
	return r, nil
}

// Suggest asks the advisor for p's best move.  runs overrides the playout
// count when positive.
func (s *GameService) Suggest(ctx context.Context, b game.Board, p game.Player, runs int) (ai.Suggestion, error) {
	adv := s.advisor
	if runs > 0 && runs != adv.Runs() {
		var err error
		if adv, err = adv.WithRuns(runs); err != nil {
			return ai.Suggestion{}, err
		}
	}
	return adv.Suggest(ctx, b, p)
}

func (s *GameService) finish(ctx context.Context, r Round, owner Owner) Round {
	r.Finished = true
	r.Outcome = r.Board.Outcome()
	r.GameID = uuid.NewString()

	rec := &model.Game{
		PublicID:   r.GameID,
		UserID:     owner.UserID,
		Source:     owner.Source,
		FinalBoard: r.Board.String(),
		P1Score:    r.Outcome.P1,
		P2Score:    r.Outcome.P2,
		Margin:     r.Outcome.P1 - r.Outcome.P2,
		Winner:     WinnerLabel(r.Outcome),
		CreatedAt:  s.now().UTC(),
	}
	log := s.log.With(zap.String("game_id", r.GameID), zap.String("winner", rec.Winner), zap.Int("margin", rec.Margin))
	log.Info("game finished")

	// Recording is best-effort; the player still sees the result.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if s.store != nil {
		if err := s.store.Create(ctx, rec); err != nil {
			log.Error("record game failed", zap.Error(err))
		}
	}
	if s.events != nil {
		ev := q.GameFinishedEvent{
			GameID:     rec.PublicID,
			Source:     rec.Source,
			FinalBoard: rec.FinalBoard,
			P1Score:    rec.P1Score,
			P2Score:    rec.P2Score,
			Winner:     rec.Winner,
			Margin:     rec.Margin,
			FinishedAt: rec.CreatedAt.Format(time.RFC3339),
		}
		if owner.UserID != nil {
			ev.UserID = *owner.UserID
		}
		if err := s.events.PublishGameFinished(ctx, ev); err != nil {
			log.Warn("publish game finished failed", zap.Error(err))
		}
	}
	return r
}

// WinnerLabel maps an outcome onto the stored winner column.  The human is
// always Player One.
func WinnerLabel(o game.Outcome) string {
	switch o.Winner {
	case game.One:
		return model.WinnerHuman
	case game.Two:
		return model.WinnerAI
	}
	return model.WinnerDraw
}
