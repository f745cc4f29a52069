package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/mancala/internal/ai"
	"github.com/iliyamo/mancala/internal/game"
	"github.com/iliyamo/mancala/internal/model"
	q "github.com/iliyamo/mancala/internal/queue"
)

type fakeStore struct {
	mu    sync.Mutex
	games []model.Game
	err   error
}

func (f *fakeStore) Create(_ context.Context, g *model.Game) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	g.ID = uint64(len(f.games) + 1)
	f.games = append(f.games, *g)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []q.GameFinishedEvent
	err    error
}

func (f *fakeEvents) PublishGameFinished(_ context.Context, ev q.GameFinishedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func newService(t *testing.T, store GameStore, events EventPublisher) *GameService {
	t.Helper()
	adv, err := ai.New(20, ai.WithSeed(3))
	require.NoError(t, err)
	return NewGameService(adv, store, events, zap.NewNop())
}

func TestPlayRoundContinues(t *testing.T) {
	store := &fakeStore{}
	svc := newService(t, store, nil)
	start := game.Default()

	r, err := svc.PlayRound(context.Background(), start, 3, Owner{Source: model.SourceWeb})
	require.NoError(t, err)
	assert.False(t, r.Finished)
	assert.Equal(t, 3, r.HumanPot)
	assert.GreaterOrEqual(t, r.AIPot, 1)
	assert.LessOrEqual(t, r.AIPot, 6)
	assert.Equal(t, start.Total(), r.Board.Total())
	assert.Empty(t, r.GameID)
	assert.Empty(t, store.games)
}

func TestPlayRoundHumanEndsGame(t *testing.T) {
	store := &fakeStore{}
	events := &fakeEvents{}
	svc := newService(t, store, events)

	r, err := svc.PlayRound(context.Background(), game.MustBoard(0, 1, 0, 0, 1, 1), 1, Owner{Source: model.SourceWeb})
	require.NoError(t, err)
	assert.True(t, r.Finished)
	assert.Zero(t, r.AIPot)
	assert.Equal(t, "1,0,0,0,1,1", r.Board.String())
	assert.Equal(t, game.Two, r.Outcome.Winner)
	assert.NotEmpty(t, r.GameID)

	require.Len(t, store.games, 1)
	g := store.games[0]
	assert.Equal(t, r.GameID, g.PublicID)
	assert.Nil(t, g.UserID)
	assert.Equal(t, model.WinnerAI, g.Winner)
	assert.Equal(t, -1, g.Margin)

	require.Len(t, events.events, 1)
	assert.Equal(t, r.GameID, events.events[0].GameID)
	assert.Equal(t, model.SourceWeb, events.events[0].Source)
}

func TestPlayRoundAIEndsGame(t *testing.T) {
	store := &fakeStore{}
	uid := uint64(12)
	svc := newService(t, store, nil)

	r, err := svc.PlayRound(context.Background(), game.MustBoard(0, 0, 2, 0, 1, 0), 2, Owner{UserID: &uid, Source: model.SourceAPI})
	require.NoError(t, err)
	assert.True(t, r.Finished)
	assert.Equal(t, 1, r.AIPot)
	assert.Equal(t, "1,1,0,1,0,0", r.Board.String())
	assert.Equal(t, game.One, r.Outcome.Winner)
	assert.Equal(t, 1, r.Outcome.Margin)

	require.Len(t, store.games, 1)
	require.NotNil(t, store.games[0].UserID)
	assert.Equal(t, uid, *store.games[0].UserID)
	assert.Equal(t, model.WinnerHuman, store.games[0].Winner)
}

func TestPlayRoundIllegal(t *testing.T) {
	svc := newService(t, nil, nil)
	b := game.MustBoard(0, 0, 2, 0, 1, 0)

	_, err := svc.PlayRound(context.Background(), b, 1, Owner{})
	assert.ErrorIs(t, err, ErrIllegalMove)
	assert.ErrorIs(t, err, game.ErrEmptyPot)

	_, err = svc.PlayRound(context.Background(), b, 9, Owner{})
	assert.ErrorIs(t, err, ErrIllegalMove)
	assert.ErrorIs(t, err, game.ErrInvalidPot)
}

func TestPlayRoundSurvivesRecordingFailures(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	events := &fakeEvents{err: errors.New("broker down")}
	svc := newService(t, store, events)

	r, err := svc.PlayRound(context.Background(), game.MustBoard(0, 1, 0, 0, 1, 1), 1, Owner{Source: model.SourceWeb})
	require.NoError(t, err)
	assert.True(t, r.Finished)
	assert.Len(t, events.events, 1)
}

func TestSuggestOverridesRuns(t *testing.T) {
	svc := newService(t, nil, nil)

	s, err := svc.Suggest(context.Background(), game.MustBoard(0, 1, 1, 0, 1, 1), game.One, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pot)

	_, err = svc.Suggest(context.Background(), game.Default(), game.One, ai.MaxRuns+1)
	assert.ErrorIs(t, err, ai.ErrRuns)
}

func TestWinnerLabel(t *testing.T) {
	assert.Equal(t, model.WinnerHuman, WinnerLabel(game.Outcome{Winner: game.One}))
	assert.Equal(t, model.WinnerAI, WinnerLabel(game.Outcome{Winner: game.Two}))
	assert.Equal(t, model.WinnerDraw, WinnerLabel(game.Outcome{}))
}
