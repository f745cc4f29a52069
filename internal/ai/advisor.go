// Package ai picks moves by Monte Carlo playouts: every legal move is tried
// and followed by random games, and the move with the best average final
// margin wins.
package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/mancala/internal/game"
)

const (
	MinRuns     = 1
	MaxRuns     = 1000
	DefaultRuns = 100
)

// ErrNoMoves is returned by Suggest when the player has no legal move.
var ErrNoMoves = errors.New("no possible moves")

// ErrRuns reports a playout count outside MinRuns..MaxRuns.
var ErrRuns = fmt.Errorf("runs must be between %d and %d", MinRuns, MaxRuns)

// Advisor scores candidate moves.  The zero value is not usable; build one
// with New.
type Advisor struct {
	runs    int
	workers int
	seed    uint64
}

type Option func(*Advisor)

// WithWorkers bounds how many candidate moves are evaluated at once.
func WithWorkers(n int) Option {
	return func(a *Advisor) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithSeed makes the advisor deterministic.  Zero means random seeding.
func WithSeed(seed uint64) Option {
	return func(a *Advisor) { a.seed = seed }
}

func New(runs int, opts ...Option) (*Advisor, error) {
	if runs < MinRuns || runs > MaxRuns {
		return nil, fmt.Errorf("%w: got %d", ErrRuns, runs)
	}
	a := &Advisor{runs: runs, workers: runtime.GOMAXPROCS(0)}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

func (a *Advisor) Runs() int { return a.runs }

// WithRuns returns a copy of the advisor using a different playout count.
func (a *Advisor) WithRuns(runs int) (*Advisor, error) {
	if runs < MinRuns || runs > MaxRuns {
		return nil, fmt.Errorf("%w: got %d", ErrRuns, runs)
	}
	cp := *a
	cp.runs = runs
	return &cp, nil
}

func (a *Advisor) rng(pot int) *rand.Rand {
	if a.seed != 0 {
		return rand.New(rand.NewPCG(a.seed, uint64(pot)))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Playout plays random legal moves, starting with toMove, until a side has
// no move left and returns Player One's final margin.
func Playout(b game.Board, toMove game.Player, rng *rand.Rand) int {
	for {
		if !b.CanMove(toMove.Other()) {
			return b.P1WinsBy()
		}
		moves := b.PossibleMoves(toMove)
		if len(moves) == 0 {
			return b.P1WinsBy()
		}
		next, err := b.Move(toMove, moves[rng.IntN(len(moves))])
		if err != nil {
			// PossibleMoves only yields legal pots.
			panic(err)
		}
		b = next
		toMove = toMove.Other()
	}
}

// Hypothetical returns, for each legal move of p, the average final margin
// in p's favour over the configured number of playouts.
func (a *Advisor) Hypothetical(ctx context.Context, b game.Board, p game.Player) (map[int]float64, error) {
	moves := b.PossibleMoves(p)
	totals := make([]int, len(moves))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, pot := range moves {
		g.Go(func() error {
			after, err := b.Move(p, pot)
			if err != nil {
				return err
			}
			rng := a.rng(pot)
			sum := 0
			for run := 0; run < a.runs; run++ {
				if run%64 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				sum += Playout(after, p.Other(), rng)
			}
			if p == game.Two {
				sum = -sum
			}
			totals[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[int]float64, len(moves))
	for i, pot := range moves {
		out[pot] = float64(totals[i]) / float64(a.runs)
	}
	return out, nil
}

// Suggestion is the chosen pot plus the score of every candidate.
type Suggestion struct {
	Pot     int
	Margins map[int]float64
}

// Suggest picks the move with the best average margin for p.  Ties go to
// the higher pot number.
func (a *Advisor) Suggest(ctx context.Context, b game.Board, p game.Player) (Suggestion, error) {
	margins, err := a.Hypothetical(ctx, b, p)
	if err != nil {
		return Suggestion{}, err
	}
	if len(margins) == 0 {
		return Suggestion{}, ErrNoMoves
	}
	return Suggestion{Pot: best(margins), Margins: margins}, nil
}

func best(margins map[int]float64) int {
	pots := make([]int, 0, len(margins))
	for pot := range margins {
		pots = append(pots, pot)
	}
	sort.Ints(pots)
	choice := pots[0]
	for _, pot := range pots[1:] {
		if margins[pot] >= margins[choice] {
			choice = pot
		}
	}
	return choice
}
