// Package game implements the Mancala board and its move rules.
//
// Slots are laid out anticlockwise; with the default 14-slot board:
//
//	0   1   2   3   4   5   6
//	   13  12  11  10   9   8   7
//
// Slot 0 is Player One's base and slot Half is Player Two's base.  Each
// player owns the pots numbered 1..Half-1 counted from their own base.
package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MinSlots = 4
	MaxSlots = 100
	// MaxBeads bounds the bead total so scores stay well inside int and
	// playouts stay short.
	MaxBeads = 10000
)

// DefaultState is the starting position served to new web games.
const DefaultState = "0,3,3,3,3,3,3,0,3,3,3,3,3,3"

var (
	ErrBoardSize    = errors.New("board must have an even number of slots between 4 and 100")
	ErrNegative     = errors.New("bead counts must not be negative")
	ErrTooManyBeads = errors.New("board holds too many beads")
	ErrMalformed    = errors.New("malformed board")
	ErrInvalidPot   = errors.New("invalid choice of pot")
	ErrEmptyPot     = errors.New("can't move a pot with 0 beads")
)

// Board is an immutable snapshot of bead counts.  Move returns a new Board.
type Board struct {
	slots []int
}

// NewBoard validates and copies beads into a Board.
func NewBoard(beads []int) (Board, error) {
	if len(beads)%2 != 0 || len(beads) < MinSlots || len(beads) > MaxSlots {
		return Board{}, fmt.Errorf("%w: got %d", ErrBoardSize, len(beads))
	}
	total := 0
	for i, b := range beads {
		if b < 0 {
			return Board{}, fmt.Errorf("%w: slot %d holds %d", ErrNegative, i, b)
		}
		if b > MaxBeads-total {
			return Board{}, fmt.Errorf("%w: more than %d", ErrTooManyBeads, MaxBeads)
		}
		total += b
	}
	s := make([]int, len(beads))
	copy(s, beads)
	return Board{slots: s}, nil
}

// MustBoard is NewBoard for literals known to be valid.
func MustBoard(beads ...int) Board {
	b, err := NewBoard(beads)
	if err != nil {
		panic(err)
	}
	return b
}

// Default returns the standard 14-slot opening position.
func Default() Board {
	b, _ := ParseBoard(DefaultState)
	return b
}

// ParseBoard reads the comma separated form used in URLs.
func ParseBoard(raw string) (Board, error) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	beads := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Board{}, fmt.Errorf("%w: %q", ErrMalformed, p)
		}
		beads = append(beads, n)
	}
	return NewBoard(beads)
}

// String is the inverse of ParseBoard.
func (b Board) String() string {
	parts := make([]string, len(b.slots))
	for i, n := range b.slots {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// Slots returns a copy of the bead counts.
func (b Board) Slots() []int {
	out := make([]int, len(b.slots))
	copy(out, b.slots)
	return out
}

func (b Board) At(pos int) int { return b.slots[pos] }
func (b Board) Len() int       { return len(b.slots) }
func (b Board) Half() int      { return len(b.slots) / 2 }

// Pots returns the number of pots each player owns.
func (b Board) Pots() int { return b.Half() - 1 }

func (b Board) Equal(o Board) bool {
	if len(b.slots) != len(o.slots) {
		return false
	}
	for i := range b.slots {
		if b.slots[i] != o.slots[i] {
			return false
		}
	}
	return true
}

func (b Board) offset(p Player) int {
	if p == Two {
		return b.Half()
	}
	return 0
}

// Base returns the slot index of p's base.
func (b Board) Base(p Player) int { return b.offset(p) }

// Slot converts p's pot number into an absolute slot index.
func (b Board) Slot(p Player, pot int) int { return b.offset(p) + pot }

func (b Board) isBase(pos int) bool { return pos == 0 || pos == b.Half() }

// InP1Range reports whether pos is one of Player One's pots.
func (b Board) InP1Range(pos int) bool {
	return pos != 0 && (pos/b.Half())%2 == 0
}

// InP2Range reports whether pos is one of Player Two's pots.
func (b Board) InP2Range(pos int) bool {
	return pos != b.Half() && (pos/b.Half())%2 == 1
}

func (b Board) inRange(p Player, pos int) bool {
	if p == One {
		return b.InP1Range(pos)
	}
	return b.InP2Range(pos)
}

// Opposite returns the pot facing pos.  Bases have no opposite.
func (b Board) Opposite(pos int) (int, bool) {
	if b.isBase(pos) {
		return 0, false
	}
	return len(b.slots) - pos, true
}

// Move picks up every bead from p's pot and sows them one per slot towards
// lower indices, wrapping round and skipping the opponent's base.  When the
// last bead lands in a previously empty pot on p's side, the beads of the
// opposite pot go to p's base.
func (b Board) Move(p Player, pot int) (Board, error) {
	if pot < 1 || pot >= b.Half() {
		return Board{}, fmt.Errorf("%w: %d", ErrInvalidPot, pot)
	}
	next := b.Slots()
	pos := b.Slot(p, pot)
	beads := next[pos]
	if beads == 0 {
		return Board{}, fmt.Errorf("%w: pot %d", ErrEmptyPot, pot)
	}
	next[pos] = 0

	end := len(next)
	skip := b.Base(p.Other())
	// Whole laps put one bead in every slot but the skipped base and end
	// back on the emptied pot.
	if laps := beads / (end - 1); laps > 0 {
		for i := range next {
			if i != skip {
				next[i] += laps
			}
		}
		beads -= laps * (end - 1)
	}
	for beads > 0 {
		pos = (pos - 1 + end) % end
		if pos == skip {
			continue
		}
		next[pos]++
		beads--
	}

	if !b.isBase(pos) && next[pos] == 1 && b.inRange(p, pos) {
		opp, _ := b.Opposite(pos)
		next[b.Base(p)] += next[opp]
		next[opp] = 0
	}
	return Board{slots: next}, nil
}

// PossibleMoves lists p's non-empty pots in ascending order.
func (b Board) PossibleMoves(p Player) []int {
	var moves []int
	off := b.offset(p)
	for pot := 1; pot < b.Half(); pot++ {
		if b.slots[off+pot] > 0 {
			moves = append(moves, pot)
		}
	}
	return moves
}

// CanMove is a cheaper PossibleMoves(p) != nil.
func (b Board) CanMove(p Player) bool {
	off := b.offset(p)
	for pot := 1; pot < b.Half(); pot++ {
		if b.slots[off+pot] > 0 {
			return true
		}
	}
	return false
}

// Finished reports whether either side has run out of moves.
func (b Board) Finished() bool { return !b.CanMove(One) || !b.CanMove(Two) }

// Score returns the total beads on p's half, base included.
func (b Board) Score(p Player) int {
	sum := 0
	off := b.offset(p)
	for i := off; i < off+b.Half(); i++ {
		sum += b.slots[i]
	}
	return sum
}

// P1WinsBy is Player One's margin; negative when Player Two is ahead.
func (b Board) P1WinsBy() int { return b.Score(One) - b.Score(Two) }

// Total counts every bead on the board.
func (b Board) Total() int {
	sum := 0
	for _, n := range b.slots {
		sum += n
	}
	return sum
}
