package game

import "fmt"

// Player identifies a side of the board.  Player One is the human in web
// games.
type Player int

const (
	One Player = 1
	Two Player = 2
)

func (p Player) Other() Player {
	if p == Two {
		return One
	}
	return Two
}

func (p Player) Valid() bool { return p == One || p == Two }

func (p Player) String() string {
	switch p {
	case One:
		return "p1"
	case Two:
		return "p2"
	}
	return fmt.Sprintf("Player(%d)", int(p))
}

// ParsePlayer accepts 1/2 and p1/p2.
func ParsePlayer(s string) (Player, error) {
	switch s {
	case "1", "p1", "P1", "one":
		return One, nil
	case "2", "p2", "P2", "two":
		return Two, nil
	}
	return 0, fmt.Errorf("unknown player %q", s)
}
