package game

import (
	"fmt"
	"strings"
)

func displayRow(ns []int) string {
	cells := make([]string, len(ns))
	for i, n := range ns {
		cells[i] = fmt.Sprintf("%2d", n)
	}
	return strings.Join(cells, " ")
}

// Rows returns the two display rows: Player One's half left to right and
// Player Two's half right to left, offset so that opposite pots line up.
func (b Board) Rows() (top, bottom string) {
	half := b.Half()
	upper := b.slots[:half]
	lower := make([]int, 0, half)
	for i := len(b.slots) - 1; i >= half; i-- {
		lower = append(lower, b.slots[i])
	}
	return displayRow(upper) + "    ", "   " + displayRow(lower)
}

// PotHeader labels Player One's pots above the top row.
func (b Board) PotHeader() string {
	pots := make([]int, 0, b.Pots())
	for n := 1; n < b.Half(); n++ {
		pots = append(pots, n)
	}
	return strings.ReplaceAll("   "+displayRow(pots)+"    ", " ", "=")
}

// PotFooter labels Player Two's pots below the bottom row.
func (b Board) PotFooter() string {
	pots := make([]int, 0, b.Pots())
	for n := b.Half() - 1; n > 0; n-- {
		pots = append(pots, n)
	}
	return strings.ReplaceAll("   "+displayRow(pots)+"    ", " ", "=")
}

// Render is the plain two-row form of the board.
func (b Board) Render() string {
	top, bottom := b.Rows()
	return top + "\n" + bottom
}
