package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/iliyamo/mancala/internal/ai"
	"github.com/iliyamo/mancala/internal/game"
)

var (
	playerOneRow = color.New(color.FgGreen)
	playerTwoRow = color.New(color.FgRed)
)

func run(ctx context.Context, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.moveP1 || opts.moveP2 {
		p := game.One
		if !opts.moveP1 {
			p = game.Two
		}
		return moveOnce(ctx, opts, p)
	}
	return playGame(ctx, opts)
}

// moveOnce applies p's suggested move and prints the board as a JSON array.
func moveOnce(ctx context.Context, opts options, p game.Player) error {
	pot, err := suggest(ctx, opts, opts.board, p)
	if err != nil {
		return err
	}
	next, err := opts.board.Move(p, pot)
	if err != nil {
		return err
	}
	enc, err := json.Marshal(next.Slots())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(opts.out, string(enc))
	return err
}

func playGame(ctx context.Context, opts options) error {
	b := opts.board
	lines := bufio.NewScanner(opts.in)
	out := opts.out

	for {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Repeat("*", 40))
		fmt.Fprintln(out, b.PotHeader())
		printBoard(out, b)
		if !b.CanMove(game.One) {
			break
		}
		var err error
		if b, err = turn(ctx, opts, lines, b, game.One, opts.humanP1); err != nil {
			return err
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Repeat("*", 40))
		printBoard(out, b)
		fmt.Fprintln(out, b.PotFooter())
		if !b.CanMove(game.Two) {
			break
		}
		if b, err = turn(ctx, opts, lines, b, game.Two, opts.humanP2); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(out, "Score: %d : %d\n", b.Score(game.One), b.Score(game.Two))
	return err
}

// turn plays one move for p, either read from the human or suggested.
func turn(ctx context.Context, opts options, lines *bufio.Scanner, b game.Board, p game.Player, human bool) (game.Board, error) {
	if human {
		return readMove(opts.out, lines, b, p)
	}
	pot, err := suggest(ctx, opts, b, p)
	if err != nil {
		return b, err
	}
	fmt.Fprintf(opts.out, "%s picks up from pot %d\n", p, pot)
	return b.Move(p, pot)
}

// readMove prompts until the human names a legal pot.
func readMove(out io.Writer, lines *bufio.Scanner, b game.Board, p game.Player) (game.Board, error) {
	for {
		fmt.Fprintf(out, "%s> ", p)
		if !lines.Scan() {
			if err := lines.Err(); err != nil {
				return b, err
			}
			return b, io.ErrUnexpectedEOF
		}
		pot, err := strconv.Atoi(strings.TrimSpace(lines.Text()))
		if err != nil {
			fmt.Fprintf(out, "not a pot number: %q\n", lines.Text())
			continue
		}
		next, err := b.Move(p, pot)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		return next, nil
	}
}

// suggest asks the advisor for p's move on b, printing the margins when
// verbose.
func suggest(ctx context.Context, opts options, b game.Board, p game.Player) (int, error) {
	sug, err := opts.advisor.Suggest(ctx, b, p)
	if errors.Is(err, ai.ErrNoMoves) {
		return 0, fmt.Errorf("%s has no possible moves", p)
	}
	if err != nil {
		return 0, err
	}
	if opts.verbose {
		printMargins(opts.out, sug.Margins)
	}
	return sug.Pot, nil
}

func printMargins(out io.Writer, margins map[int]float64) {
	pots := make([]int, 0, len(margins))
	for pot := range margins {
		pots = append(pots, pot)
	}
	sort.Ints(pots)
	parts := make([]string, len(pots))
	for i, pot := range pots {
		parts[i] = fmt.Sprintf("%d: %.2f", pot, margins[pot])
	}
	fmt.Fprintf(out, "{%s}\n", strings.Join(parts, ", "))
}

func printBoard(out io.Writer, b game.Board) {
	top, bottom := b.Rows()
	fmt.Fprintln(out, playerOneRow.Sprint(top))
	fmt.Fprintln(out, playerTwoRow.Sprint(bottom))
}
