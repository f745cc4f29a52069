package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iliyamo/mancala/internal/ai"
	"github.com/iliyamo/mancala/internal/game"
)

const (
	movePlayerOneKey = "move-p1"
	movePlayerTwoKey = "move-p2"
	humanOneKey      = "human-p1"
	humanTwoKey      = "human-p2"
	verboseKey       = "verbose"
	runsKey          = "runs"
	seedKey          = "seed"

	defaultCLIRuns = 1000
)

// options is the resolved command line, after flags and MANCALA_* variables
// have been merged.
type options struct {
	board   game.Board
	moveP1  bool
	moveP2  bool
	humanP1 bool
	humanP2 bool
	verbose bool
	runs    int
	seed    uint64
	advisor *ai.Advisor
	in      io.Reader
	out     io.Writer
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MANCALA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "mancala [board...]",
		Short: "Play mancala against a Monte Carlo opponent",
		Long: `Plays a game of mancala in the terminal.

The board is given as bead counts: Player One's base, Player One's pots,
Player Two's base, Player Two's pots. Without arguments the standard
six-pot, three-bead board is used.

With --move-p1 or --move-p2 the suggested move is applied once and the
resulting board printed as JSON. Otherwise a whole game is played, the AI
taking every side not claimed by --human-p1/--human-p2.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			opts, err := resolve(v, args)
			if err != nil {
				return err
			}
			opts.in, opts.out = cmd.InOrStdin(), cmd.OutOrStdout()
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.BoolP(movePlayerOneKey, "m", false, "print the board after Player One's suggested move and exit")
	f.BoolP(movePlayerTwoKey, "n", false, "print the board after Player Two's suggested move and exit")
	f.BoolP(humanOneKey, "p", false, "read Player One's moves from stdin")
	f.BoolP(humanTwoKey, "q", false, "read Player Two's moves from stdin")
	f.BoolP(verboseKey, "v", false, "print the average margin of every candidate move")
	f.IntP(runsKey, "r", defaultCLIRuns, fmt.Sprintf("random playouts per candidate move (%d..%d)", ai.MinRuns, ai.MaxRuns))
	f.Uint64(seedKey, 0, "seed for reproducible games (0 picks a random seed)")

	cmd.AddCommand(newHealthcheckCmd())
	return cmd
}

// resolve validates the merged configuration and builds the advisor.
func resolve(v *viper.Viper, args []string) (options, error) {
	board := game.Default()
	if len(args) > 0 {
		beads := make([]int, len(args))
		for i, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil {
				return options{}, fmt.Errorf("board slot %d: %q is not an integer", i, a)
			}
			beads[i] = n
		}
		var err error
		if board, err = game.NewBoard(beads); err != nil {
			return options{}, err
		}
	}

	opts := options{
		board:   board,
		moveP1:  v.GetBool(movePlayerOneKey),
		moveP2:  v.GetBool(movePlayerTwoKey),
		humanP1: v.GetBool(humanOneKey),
		humanP2: v.GetBool(humanTwoKey),
		verbose: v.GetBool(verboseKey),
		runs:    v.GetInt(runsKey),
		seed:    v.GetUint64(seedKey),
	}
	adv, err := ai.New(opts.runs, ai.WithSeed(opts.seed))
	if err != nil {
		return options{}, err
	}
	opts.advisor = adv
	return opts, nil
}
