package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mancala/internal/ai"
	"github.com/iliyamo/mancala/internal/game"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMoveOnceForcedWin(t *testing.T) {
	out, err := execute(t, "", "-m", "--runs", "50", "--seed", "1", "0", "1", "1", "0", "1", "1")
	require.NoError(t, err)
	assert.Equal(t, "[1,0,1,0,1,1]\n", out)
}

func TestMoveOncePlayerTwo(t *testing.T) {
	// Player Two has a single legal move.
	out, err := execute(t, "", "-n", "-r", "5", "0", "0", "2", "0", "1", "0")
	require.NoError(t, err)
	assert.Equal(t, "[0,0,2,1,0,0]\n", out)
}

func TestMoveOnceNoMoves(t *testing.T) {
	_, err := execute(t, "", "-m", "-r", "5", "0", "0", "0", "0", "1", "0")
	assert.ErrorContains(t, err, "p1 has no possible moves")
}

func TestVerbosePrintsMargins(t *testing.T) {
	out, err := execute(t, "", "-n", "-v", "-r", "5", "0", "0", "2", "0", "1", "0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{1: "), out)
}

func TestBoardValidation(t *testing.T) {
	for _, args := range [][]string{
		{"0", "1"},
		{"0", "1", "2"},
		{"0", "x", "0", "1"},
	} {
		_, err := execute(t, "", append([]string{"-m"}, args...)...)
		assert.Error(t, err, args)
	}

	long := make([]string, game.MaxSlots+2)
	for i := range long {
		long[i] = "1"
	}
	_, err := execute(t, "", append([]string{"-m", "-r", "1"}, long...)...)
	assert.ErrorIs(t, err, game.ErrBoardSize)
}

func TestRunsValidation(t *testing.T) {
	_, err := execute(t, "", "-m", "--runs", "0")
	assert.ErrorIs(t, err, ai.ErrRuns)

	t.Setenv("MANCALA_RUNS", "2000")
	_, err = execute(t, "", "-m")
	assert.ErrorIs(t, err, ai.ErrRuns)

	// An explicit flag wins over the environment.
	out, err := execute(t, "", "-m", "--runs", "3", "0", "1", "0", "0", "1", "1")
	require.NoError(t, err)
	assert.Equal(t, "[1,0,0,0,1,1]\n", out)
}

var scoreLine = regexp.MustCompile(`Score: (\d+) : (\d+)\n$`)

func TestAIVersusAI(t *testing.T) {
	out, err := execute(t, "", "-r", "5", "--seed", "7")
	require.NoError(t, err)

	m := scoreLine.FindStringSubmatch(out)
	require.NotNil(t, m, out)
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	assert.Equal(t, game.Default().Total(), a+b)
	assert.Contains(t, out, "p1 picks up from pot")
	assert.Contains(t, out, "====1==2==3==4==5==6====")
	assert.Contains(t, out, "====6==5==4==3==2==1====")
}

func TestHumanPlayerOne(t *testing.T) {
	out, err := execute(t, "x\n1\n2\n1\n", "-p", "-r", "5", "0", "0", "2", "0", "1", "0")
	require.NoError(t, err)

	assert.Contains(t, out, `not a pot number: "x"`)
	assert.Contains(t, out, game.ErrEmptyPot.Error())
	assert.Contains(t, out, "p2 picks up from pot 1")
	assert.True(t, strings.HasSuffix(out, "Score: 2 : 1\n"), out)
}

func TestHumanEOF(t *testing.T) {
	_, err := execute(t, "", "-p", "-r", "5", "0", "0", "2", "0", "1", "0")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestHealthcheck(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	out, err := execute(t, "", "healthcheck", "--url", ok.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = execute(t, "", "healthcheck", "--url", broken.URL+"/")
	assert.ErrorContains(t, err, "status 500")

	gone := httptest.NewServer(http.NotFoundHandler())
	gone.Close()
	_, err = execute(t, "", "healthcheck", "--url", gone.URL+"/", "--timeout", "500ms")
	assert.Error(t, err)
}
