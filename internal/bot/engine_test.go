package bot

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blindomok/internal/board"
	"github.com/lox/blindomok/internal/randutil"
	"github.com/lox/blindomok/internal/rules"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func mustBoard(t *testing.T, rows ...string) board.Board {
	t.Helper()
	b, err := board.FromRows(rows...)
	require.NoError(t, err)
	return b
}

// randomPosition scatters stones alternately, black first.
func randomPosition(seed int64, stones int) board.Board {
	rng := randutil.New(seed)
	var b board.Board
	player := board.Black
	for placed := 0; placed < stones; {
		r, c := rng.IntN(board.Rows), rng.IntN(board.Cols)
		if rules.ApplyMove(&b, r, c, player) != nil {
			continue
		}
		placed++
		player = player.Opponent()
	}
	return b
}

func TestNewEngineDefaultsDepth(t *testing.T) {
	assert.Equal(t, DefaultDepth, NewEngine(quietLogger(), 0).Depth())
	assert.Equal(t, 2, NewEngine(quietLogger(), 2).Depth())
}

func TestChooseMoveTakesImmediateWin(t *testing.T) {
	engine := NewEngine(quietLogger(), DefaultDepth)
	b := mustBoard(t,
		".......",
		"XXXX...",
		".......",
		".......",
		".......",
		"OOOO...",
		".......",
		".......",
	)
	result, err := engine.ChooseMove(&b, board.White, Options{})
	require.NoError(t, err)
	assert.Equal(t, SourceWin, result.Source, "a win beats a block")
	assert.Equal(t, board.Coord{Row: 5, Col: 4}, result.Move)
}

func TestChooseMoveBlocksOpponentWin(t *testing.T) {
	engine := NewEngine(quietLogger(), DefaultDepth)
	b := mustBoard(t,
		".......",
		".......",
		".XXXX..",
		".......",
		"...O...",
		"...O...",
		".......",
		".......",
	)
	result, err := engine.ChooseMove(&b, board.White, Options{})
	require.NoError(t, err)
	assert.Equal(t, SourceBlock, result.Source)
	assert.Equal(t, board.Coord{Row: 2, Col: 0}, result.Move, "first threat cell in row-major order")
}

func TestChooseMoveSkipsForbiddenWin(t *testing.T) {
	engine := NewEngine(quietLogger(), DefaultDepth)
	// D5 completes five for white but also makes two open threes.
	b := mustBoard(t,
		".......",
		".......",
		"...OO..",
		"OOOO...",
		"....OO.",
		".......",
		".......",
		"X.X.X.X",
	)
	require.True(t, rules.IsForbiddenDoubleThree(&b, 3, 4, board.White))

	result, err := engine.ChooseMove(&b, board.White, Options{Depth: 1})
	require.NoError(t, err)
	assert.Equal(t, SourceSearch, result.Source)

	excluded, err := engine.ChooseMove(&b, board.White, Options{Depth: 1, Exclude: []board.Coord{{Row: 3, Col: 4}}})
	require.NoError(t, err)
	assert.NotEqual(t, board.Coord{Row: 3, Col: 4}, excluded.Move)
}

func TestChooseMoveNeverPicksOccupiedCell(t *testing.T) {
	engine := NewEngine(quietLogger(), 2)
	for seed := int64(1); seed <= 25; seed++ {
		b := randomPosition(seed, int(seed)%40+1)
		before := b

		result, err := engine.ChooseMove(&b, board.White, Options{})
		require.NoError(t, err)
		assert.False(t, rules.IsOccupied(&b, result.Move.Row, result.Move.Col), "seed %d picked %s", seed, result.Move)
		assert.Equal(t, before, b, "ChooseMove must not modify the board")
	}
}

func TestPruningDoesNotChangeTheResult(t *testing.T) {
	engine := NewEngine(quietLogger(), DefaultDepth)
	for _, seed := range []int64{3, 11, 19} {
		b := randomPosition(seed, 22)

		pruned, err := engine.ChooseMove(&b, board.White, Options{SkipShortcuts: true})
		require.NoError(t, err)
		full, err := engine.ChooseMove(&b, board.White, Options{SkipShortcuts: true, DisablePruning: true})
		require.NoError(t, err)

		assert.Equal(t, full.Score, pruned.Score, "seed %d", seed)
		assert.Equal(t, full.Move, pruned.Move, "seed %d", seed)
		assert.LessOrEqual(t, pruned.Nodes, full.Nodes)
	}
}

func TestFullSearchVisitsEveryNode(t *testing.T) {
	engine := NewEngine(quietLogger(), 2)
	b := randomPosition(5, board.Size-4)

	result, err := engine.ChooseMove(&b, board.White, Options{SkipShortcuts: true, DisablePruning: true})
	require.NoError(t, err)
	// root + 4 children + 4*3 grandchildren
	assert.Equal(t, 1+4+12, result.Nodes)
}

func TestChooseMoveIsDeterministic(t *testing.T) {
	engine := NewEngine(quietLogger(), 2)
	b := randomPosition(42, 15)

	first, err := engine.ChooseMove(&b, board.White, Options{})
	require.NoError(t, err)
	second, err := engine.ChooseMove(&b, board.White, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestChooseMoveOnFullBoard(t *testing.T) {
	engine := NewEngine(quietLogger(), DefaultDepth)
	b := randomPosition(9, board.Size)

	_, err := engine.ChooseMove(&b, board.White, Options{})
	assert.ErrorIs(t, err, ErrNoLegalMove)
}

func TestChooseMoveLastCell(t *testing.T) {
	engine := NewEngine(quietLogger(), DefaultDepth)
	b := randomPosition(9, board.Size-1)
	empty := rules.LegalMoves(&b)
	require.Len(t, empty, 1)

	result, err := engine.ChooseMove(&b, board.White, Options{SkipShortcuts: true})
	require.NoError(t, err)
	assert.Equal(t, empty[0], result.Move)
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "win", SourceWin.String())
	assert.Equal(t, "block", SourceBlock.String())
	assert.Equal(t, "search", SourceSearch.String())
	assert.Equal(t, "fallback", SourceFallback.String())
}
