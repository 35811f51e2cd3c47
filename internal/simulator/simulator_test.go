package simulator

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blindomok/internal/board"
	"github.com/lox/blindomok/internal/statistics"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.WarnLevel})
}

func TestNewAppliesDefaults(t *testing.T) {
	sim := New(Config{Games: 3, Logger: quietLogger()})

	assert.Positive(t, sim.config.Workers)
	assert.Equal(t, 3, sim.config.Depth)
	assert.Equal(t, 8, sim.config.MaxRetries)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		ok     bool
	}{
		{"valid", Config{Games: 1, Opening: 4}, true},
		{"no games", Config{Games: 0}, false},
		{"opening too long", Config{Games: 1, Opening: MaxOpening + 1}, false},
		{"negative opening", Config{Games: 1, Opening: -1}, false},
		{"negative timeout", Config{Games: 1, Timeout: -time.Second}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPlayGameFinishes(t *testing.T) {
	sim := New(Config{Games: 1, Seed: 7, Opening: 4, Depth: 1, Logger: quietLogger()})

	result, err := sim.PlayGame(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 4, result.OpeningMoves)
	assert.GreaterOrEqual(t, result.Moves, result.OpeningMoves)
	assert.LessOrEqual(t, result.Moves, board.Size)
	assert.Positive(t, result.SearchMoves+result.ShortcutMoves+result.FallbackMoves)
}

func TestRunIsIndependentOfWorkerCount(t *testing.T) {
	run := func(workers int) *statistics.Statistics {
		sim := New(Config{Games: 6, Workers: workers, Seed: 42, Opening: 6, Depth: 1, Logger: quietLogger()})
		stats, err := sim.Run(context.Background())
		require.NoError(t, err)
		return stats
	}

	serial, parallel := run(1), run(4)

	assert.Equal(t, serial.Games, parallel.Games)
	assert.Equal(t, serial.BlackWins, parallel.BlackWins)
	assert.Equal(t, serial.WhiteWins, parallel.WhiteWins)
	assert.Equal(t, serial.Values, parallel.Values)
	assert.Equal(t, serial.Nodes, parallel.Nodes)
	assert.NoError(t, serial.Validate())
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := New(Config{Games: 4, Seed: 1, Logger: quietLogger()})
	_, err := sim.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpeningIsReproducible(t *testing.T) {
	sim := New(Config{Games: 1, Seed: 99, Opening: MaxOpening, Logger: quietLogger()})

	var a, b board.Board
	nextA := sim.playOpening(&a, 3)
	nextB := sim.playOpening(&b, 3)

	assert.Equal(t, a, b)
	assert.Equal(t, nextA, nextB)
	assert.Equal(t, board.Black, nextA, "an even opening leaves black to move")
	assert.Equal(t, MaxOpening/2, a.CountOf(board.Black))
	assert.Equal(t, MaxOpening/2, a.CountOf(board.White))
}
