package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/blindomok/cmd/blindomok/shared"
	"github.com/lox/blindomok/internal/board"
	"github.com/lox/blindomok/internal/simulator"
	"github.com/lox/blindomok/internal/statistics"
)

var headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

type SimulateCmd struct {
	Games    int           `kong:"default='100',help='Number of self-play games'"`
	Workers  int           `kong:"default='0',help='Parallel games (0 uses GOMAXPROCS)'"`
	Seed     int64         `kong:"default='0',help='RNG seed for openings (0 for time-based)'"`
	Opening  int           `kong:"default='4',help='Random opening stones before the engines play (0-8)'"`
	Depth    int           `kong:"default='3',help='Search depth in plies'"`
	Timeout  time.Duration `kong:"default='30s',help='Per-game timeout'"`
	LogLevel string        `kong:"name='log-level',default='warn',help='Log level'"`
}

func (c *SimulateCmd) Run() error {
	logger, closer, err := shared.SetupLogger(c.LogLevel, "")
	if err != nil {
		return err
	}
	defer closer.Close()

	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	fmt.Printf("Starting simulation: %d games at depth %d (seed: %d, opening: %d)\n",
		c.Games, c.Depth, seed, c.Opening)

	start := time.Now()
	sim := simulator.New(simulator.Config{
		Games:   c.Games,
		Workers: c.Workers,
		Seed:    seed,
		Opening: c.Opening,
		Depth:   c.Depth,
		Timeout: c.Timeout,
		Logger:  logger,
	})
	stats, err := sim.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return fmt.Errorf("simulation failed: %w", err)
	}

	printReport(os.Stdout, stats, time.Since(start))
	return nil
}

func printReport(w io.Writer, stats *statistics.Statistics, elapsed time.Duration) {
	low, high := stats.ConfidenceInterval95()

	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("=== %d GAMES COMPLETED ===", stats.Games)))
	fmt.Fprintf(w, "Black wins: %d (%.1f%%)\n", stats.BlackWins, 100*stats.WinRate(board.Black))
	fmt.Fprintf(w, "White wins: %d (%.1f%%)\n", stats.WhiteWins, 100*stats.WinRate(board.White))
	fmt.Fprintf(w, "Draws:      %d (%.1f%%)\n", stats.Draws, 100*stats.WinRate(board.Empty))
	fmt.Fprintf(w, "Game length: %.2f moves ± %.2f SE (median %.1f, range %d-%d)\n",
		stats.Mean(), stats.StdError(), stats.Median(), stats.ShortestGame, stats.LongestGame)
	fmt.Fprintf(w, "95%% CI: [%.2f, %.2f] moves\n", low, high)
	fmt.Fprintf(w, "Engine moves: %d (%d shortcut, %d search, %d fallback), %d forbidden retries\n",
		stats.EngineMoves, stats.ShortcutMoves, stats.SearchMoves, stats.FallbackMoves, stats.Retries)
	fmt.Fprintf(w, "Search: %.0f nodes/move, %d nodes total\n", stats.NodesPerMove(), stats.Nodes)
	fmt.Fprintf(w, "Time: %v wall, %v in engines\n", elapsed.Round(time.Millisecond), stats.Duration.Round(time.Millisecond))
}
