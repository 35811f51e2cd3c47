// Package simulator plays engine-versus-engine games of Blind Omok and
// aggregates the results. Each game is seeded from (Seed, index) so a run
// produces the same statistics regardless of worker count.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blindomok/internal/board"
	"github.com/lox/blindomok/internal/bot"
	"github.com/lox/blindomok/internal/randutil"
	"github.com/lox/blindomok/internal/rules"
	"github.com/lox/blindomok/internal/statistics"
)

// MaxOpening caps the number of random stones placed before the engines play.
const MaxOpening = 8

// Config holds configuration for running simulations
type Config struct {
	Games      int
	Workers    int // 0 uses GOMAXPROCS
	Seed       int64
	Opening    int // random stones, alternating from black
	Depth      int
	MaxRetries int // forbidden proposals tolerated per move before passing
	Timeout    time.Duration
	Logger     *log.Logger
}

// Simulator runs self-play games
type Simulator struct {
	config Config
}

// New creates a new simulator with the given configuration
func New(config Config) *Simulator {
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	if config.Depth <= 0 {
		config.Depth = bot.DefaultDepth
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 8
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	return &Simulator{config: config}
}

// Validate checks the configuration before a run
func (c Config) Validate() error {
	if c.Games <= 0 {
		return fmt.Errorf("games must be positive, got %d", c.Games)
	}
	if c.Opening < 0 || c.Opening > MaxOpening {
		return fmt.Errorf("opening must be between 0 and %d, got %d", MaxOpening, c.Opening)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout)
	}
	return nil
}

// Run plays every game and returns the aggregated statistics. Results are
// added in game order.
func (s *Simulator) Run(ctx context.Context) (*statistics.Statistics, error) {
	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	results := make([]statistics.GameResult, s.config.Games)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for i := range results {
		g.Go(func() error {
			result, err := s.PlayGame(ctx, i)
			if err != nil {
				return fmt.Errorf("game %d (seed %d): %w", i, s.config.Seed, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &statistics.Statistics{}
	for _, r := range results {
		stats.Add(r)
	}
	if err := stats.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}
	return stats, nil
}

// PlayGame plays game number index of the run to completion.
func (s *Simulator) PlayGame(ctx context.Context, index int) (statistics.GameResult, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	result := statistics.GameResult{Index: index, Seed: s.config.Seed}
	logger := s.config.Logger.With("game", index)
	engine := bot.NewEngine(logger, s.config.Depth)

	var b board.Board
	player := s.playOpening(&b, index)
	result.OpeningMoves = b.Count()

	start := time.Now()
	passes := 0
	for !rules.IsFull(&b) && passes < 2 {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		res, retries, err := s.chooseLegal(engine, &b, player)
		result.Retries += retries
		result.Nodes += res.Nodes
		if errors.Is(err, bot.ErrNoLegalMove) {
			logger.Debug("No legal move, passing", "player", player)
			passes++
			player = player.Opponent()
			continue
		}
		if err != nil {
			return result, err
		}
		passes = 0

		switch res.Source {
		case bot.SourceWin, bot.SourceBlock:
			result.ShortcutMoves++
		case bot.SourceSearch:
			result.SearchMoves++
		default:
			result.FallbackMoves++
		}

		cell := res.Move
		if err := rules.ApplyMove(&b, cell.Row, cell.Col, player); err != nil {
			return result, err
		}
		if rules.CheckWin(&b, cell.Row, cell.Col, player) {
			result.Winner = player
			break
		}
		player = player.Opponent()
	}

	result.Moves = b.Count()
	result.Duration = time.Since(start)
	logger.Debug("Game finished", "winner", result.Winner, "moves", result.Moves, "nodes", result.Nodes)
	return result, nil
}

// chooseLegal asks the engine for a move that is not a forbidden
// double-three, excluding each rejected proposal in turn.
func (s *Simulator) chooseLegal(engine *bot.Engine, b *board.Board, p board.Player) (bot.Result, int, error) {
	var exclude []board.Coord
	var nodes int
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		res, err := engine.ChooseMove(b, p, bot.Options{Exclude: exclude})
		nodes += res.Nodes
		res.Nodes = nodes
		if err != nil {
			return res, attempt, err
		}
		if !rules.IsForbiddenDoubleThree(b, res.Move.Row, res.Move.Col, p) {
			return res, attempt, nil
		}
		exclude = append(exclude, res.Move)
	}
	return bot.Result{Nodes: nodes}, s.config.MaxRetries, bot.ErrNoLegalMove
}

// playOpening places the random opening stones and returns the player to
// move next. Stones that would complete five are redrawn.
func (s *Simulator) playOpening(b *board.Board, index int) board.Player {
	rng := randutil.ForGame(s.config.Seed, index)
	player := board.Black
	for placed := 0; placed < s.config.Opening; {
		moves := rules.LegalMoves(b)
		if len(moves) == 0 {
			break
		}
		cell := moves[rng.IntN(len(moves))]
		_ = rules.ApplyMove(b, cell.Row, cell.Col, player)
		if rules.CheckWin(b, cell.Row, cell.Col, player) {
			b.Clear(cell.Row, cell.Col)
			continue
		}
		placed++
		player = player.Opponent()
	}
	return player
}
