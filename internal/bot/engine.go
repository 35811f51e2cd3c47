package bot

import (
	"errors"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/blindomok/internal/board"
	"github.com/lox/blindomok/internal/rules"
)

// DefaultDepth is the number of plies searched when no depth is configured.
const DefaultDepth = 3

const infinity = math.MaxInt32

// ErrNoLegalMove is returned when every candidate cell is occupied or
// excluded.
var ErrNoLegalMove = errors.New("no legal move")

// Source records which stage of the engine produced a move.
type Source int

const (
	SourceWin Source = iota
	SourceBlock
	SourceSearch
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceWin:
		return "win"
	case SourceBlock:
		return "block"
	case SourceSearch:
		return "search"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Options tune a single ChooseMove call.
type Options struct {
	Depth          int           // plies to search; 0 uses the engine default
	DisablePruning bool          // full minimax, same result with more nodes
	SkipShortcuts  bool          // skip the immediate win and block scans
	Exclude        []board.Coord // root cells the caller has already rejected
}

// Result is the engine's answer for one position.
type Result struct {
	Move   board.Coord
	Score  int // search score; zero for shortcut and fallback moves
	Source Source
	Nodes  int // positions visited by the search
}

// Engine picks moves for the AI. It keeps no state between calls and is safe
// for concurrent use.
type Engine struct {
	logger *log.Logger
	depth  int
}

// NewEngine creates an engine searching depth plies (DefaultDepth if <= 0).
func NewEngine(logger *log.Logger, depth int) *Engine {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Engine{
		logger: logger.WithPrefix("bot"),
		depth:  depth,
	}
}

// Depth returns the configured search depth.
func (e *Engine) Depth() int {
	return e.depth
}

// ChooseMove selects ai's move on b. The board is not modified. The returned
// cell is always empty; it may still be a forbidden double-three when the
// search prefers one, in which case the caller re-invokes with the cell in
// opts.Exclude.
func (e *Engine) ChooseMove(b *board.Board, ai board.Player, opts Options) (Result, error) {
	start := time.Now()
	pos := *b
	skip := excludeSet(opts.Exclude)

	if !opts.SkipShortcuts {
		if c, ok := findWinningCell(&pos, ai, skip); ok && !rules.IsForbiddenDoubleThree(&pos, c.Row, c.Col, ai) {
			e.logger.Debug("Immediate win", "cell", c)
			return Result{Move: c, Source: SourceWin}, nil
		}
		if c, ok := findWinningCell(&pos, ai.Opponent(), skip); ok && !rules.IsForbiddenDoubleThree(&pos, c.Row, c.Col, ai) {
			e.logger.Debug("Blocking opponent win", "cell", c)
			return Result{Move: c, Source: SourceBlock}, nil
		}
	}

	depth := opts.Depth
	if depth <= 0 {
		depth = e.depth
	}

	s := &searcher{ai: ai, prune: !opts.DisablePruning, skip: skip}
	score, move, found := s.search(pos, depth, -infinity, infinity, true, true)
	if found {
		e.logger.Debug("Search complete",
			"cell", move,
			"score", score,
			"depth", depth,
			"nodes", s.nodes,
			"elapsed", time.Since(start))
		return Result{Move: move, Score: score, Source: SourceSearch, Nodes: s.nodes}, nil
	}

	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			cell := board.Coord{Row: r, Col: c}
			if pos.At(r, c) != board.Empty || skip[cell] {
				continue
			}
			if !rules.IsForbiddenDoubleThree(&pos, r, c, ai) {
				e.logger.Warn("Search produced no move, using fallback", "cell", cell)
				return Result{Move: cell, Source: SourceFallback, Nodes: s.nodes}, nil
			}
		}
	}
	return Result{Nodes: s.nodes}, ErrNoLegalMove
}

// findWinningCell returns the first empty cell, row-major, where p would
// complete five.
func findWinningCell(pos *board.Board, p board.Player, skip map[board.Coord]bool) (board.Coord, bool) {
	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			if pos.At(r, c) != board.Empty || skip[board.Coord{Row: r, Col: c}] {
				continue
			}
			pos.Set(r, c, p)
			win := rules.CheckWin(pos, r, c, p)
			pos.Clear(r, c)
			if win {
				return board.Coord{Row: r, Col: c}, true
			}
		}
	}
	return board.Coord{}, false
}

func excludeSet(cells []board.Coord) map[board.Coord]bool {
	if len(cells) == 0 {
		return nil
	}
	set := make(map[board.Coord]bool, len(cells))
	for _, c := range cells {
		set[c] = true
	}
	return set
}
