package bot

import (
	"github.com/lox/blindomok/internal/board"
	"github.com/lox/blindomok/internal/evaluator"
)

// searcher holds the per-call state of one minimax run. Positions are passed
// by value, so each ply works on its own copy and nothing needs undoing.
type searcher struct {
	ai    board.Player
	prune bool
	skip  map[board.Coord]bool
	nodes int
}

// search returns the minimax score of pos and, when at least one child was
// expanded, the best move. The maximizing side is the AI.
func (s *searcher) search(pos board.Board, depth, alpha, beta int, maximizing, root bool) (int, board.Coord, bool) {
	s.nodes++
	if depth == 0 {
		return evaluator.Evaluate(&pos, s.ai), board.Coord{}, false
	}

	mover := s.ai
	best := -infinity
	if !maximizing {
		mover = s.ai.Opponent()
		best = infinity
	}

	var bestMove board.Coord
	found := false

cells:
	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			if pos.At(r, c) != board.Empty {
				continue
			}
			if root && s.skip[board.Coord{Row: r, Col: c}] {
				continue
			}

			child := pos
			child.Set(r, c, mover)
			score, _, _ := s.search(child, depth-1, alpha, beta, !maximizing, false)

			if maximizing {
				if score > best || !found {
					best, bestMove, found = score, board.Coord{Row: r, Col: c}, true
				}
				alpha = max(alpha, best)
			} else {
				if score < best || !found {
					best, bestMove, found = score, board.Coord{Row: r, Col: c}, true
				}
				beta = min(beta, best)
			}
			if s.prune && beta <= alpha {
				break cells
			}
		}
	}

	if !found {
		// No empty cell below the root: the position is terminal.
		return evaluator.Evaluate(&pos, s.ai), board.Coord{}, false
	}
	return best, bestMove, true
}
