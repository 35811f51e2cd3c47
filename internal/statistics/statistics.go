package statistics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lox/blindomok/internal/board"
)

// GameResult represents the outcome of a single self-play game
type GameResult struct {
	Index         int           // position in the run
	Seed          int64         // RNG seed for the opening (for replay)
	Winner        board.Player  // board.Empty for a full board without five
	Moves         int           // stones on the board at the end, opening included
	OpeningMoves  int           // random stones placed before the engines took over
	Nodes         int           // positions searched over the whole game
	ShortcutMoves int           // immediate wins and blocks
	SearchMoves   int           // moves picked by alpha-beta
	FallbackMoves int           // moves from the first-legal-cell fallback
	Retries       int           // proposals rejected as forbidden double-threes
	Duration      time.Duration // wall time spent in the engines
}

// Statistics tracks self-play results. Game length figures are in moves.
type Statistics struct {
	Games     int
	BlackWins int
	WhiteWins int
	Draws     int

	SumMoves  float64
	SumMoves2 float64 // Sum of squares for variance calculation
	Values    []float64

	Nodes         int64
	EngineMoves   int
	ShortcutMoves int
	SearchMoves   int
	FallbackMoves int
	Retries       int
	Duration      time.Duration

	ShortestGame int
	LongestGame  int
}

// Add incorporates a new game result into the statistics
func (s *Statistics) Add(result GameResult) {
	s.Games++
	switch result.Winner {
	case board.Black:
		s.BlackWins++
	case board.White:
		s.WhiteWins++
	default:
		s.Draws++
	}

	moves := float64(result.Moves)
	s.SumMoves += moves
	s.SumMoves2 += moves * moves
	s.Values = append(s.Values, moves)

	s.Nodes += int64(result.Nodes)
	s.EngineMoves += result.ShortcutMoves + result.SearchMoves + result.FallbackMoves
	s.ShortcutMoves += result.ShortcutMoves
	s.SearchMoves += result.SearchMoves
	s.FallbackMoves += result.FallbackMoves
	s.Retries += result.Retries
	s.Duration += result.Duration

	if s.Games == 1 || result.Moves < s.ShortestGame {
		s.ShortestGame = result.Moves
	}
	if result.Moves > s.LongestGame {
		s.LongestGame = result.Moves
	}
}

// Mean returns the average game length
func (s *Statistics) Mean() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.SumMoves / float64(s.Games)
}

// Variance returns the sample variance of game lengths
func (s *Statistics) Variance() float64 {
	if s.Games < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumMoves2 - float64(s.Games)*mean*mean) / float64(s.Games-1)
}

// StdDev returns the sample standard deviation of game lengths
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Games))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean game length
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Median returns the median game length
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the game length at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// WinRate returns the fraction of games won by p, or the draw rate for
// board.Empty.
func (s *Statistics) WinRate(p board.Player) float64 {
	if s.Games == 0 {
		return 0
	}
	var n int
	switch p {
	case board.Black:
		n = s.BlackWins
	case board.White:
		n = s.WhiteWins
	default:
		n = s.Draws
	}
	return float64(n) / float64(s.Games)
}

// NodesPerMove returns the average search size of an engine move
func (s *Statistics) NodesPerMove() float64 {
	if s.EngineMoves == 0 {
		return 0
	}
	return float64(s.Nodes) / float64(s.EngineMoves)
}

// Validate checks that the counters agree with each other
func (s *Statistics) Validate() error {
	if s.Games <= 0 {
		return fmt.Errorf("invalid games count: %d", s.Games)
	}
	if s.BlackWins+s.WhiteWins+s.Draws != s.Games {
		return fmt.Errorf("outcomes (%d black, %d white, %d draws) do not add up to %d games",
			s.BlackWins, s.WhiteWins, s.Draws, s.Games)
	}
	if len(s.Values) != s.Games {
		return fmt.Errorf("values array length (%d) does not match games count (%d)", len(s.Values), s.Games)
	}
	if s.LongestGame > board.Size {
		return fmt.Errorf("longest game (%d moves) exceeds board size", s.LongestGame)
	}
	if s.EngineMoves != s.ShortcutMoves+s.SearchMoves+s.FallbackMoves {
		return fmt.Errorf("engine moves (%d) do not match move sources", s.EngineMoves)
	}
	return nil
}
