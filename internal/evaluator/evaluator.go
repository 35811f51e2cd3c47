// Package evaluator scores board positions for the search.
//
// Every occupied cell contributes one pattern per axis: the combined run of
// same-coloured stones through it and the number of open ends. Patterns of
// the AI's stones score positive, the opponent's negative, and each AI stone
// earns a small bonus for sitting near the centre column.
package evaluator

import "github.com/lox/blindomok/internal/board"

// Pattern scores, from the AI's point of view.
const (
	Five      = 100000
	OpenFour  = 15000
	Four      = 10000
	OpenThree = 3000
	Three     = 1000
	OpenTwo   = 300
	Two       = 100
)

const (
	centreCol    = 3
	centreWeight = 10
)

// Pattern describes the run through a cell along one axis.
type Pattern struct {
	Length   int // stones in the run, including the cell itself
	OpenEnds int // 0, 1 or 2 run ends followed by an empty cell
}

// PatternAt returns the pattern through (row, col) along axis for the stone
// that occupies the cell.
func PatternAt(b *board.Board, row, col int, axis board.Direction) Pattern {
	player := b.At(row, col)
	p := Pattern{Length: 1}
	for _, d := range [2]board.Direction{axis, axis.Reverse()} {
		n, end := b.Walk(row, col, d, player)
		p.Length += n
		if b.IsEmpty(end.Row, end.Col) {
			p.OpenEnds++
		}
	}
	return p
}

// Score maps a pattern to its magnitude.
func Score(p Pattern) int {
	if p.Length >= 5 {
		return Five
	}
	switch p.Length {
	case 4:
		switch p.OpenEnds {
		case 2:
			return OpenFour
		case 1:
			return Four
		}
	case 3:
		switch p.OpenEnds {
		case 2:
			return OpenThree
		case 1:
			return Three
		}
	case 2:
		switch p.OpenEnds {
		case 2:
			return OpenTwo
		case 1:
			return Two
		}
	}
	return 0
}

// CentreBonus is the bonus for an AI stone in column col.
func CentreBonus(col int) int {
	d := col - centreCol
	if d < 0 {
		d = -d
	}
	return centreWeight * (4 - d)
}

// Evaluate returns the signed score of b for ai. Higher favours ai.
func Evaluate(b *board.Board, ai board.Player) int {
	score := 0
	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			owner := b.At(r, c)
			if owner == board.Empty {
				continue
			}
			sign := -1
			if owner == ai {
				sign = 1
				score += CentreBonus(c)
			}
			for _, axis := range board.Axes {
				score += sign * Score(PatternAt(b, r, c, axis))
			}
		}
	}
	return score
}
