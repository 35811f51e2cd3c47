// Package board holds the 8x7 grid shared by the rules, the evaluator and the
// search. It has no behaviour beyond storage and queries.
package board

import (
	"fmt"
	"strings"
)

// Board dimensions. Rows are labelled A..H and columns 1..7.
const (
	Rows = 8
	Cols = 7
	Size = Rows * Cols
)

// Player identifies the owner of a cell. The zero value is an empty cell.
type Player int8

const (
	Empty Player = iota
	Black
	White
)

// Opponent returns the other player. Empty has no opponent.
func (p Player) Opponent() Player {
	switch p {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

// Valid reports whether p is one of the two players.
func (p Player) Valid() bool {
	return p == Black || p == White
}

func (p Player) String() string {
	switch p {
	case Black:
		return "Black"
	case White:
		return "White"
	default:
		return "Empty"
	}
}

// Coord addresses a single cell.
type Coord struct {
	Row int
	Col int
}

// InBounds reports whether the coordinate lies on the board.
func (c Coord) InBounds() bool {
	return InBounds(c.Row, c.Col)
}

// String returns the display label, e.g. "A1" for the top-left cell.
func (c Coord) String() string {
	if !c.InBounds() {
		return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
	}
	return fmt.Sprintf("%c%d", 'A'+rune(c.Row), c.Col+1)
}

// ParseCoord parses a label such as "c4" or "C4".
func ParseCoord(label string) (Coord, error) {
	label = strings.TrimSpace(strings.ToUpper(label))
	if len(label) != 2 {
		return Coord{}, fmt.Errorf("invalid cell label %q", label)
	}
	c := Coord{Row: int(label[0] - 'A'), Col: int(label[1] - '1')}
	if !c.InBounds() {
		return Coord{}, fmt.Errorf("cell label %q is off the board", label)
	}
	return c, nil
}

// InBounds reports whether (row, col) lies on the board.
func InBounds(row, col int) bool {
	return row >= 0 && row < Rows && col >= 0 && col < Cols
}

// Direction is a unit step along one of the board axes.
type Direction struct {
	DRow int
	DCol int
}

// Reverse returns the opposite step.
func (d Direction) Reverse() Direction {
	return Direction{DRow: -d.DRow, DCol: -d.DCol}
}

// Axes lists the four lines through a cell: horizontal, vertical and the two
// diagonals. Each axis is walked in both directions.
var Axes = [4]Direction{
	{DRow: 0, DCol: 1},
	{DRow: 1, DCol: 0},
	{DRow: 1, DCol: 1},
	{DRow: 1, DCol: -1},
}

// Board is a fixed-size value; copying it copies the position.
type Board struct {
	cells [Rows][Cols]Player
}

// At returns the owner of (row, col). Callers must check bounds.
func (b *Board) At(row, col int) Player {
	return b.cells[row][col]
}

// Set places p at (row, col) without any rule checks.
func (b *Board) Set(row, col int, p Player) {
	b.cells[row][col] = p
}

// Clear empties (row, col).
func (b *Board) Clear(row, col int) {
	b.cells[row][col] = Empty
}

// IsEmpty reports whether (row, col) is on the board and unoccupied.
func (b *Board) IsEmpty(row, col int) bool {
	return InBounds(row, col) && b.cells[row][col] == Empty
}

// Count returns the number of occupied cells.
func (b *Board) Count() int {
	n := 0
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if b.cells[r][c] != Empty {
				n++
			}
		}
	}
	return n
}

// CountOf returns the number of stones owned by p.
func (b *Board) CountOf(p Player) int {
	n := 0
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if b.cells[r][c] == p {
				n++
			}
		}
	}
	return n
}

// Walk counts consecutive stones of p starting one step away from (row, col)
// in direction d. It returns the run length and the first cell past the run,
// which may be off the board.
func (b *Board) Walk(row, col int, d Direction, p Player) (int, Coord) {
	n := 0
	r, c := row+d.DRow, col+d.DCol
	for InBounds(r, c) && b.cells[r][c] == p {
		n++
		r += d.DRow
		c += d.DCol
	}
	return n, Coord{Row: r, Col: c}
}

// String renders the board with row and column labels. Black is "X", white
// is "O" and empty cells are ".".
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteString("  ")
	for c := 0; c < Cols; c++ {
		fmt.Fprintf(&sb, " %d", c+1)
	}
	sb.WriteByte('\n')
	for r := 0; r < Rows; r++ {
		fmt.Fprintf(&sb, "%c ", 'A'+rune(r))
		for c := 0; c < Cols; c++ {
			sb.WriteByte(' ')
			switch b.cells[r][c] {
			case Black:
				sb.WriteByte('X')
			case White:
				sb.WriteByte('O')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FromRows builds a board from rows of "X", "O" and "." characters. It is
// intended for tests and fixtures.
func FromRows(rows ...string) (Board, error) {
	var b Board
	if len(rows) != Rows {
		return b, fmt.Errorf("expected %d rows, got %d", Rows, len(rows))
	}
	for r, line := range rows {
		line = strings.ReplaceAll(line, " ", "")
		if len(line) != Cols {
			return b, fmt.Errorf("row %d: expected %d cells, got %d", r, Cols, len(line))
		}
		for c, ch := range line {
			switch ch {
			case 'X', 'x':
				b.cells[r][c] = Black
			case 'O', 'o':
				b.cells[r][c] = White
			case '.':
			default:
				return b, fmt.Errorf("row %d: unexpected cell %q", r, ch)
			}
		}
	}
	return b, nil
}
