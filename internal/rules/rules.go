// Package rules enforces move legality and detects wins on a board.Board.
package rules

import (
	"errors"
	"fmt"

	"github.com/lox/blindomok/internal/board"
)

// WinLength is the run length that wins the game.
const WinLength = 5

var (
	// ErrCellOccupied is returned when a move targets a cell that already
	// holds a stone.
	ErrCellOccupied = errors.New("cell occupied")
	// ErrInvalidCoordinates is returned for cells off the board.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrInvalidPlayer is returned when a move is attributed to neither player.
	ErrInvalidPlayer = errors.New("invalid player")
	// ErrForbiddenMove marks a double-three. It is only produced for the AI.
	ErrForbiddenMove = errors.New("forbidden double-three")
	// ErrBoardFull marks a board with no empty cells left.
	ErrBoardFull = errors.New("board full")
)

// IsOccupied reports whether (row, col) already holds a stone. Cells off the
// board are reported as unoccupied.
func IsOccupied(b *board.Board, row, col int) bool {
	return board.InBounds(row, col) && b.At(row, col) != board.Empty
}

// ApplyMove places player's stone at (row, col). The board is only modified
// when every precondition holds.
func ApplyMove(b *board.Board, row, col int, player board.Player) error {
	if !board.InBounds(row, col) {
		return fmt.Errorf("%w: (%d,%d)", ErrInvalidCoordinates, row, col)
	}
	if !player.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPlayer, player)
	}
	if b.At(row, col) != board.Empty {
		return fmt.Errorf("%w: %s", ErrCellOccupied, board.Coord{Row: row, Col: col})
	}
	b.Set(row, col, player)
	return nil
}

// CheckWin reports whether the stone at (row, col) completes a line of at
// least five for player along any axis. The stone itself counts as one.
func CheckWin(b *board.Board, row, col int, player board.Player) bool {
	if !board.InBounds(row, col) {
		return false
	}
	for _, d := range board.Axes {
		forward, _ := b.Walk(row, col, d, player)
		backward, _ := b.Walk(row, col, d.Reverse(), player)
		if 1+forward+backward >= WinLength {
			return true
		}
	}
	return false
}

// WinningLine returns the cells of the first axis through (row, col) that
// forms a winning run for player, ordered along the axis. It returns nil when
// there is no win.
func WinningLine(b *board.Board, row, col int, player board.Player) []board.Coord {
	if !board.InBounds(row, col) {
		return nil
	}
	for _, d := range board.Axes {
		forward, _ := b.Walk(row, col, d, player)
		backward, _ := b.Walk(row, col, d.Reverse(), player)
		total := 1 + forward + backward
		if total < WinLength {
			continue
		}
		line := make([]board.Coord, 0, total)
		r, c := row-backward*d.DRow, col-backward*d.DCol
		for i := 0; i < total; i++ {
			line = append(line, board.Coord{Row: r, Col: c})
			r += d.DRow
			c += d.DCol
		}
		return line
	}
	return nil
}

// IsForbiddenDoubleThree simulates player's stone at (row, col) and reports
// whether it creates two or more open threes at once. An axis is an open
// three when its combined run is exactly three and the cell beyond each end
// is on the board and empty. The simulated stone is always removed before
// returning; an occupied or off-board cell is never forbidden.
func IsForbiddenDoubleThree(b *board.Board, row, col int, player board.Player) bool {
	if !board.InBounds(row, col) || b.At(row, col) != board.Empty || !player.Valid() {
		return false
	}

	b.Set(row, col, player)
	defer b.Clear(row, col)

	return countOpenThrees(b, row, col, player) >= 2
}

func countOpenThrees(b *board.Board, row, col int, player board.Player) int {
	threes := 0
	for _, d := range board.Axes {
		forward, fwdEnd := b.Walk(row, col, d, player)
		backward, backEnd := b.Walk(row, col, d.Reverse(), player)
		if 1+forward+backward != 3 {
			continue
		}
		if b.IsEmpty(fwdEnd.Row, fwdEnd.Col) && b.IsEmpty(backEnd.Row, backEnd.Col) {
			threes++
		}
	}
	return threes
}

// IsFull reports whether no empty cell is left.
func IsFull(b *board.Board) bool {
	return b.Count() == board.Size
}

// LegalMoves lists the empty cells in row-major order.
func LegalMoves(b *board.Board) []board.Coord {
	moves := make([]board.Coord, 0, board.Size)
	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			if b.At(r, c) == board.Empty {
				moves = append(moves, board.Coord{Row: r, Col: c})
			}
		}
	}
	return moves
}
