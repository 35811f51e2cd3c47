package game

import "github.com/lox/blindomok/internal/board"

// Entry is one applied move.
type Entry struct {
	Number int // 1-based
	Cell   board.Coord
	Player board.Player
}

// Label returns the cell label, e.g. "C4".
func (e Entry) Label() string {
	return e.Cell.String()
}

// MoveRecord is the append-only history of a game. It only grows on applied
// moves, so its length always equals the number of stones on the board.
type MoveRecord struct {
	entries []Entry
}

// Append records a move and returns the new entry.
func (r *MoveRecord) Append(cell board.Coord, player board.Player) Entry {
	e := Entry{Number: len(r.entries) + 1, Cell: cell, Player: player}
	r.entries = append(r.entries, e)
	return e
}

// Len returns the number of recorded moves.
func (r *MoveRecord) Len() int {
	return len(r.entries)
}

// Last returns the most recent entry.
func (r *MoveRecord) Last() (Entry, bool) {
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	return r.entries[len(r.entries)-1], true
}

// Entries returns a copy of the history.
func (r *MoveRecord) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Counts returns the number of moves made by each player. Both colours are
// always present in the map.
func (r *MoveRecord) Counts() map[board.Player]int {
	counts := map[board.Player]int{board.Black: 0, board.White: 0}
	for _, e := range r.entries {
		counts[e.Player]++
	}
	return counts
}
