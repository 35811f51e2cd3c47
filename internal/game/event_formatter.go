package game

import (
	"fmt"
	"strings"

	"github.com/lox/blindomok/internal/board"
)

// FormattingOptions controls how players are named in formatted text
type FormattingOptions struct {
	Mode     Mode
	AIPlayer board.Player // only meaningful in ModeAI
}

// EventFormatter provides centralized formatting for all game events
type EventFormatter struct {
	opts FormattingOptions
}

// NewEventFormatter creates a new event formatter with the given options
func NewEventFormatter(opts FormattingOptions) *EventFormatter {
	if opts.AIPlayer == board.Empty {
		opts.AIPlayer = board.White
	}
	return &EventFormatter{opts: opts}
}

// IsAI reports whether p is played by the engine.
func (ef *EventFormatter) IsAI(p board.Player) bool {
	return ef.opts.Mode == ModeAI && p == ef.opts.AIPlayer
}

// PlayerName returns the short name of p: "AI" for the engine, otherwise
// "User1" for black and "User2" for white.
func (ef *EventFormatter) PlayerName(p board.Player) string {
	if ef.IsAI(p) {
		return "AI"
	}
	if p == board.Black {
		return "User1"
	}
	return "User2"
}

// PlayerLabel returns the name with the stone colour, e.g. "User1 (Black)".
func (ef *EventFormatter) PlayerLabel(p board.Player) string {
	return fmt.Sprintf("%s (%s)", ef.PlayerName(p), p)
}

// FormatEntry captions a recorded move for the replay, e.g. "AI (White): B3".
func (ef *EventFormatter) FormatEntry(e Entry) string {
	return fmt.Sprintf("%s: %s", ef.PlayerLabel(e.Player), e.Label())
}

// FormatMoveRejected describes an occupied-cell selection
func (ef *EventFormatter) FormatMoveRejected(event MoveRejectedEvent) string {
	msg := fmt.Sprintf("A %s stone is already at %s.", strings.ToLower(event.Occupant.String()), event.Cell)
	if event.PenaltySeconds > 0 {
		msg += fmt.Sprintf(" -%ds", event.PenaltySeconds)
	}
	return msg
}

// FormatTurnChanged announces whose turn it is
func (ef *EventFormatter) FormatTurnChanged(event TurnChangedEvent) string {
	return fmt.Sprintf("%s to move", ef.PlayerLabel(event.Player))
}

// FormatTurnForfeited reports a timeout
func (ef *EventFormatter) FormatTurnForfeited(event TurnForfeitedEvent) string {
	return fmt.Sprintf("Time's up for %s! Turn passes.", ef.PlayerLabel(event.Player))
}

// FormatAIMoveProposed announces where the AI played
func (ef *EventFormatter) FormatAIMoveProposed(event AIMoveProposedEvent) string {
	return fmt.Sprintf("AI placed a stone at %s.", event.Cell)
}

// FormatGameEnded builds the game-over summary with per-player move counts
func (ef *EventFormatter) FormatGameEnded(event GameEndedEvent) string {
	var headline string
	switch event.Reason {
	case ReasonWin:
		headline = fmt.Sprintf("Game over! %s wins!", ef.PlayerLabel(event.Winner))
	case ReasonBoardFull:
		headline = "Game over! The board is full."
	case ReasonAIFailure:
		headline = "Game over! The AI could not find a move."
	default:
		headline = "The game has ended."
	}

	return fmt.Sprintf("%s\n%s: %d moves, %s: %d moves",
		headline,
		ef.PlayerLabel(board.Black), event.MoveCounts[board.Black],
		ef.PlayerLabel(board.White), event.MoveCounts[board.White])
}

// FormatEvent formats any event for the message log. Events that carry
// nothing worth showing, such as countdown ticks, return "".
func (ef *EventFormatter) FormatEvent(event GameEvent) string {
	switch e := event.(type) {
	case MoveAppliedEvent:
		return fmt.Sprintf("Move %d: %s placed a stone", e.Move.Number, ef.PlayerLabel(e.Move.Player))
	case MoveRejectedEvent:
		return ef.FormatMoveRejected(e)
	case TurnChangedEvent:
		return ef.FormatTurnChanged(e)
	case TurnForfeitedEvent:
		return ef.FormatTurnForfeited(e)
	case AIMoveProposedEvent:
		return ef.FormatAIMoveProposed(e)
	case GameEndedEvent:
		return ef.FormatGameEnded(e)
	case ReplayStepEvent:
		return e.Caption
	case ReplayEndedEvent:
		return "Replay finished."
	default:
		return ""
	}
}
