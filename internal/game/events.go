package game

import (
	"sync"
	"time"

	"github.com/lox/blindomok/internal/board"
)

// EventType represents a game event type with type safety
type EventType string

// EventType constants for session events
const (
	EventTypeMoveApplied    EventType = "move_applied"
	EventTypeMoveRejected   EventType = "move_rejected"
	EventTypeTurnChanged    EventType = "turn_changed"
	EventTypeTurnForfeited  EventType = "turn_forfeited"
	EventTypeTimeUpdated    EventType = "time_updated"
	EventTypeGameEnded      EventType = "game_ended"
	EventTypeAIMoveProposed EventType = "ai_move_proposed"
	EventTypeAIMoveHidden   EventType = "ai_move_hidden"
	EventTypeReplayStep     EventType = "replay_step"
	EventTypeReplayEnded    EventType = "replay_ended"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// GameEvent represents anything the session reports to its collaborators
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
}

// MoveAppliedEvent is published after a stone is placed and recorded
type MoveAppliedEvent struct {
	Move      Entry
	timestamp time.Time
}

func (e MoveAppliedEvent) EventType() EventType { return EventTypeMoveApplied }
func (e MoveAppliedEvent) Timestamp() time.Time { return e.timestamp }
func (e MoveAppliedEvent) stamp(t time.Time) GameEvent { e.timestamp = t; return e }

// MoveRejectedEvent is published when a player selects an occupied cell.
// Occupant is the colour of the stone already there, which the player learns
// as the price of the mistake.
type MoveRejectedEvent struct {
	Player           board.Player
	Cell             board.Coord
	Reason           error // rules.ErrCellOccupied
	Occupant         board.Player
	PenaltySeconds   int
	SecondsRemaining int
	timestamp        time.Time
}

func (e MoveRejectedEvent) EventType() EventType { return EventTypeMoveRejected }
func (e MoveRejectedEvent) Timestamp() time.Time { return e.timestamp }
func (e MoveRejectedEvent) stamp(t time.Time) GameEvent { e.timestamp = t; return e }

// TurnChangedEvent is published whenever a new turn starts
type TurnChangedEvent struct {
	Player           board.Player
	SecondsRemaining int
	timestamp        time.Time
}

func (e TurnChangedEvent) EventType() EventType { return EventTypeTurnChanged }
func (e TurnChangedEvent) Timestamp() time.Time { return e.timestamp }
func (e TurnChangedEvent) stamp(t time.Time) GameEvent { e.timestamp = t; return e }

// TurnForfeitedEvent is published when a player's countdown runs out
type TurnForfeitedEvent struct {
	Player    board.Player
	timestamp time.Time
}

func (e TurnForfeitedEvent) EventType() EventType { return EventTypeTurnForfeited }
func (e TurnForfeitedEvent) Timestamp() time.Time { return e.timestamp }
func (e TurnForfeitedEvent) stamp(t time.Time) GameEvent { e.timestamp = t; return e }

// TimeUpdatedEvent is published on every countdown tick
type TimeUpdatedEvent struct {
	Player           board.Player
	SecondsRemaining int
	timestamp        time.Time
}

func (e TimeUpdatedEvent) EventType() EventType { return EventTypeTimeUpdated }
func (e TimeUpdatedEvent) Timestamp() time.Time { return e.timestamp }
func (e TimeUpdatedEvent) stamp(t time.Time) GameEvent { e.timestamp = t; return e }

// EndReason says why a game finished
type EndReason string

const (
	ReasonWin       EndReason = "win"
	ReasonBoardFull EndReason = "board_full"
	ReasonEnded     EndReason = "ended"
	ReasonAIFailure EndReason = "ai_failure"
)

// GameEndedEvent is published exactly once per session. Winner is
// board.Empty unless Reason is ReasonWin. Board holds every stone, since
// nothing is hidden once the game is over.
type GameEndedEvent struct {
	Winner      board.Player
	Reason      EndReason
	MoveCounts  map[board.Player]int
	WinningLine []board.Coord
	Board       board.Board
	Err         error
	timestamp   time.Time
}

func (e GameEndedEvent) EventType() EventType { return EventTypeGameEnded }
func (e GameEndedEvent) Timestamp() time.Time { return e.timestamp }
func (e GameEndedEvent) stamp(t time.Time) GameEvent { e.timestamp = t; return e }

// AIMoveProposedEvent is published when the AI's move is about to be applied.
// The stone stays visible until the matching AIMoveHiddenEvent.
type AIMoveProposedEvent struct {
	Player    board.Player
	Cell      board.Coord
	Source    string
	Score     int
	Nodes     int
	timestamp time.Time
}

func (e AIMoveProposedEvent) EventType() EventType { return EventTypeAIMoveProposed }
func (e AIMoveProposedEvent) Timestamp() time.Time { return e.timestamp }
func (e AIMoveProposedEvent) stamp(t time.Time) GameEvent { e.timestamp = t; return e }

// AIMoveHiddenEvent closes the reveal window of an AI move
type AIMoveHiddenEvent struct {
	Cell      board.Coord
	timestamp time.Time
}

func (e AIMoveHiddenEvent) EventType() EventType { return EventTypeAIMoveHidden }
func (e AIMoveHiddenEvent) Timestamp() time.Time { return e.timestamp }
func (e AIMoveHiddenEvent) stamp(t time.Time) GameEvent { e.timestamp = t; return e }

// ReplayStepEvent shows one recorded move during a replay
type ReplayStepEvent struct {
	Number    int // 1-based position in the record
	Total     int
	Cell      board.Coord
	Player    board.Player
	Caption   string
	timestamp time.Time
}

func (e ReplayStepEvent) EventType() EventType { return EventTypeReplayStep }
func (e ReplayStepEvent) Timestamp() time.Time { return e.timestamp }
func (e ReplayStepEvent) stamp(t time.Time) GameEvent { e.timestamp = t; return e }

// ReplayEndedEvent is published after the last replay step has been shown
type ReplayEndedEvent struct {
	timestamp time.Time
}

func (e ReplayEndedEvent) EventType() EventType { return EventTypeReplayEnded }
func (e ReplayEndedEvent) Timestamp() time.Time { return e.timestamp }
func (e ReplayEndedEvent) stamp(t time.Time) GameEvent { e.timestamp = t; return e }

// stampable events get their timestamp from the publisher's clock.
type stampable interface {
	GameEvent
	stamp(t time.Time) GameEvent
}

// EventSubscriber can subscribe to game events
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event GameEvent)
}

// SimpleEventBus is a basic in-memory event bus implementation. Publish
// delivers synchronously on the caller's goroutine, so subscribers must not
// block.
type SimpleEventBus struct {
	mu          sync.RWMutex
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() EventBus {
	return &SimpleEventBus{
		subscribers: make([]EventSubscriber, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers
func (bus *SimpleEventBus) Publish(event GameEvent) {
	bus.mu.RLock()
	subscribers := bus.subscribers
	bus.mu.RUnlock()
	for _, subscriber := range subscribers {
		subscriber.OnEvent(event)
	}
}
