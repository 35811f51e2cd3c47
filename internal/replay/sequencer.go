// Package replay steps through a finished game's moves on a clock.
package replay

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blindomok/internal/board"
)

// DefaultInterval is the delay between replay steps.
const DefaultInterval = time.Second

var (
	ErrNothingToReplay = errors.New("nothing to replay")
	ErrAlreadyRunning  = errors.New("replay already running")
	ErrNotRunning      = errors.New("replay not running")
)

// Move is one recorded move as the replay shows it.
type Move struct {
	Cell    board.Coord
	Player  board.Player
	Caption string
}

// Step is emitted for every move shown.
type Step struct {
	Number int // 1-based
	Total  int
	Move   Move
}

// Handler receives replay output. Calls are made with the sequencer's lock
// held and must not call back into the sequencer.
type Handler interface {
	ReplayStep(step Step)
	ReplayEnded()
}

// Sequencer replays a snapshot of moves, one per interval. The first step is
// shown immediately. Pausing freezes the position; resuming shows the next
// move at once and carries on from there.
type Sequencer struct {
	mu       sync.Mutex
	clock    quartz.Clock
	interval time.Duration
	handler  Handler
	logger   *log.Logger

	moves   []Move
	next    int
	running bool
	paused  bool
	timer   *quartz.Timer
	gen     uint64 // bumped on pause/stop so stale timer callbacks are ignored
}

// New creates an idle sequencer.
func New(clock quartz.Clock, interval time.Duration, handler Handler, logger *log.Logger) *Sequencer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sequencer{
		clock:    clock,
		interval: interval,
		handler:  handler,
		logger:   logger.WithPrefix("replay"),
	}
}

// Start begins replaying moves. The slice is copied.
func (s *Sequencer) Start(moves []Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if len(moves) == 0 {
		return ErrNothingToReplay
	}

	s.moves = append([]Move(nil), moves...)
	s.next = 0
	s.running = true
	s.paused = false
	s.gen++
	s.logger.Debug("Replay started", "moves", len(s.moves))
	s.step()
	return nil
}

// TogglePause pauses a running replay or resumes a paused one and reports
// whether the replay is now paused.
func (s *Sequencer) TogglePause() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false, ErrNotRunning
	}

	if s.paused {
		s.paused = false
		s.logger.Debug("Replay resumed", "next", s.next+1)
		s.step()
		return false, nil
	}

	s.paused = true
	s.cancelTimer()
	s.logger.Debug("Replay paused", "next", s.next+1)
	return true, nil
}

// Stop abandons a running replay without emitting ReplayEnded.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancelTimer()
	s.reset()
}

// Running reports whether a replay is in progress (paused or not).
func (s *Sequencer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Paused reports whether a running replay is paused.
func (s *Sequencer) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.paused
}

// step shows the next move, or ends the replay once every move has been
// shown, and schedules the following step. Called with mu held.
func (s *Sequencer) step() {
	if s.next >= len(s.moves) {
		s.logger.Debug("Replay finished", "moves", len(s.moves))
		s.reset()
		s.handler.ReplayEnded()
		return
	}

	s.handler.ReplayStep(Step{
		Number: s.next + 1,
		Total:  len(s.moves),
		Move:   s.moves[s.next],
	})
	s.next++

	gen := s.gen
	s.timer = s.clock.AfterFunc(s.interval, func() { s.fire(gen) }, "replay", "step")
}

func (s *Sequencer) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || !s.running || s.paused {
		return
	}
	s.timer = nil
	s.step()
}

func (s *Sequencer) cancelTimer() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Sequencer) reset() {
	s.moves = nil
	s.next = 0
	s.running = false
	s.paused = false
}
