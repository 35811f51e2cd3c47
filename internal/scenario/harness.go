// Package scenario drives complete Blind Omok sessions against a mock clock
// and checks what a player would have been told along the way.
package scenario

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/blindomok/internal/board"
	"github.com/lox/blindomok/internal/bot"
	"github.com/lox/blindomok/internal/game"
)

// Scenario defines a complete test scenario
type Scenario struct {
	Name        string
	Config      game.SessionConfig
	Depth       int  // AI search depth; 0 uses a shallow default
	StartClock  bool // run the countdown ticker
	Steps       []Step
	ExpectedLog []string // entries that must appear, in order
	State       game.State
	Winner      board.Player
}

// Step is one player interaction followed by an optional wait.
type Step struct {
	Select  string // cell label such as "E4"
	Reject  error  // expected SelectCell error, if any
	End     bool
	Replay  bool
	Pause   bool
	Advance time.Duration
}

// Harness wraps a session with a mock clock and an event log
type Harness struct {
	t         *testing.T
	Session   *game.Session
	Clock     *quartz.Mock
	formatter *game.EventFormatter

	mu     sync.Mutex
	log    []string
	events []game.GameEvent
}

// NewHarness creates a session for cfg. In AI mode the real engine plays.
func NewHarness(t *testing.T, cfg game.SessionConfig, depth int) *Harness {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})

	var chooser game.MoveChooser
	if cfg.Mode == game.ModeAI {
		if depth <= 0 {
			depth = 2
		}
		chooser = bot.NewEngine(logger, depth)
	}

	clock := quartz.NewMock(t)
	session, err := game.NewSession(cfg, chooser, nil, clock, logger)
	require.NoError(t, err)

	h := &Harness{
		t:         t,
		Session:   session,
		Clock:     clock,
		formatter: session.Formatter(),
	}
	session.GetEventBus().Subscribe(h)
	return h
}

// OnEvent records every event with its formatted text
func (h *Harness) OnEvent(event game.GameEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	if text := h.formatter.FormatEvent(event); text != "" {
		h.log = append(h.log, text)
	}
}

// Log returns the formatted entries seen so far
func (h *Harness) Log() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.log...)
}

// Events returns the raw events seen so far
func (h *Harness) Events() []game.GameEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]game.GameEvent(nil), h.events...)
}

// Select places a stone on the labelled cell
func (h *Harness) Select(label string) error {
	h.t.Helper()
	c, err := board.ParseCoord(label)
	require.NoError(h.t, err)
	return h.Session.SelectCell(c.Row, c.Col)
}

// Advance moves the mock clock forward by d, firing each timer in turn.
func (h *Harness) Advance(d time.Duration) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for d > 0 {
		next, ok := h.Clock.Peek()
		if !ok || next > d {
			h.Clock.Advance(d).MustWait(ctx)
			return
		}
		_, w := h.Clock.AdvanceNext()
		w.MustWait(ctx)
		d -= next
	}
}

// Run plays every step of s
func (h *Harness) Run(s Scenario) {
	h.t.Helper()
	if s.StartClock {
		ctx, cancel := context.WithCancel(context.Background())
		h.t.Cleanup(cancel)
		h.Session.Start(ctx)
	}

	for i, step := range s.Steps {
		switch {
		case step.Select != "":
			err := h.Select(step.Select)
			if step.Reject != nil {
				require.ErrorIs(h.t, err, step.Reject, "step %d", i)
			} else {
				require.NoError(h.t, err, "step %d: select %s", i, step.Select)
			}
		case step.End:
			require.NoError(h.t, h.Session.EndGame(), "step %d", i)
		case step.Replay:
			require.NoError(h.t, h.Session.StartReplay(), "step %d", i)
		case step.Pause:
			_, err := h.Session.TogglePause()
			require.NoError(h.t, err, "step %d", i)
		}
		if step.Advance > 0 {
			h.Advance(step.Advance)
		}
	}
}

// AssertLog checks that expected entries appear in order. Entries match on
// substring.
func (h *Harness) AssertLog(expected ...string) {
	h.t.Helper()
	entries := h.Log()
	pos := 0
	for _, want := range expected {
		found := false
		for pos < len(entries) {
			entry := entries[pos]
			pos++
			if strings.Contains(entry, want) {
				found = true
				break
			}
		}
		require.True(h.t, found,
			"Expected log entry not found in order: %q\nActual log:\n%s",
			want, strings.Join(entries, "\n"))
	}
}

// Play runs s on a fresh harness and checks its expectations
func Play(t *testing.T, s Scenario) *Harness {
	t.Helper()
	h := NewHarness(t, s.Config, s.Depth)
	h.Run(s)
	h.AssertLog(s.ExpectedLog...)

	snap := h.Session.Snapshot()
	require.Equal(t, s.State, snap.State, "final state")
	require.Equal(t, s.Winner, snap.Winner, "winner")
	return h
}
