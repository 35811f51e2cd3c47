// Package tui is the terminal front end for a blind omok session. It renders
// what the players are allowed to see and forwards their input to the
// session; all game decisions stay in the session.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/blindomok/internal/board"
	"github.com/lox/blindomok/internal/game"
	"github.com/lox/blindomok/internal/rules"
)

// eventBacklog is how many queued events make countdown updates disposable.
const eventBacklog = 256

// Options sets how long banner messages stay up.
type Options struct {
	MessageDuration   time.Duration // default 3s
	AIMessageDuration time.Duration // default 2s
	CaptionDuration   time.Duration // replay captions, default 900ms
}

func (o *Options) applyDefaults() {
	if o.MessageDuration <= 0 {
		o.MessageDuration = 3 * time.Second
	}
	if o.AIMessageDuration <= 0 {
		o.AIMessageDuration = 2 * time.Second
	}
	if o.CaptionDuration <= 0 {
		o.CaptionDuration = 900 * time.Millisecond
	}
}

// eventMsg carries a session event into the update loop
type eventMsg struct {
	event game.GameEvent
}

// clearMessageMsg expires the banner if it has not been replaced since
type clearMessageMsg struct {
	id int
}

// subscriber queues session events for the program without blocking the
// session. Once the backlog is full only countdown updates are dropped; the
// next turn change or tick carries the time again.
type subscriber struct {
	mu     sync.Mutex
	queue  []game.GameEvent
	ready  chan struct{}
	logger *log.Logger
}

func newSubscriber(logger *log.Logger) *subscriber {
	return &subscriber{ready: make(chan struct{}, 1), logger: logger}
}

func (s *subscriber) OnEvent(event game.GameEvent) {
	s.mu.Lock()
	if _, ok := event.(game.TimeUpdatedEvent); ok && len(s.queue) >= eventBacklog {
		s.mu.Unlock()
		s.logger.Debug("Dropping countdown update, UI is not keeping up")
		return
	}
	s.queue = append(s.queue, event)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// tryNext pops the oldest queued event, if any.
func (s *subscriber) tryNext() (game.GameEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	event := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return event, true
}

// next blocks until an event is queued.
func (s *subscriber) next() game.GameEvent {
	for {
		if event, ok := s.tryNext(); ok {
			return event
		}
		<-s.ready
	}
}

// Model is the bubbletea model for one session
type Model struct {
	session   *game.Session
	formatter *game.EventFormatter
	logger    *log.Logger
	opts      Options
	sub       *subscriber
	mode      game.Mode

	keys    keyMap
	help    help.Model
	logView viewport.Model

	cursor   board.Coord
	current  board.Player
	seconds  int
	thinking bool

	revealed  map[board.Coord]board.Player // AI stones inside their reveal window
	final     *board.Board                 // every stone, once the game is over
	winning   map[board.Coord]bool
	replaying bool
	replayed  map[board.Coord]board.Player

	message   string
	messageID int
	gameLog   []string

	width    int
	height   int
	quitting bool
}

// New creates a model and subscribes it to the session's events.
func New(session *game.Session, opts Options, logger *log.Logger) *Model {
	opts.applyDefaults()
	logger = logger.WithPrefix("tui")

	sub := newSubscriber(logger)
	session.GetEventBus().Subscribe(sub)

	snap := session.Snapshot()
	vp := viewport.New(40, 6)
	vp.SetContent("")

	return &Model{
		session:   session,
		formatter: session.Formatter(),
		logger:    logger,
		opts:      opts,
		sub:       sub,
		mode:      snap.Mode,
		keys:      defaultKeyMap(),
		help:      help.New(),
		logView:   vp,
		cursor:    board.Coord{Row: board.Rows / 2, Col: board.Cols / 2},
		current:   snap.Current,
		seconds:   snap.SecondsRemaining,
		revealed:  make(map[board.Coord]board.Player),
		replayed:  make(map[board.Coord]board.Player),
	}
}

// Close unsubscribes the model from the session.
func (m *Model) Close() {
	m.session.GetEventBus().Unsubscribe(m.sub)
}

// Init starts listening for session events
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *Model) waitForEvent() tea.Cmd {
	sub := m.sub
	return func() tea.Msg {
		return eventMsg{event: sub.next()}
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeLog()
		return m, nil

	case eventMsg:
		cmd := m.handleEvent(msg.event)
		return m, tea.Batch(cmd, m.waitForEvent())

	case clearMessageMsg:
		if msg.id == m.messageID {
			m.message = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1, 0)
	case key.Matches(msg, m.keys.Left):
		m.moveCursor(0, -1)
	case key.Matches(msg, m.keys.Right):
		m.moveCursor(0, 1)
	case key.Matches(msg, m.keys.Place):
		return m.place()
	case key.Matches(msg, m.keys.End):
		if err := m.session.EndGame(); err != nil {
			return m.setMessage("The game is already over.", m.opts.MessageDuration)
		}
	case key.Matches(msg, m.keys.Replay):
		if err := m.session.StartReplay(); err != nil {
			return m.setMessage(m.replayUnavailableText(), m.opts.MessageDuration)
		}
		m.replaying = true
		m.replayed = make(map[board.Coord]board.Player)
	case key.Matches(msg, m.keys.Pause):
		paused, err := m.session.TogglePause()
		if err != nil {
			return m.setMessage("No replay is running.", m.opts.MessageDuration)
		}
		if paused {
			return m.setMessage("Replay paused.", m.opts.MessageDuration)
		}
	case key.Matches(msg, m.keys.LogUp):
		m.logView.HalfPageUp()
	case key.Matches(msg, m.keys.LogDown):
		m.logView.HalfPageDown()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resizeLog()
	}
	return nil
}

func (m *Model) moveCursor(dRow, dCol int) {
	r, c := m.cursor.Row+dRow, m.cursor.Col+dCol
	if board.InBounds(r, c) {
		m.cursor = board.Coord{Row: r, Col: c}
	}
}

func (m *Model) place() tea.Cmd {
	err := m.session.SelectCell(m.cursor.Row, m.cursor.Col)
	switch {
	case err == nil, errors.Is(err, rules.ErrCellOccupied):
		// occupied cells are reported through MoveRejected
		return nil
	case errors.Is(err, game.ErrNotYourTurn):
		return m.setMessage("Wait for the AI to move.", m.opts.MessageDuration)
	case errors.Is(err, game.ErrGameOver):
		return m.setMessage("The game is over. Press r to replay.", m.opts.MessageDuration)
	default:
		m.logger.Warn("Selection failed", "cell", m.cursor, "error", err)
		return nil
	}
}

func (m *Model) replayUnavailableText() string {
	snap := m.session.Snapshot()
	switch {
	case !snap.State.Over():
		return "Replay is available once the game is over."
	case snap.Moves == 0:
		return "There are no moves to replay."
	default:
		return "A replay is already running."
	}
}

func (m *Model) handleEvent(event game.GameEvent) tea.Cmd {
	if text := m.formatter.FormatEvent(event); text != "" {
		m.addLogEntry(text)
	}

	switch e := event.(type) {
	case game.TurnChangedEvent:
		m.current = e.Player
		m.seconds = e.SecondsRemaining
		m.thinking = m.formatter.IsAI(e.Player)
	case game.TimeUpdatedEvent:
		m.seconds = e.SecondsRemaining
	case game.MoveAppliedEvent:
		m.thinking = false
	case game.MoveRejectedEvent:
		m.seconds = e.SecondsRemaining
		return m.setMessage(m.formatter.FormatMoveRejected(e), m.opts.MessageDuration)
	case game.TurnForfeitedEvent:
		return m.setMessage(m.formatter.FormatTurnForfeited(e), m.opts.MessageDuration)
	case game.AIMoveProposedEvent:
		m.revealed[e.Cell] = e.Player
		return m.setMessage(m.formatter.FormatAIMoveProposed(e), m.opts.AIMessageDuration)
	case game.AIMoveHiddenEvent:
		delete(m.revealed, e.Cell)
	case game.GameEndedEvent:
		b := e.Board
		m.final = &b
		m.winning = make(map[board.Coord]bool, len(e.WinningLine))
		for _, c := range e.WinningLine {
			m.winning[c] = true
		}
		m.thinking = false
		return m.setMessage(m.formatter.FormatGameEnded(e), m.opts.MessageDuration)
	case game.ReplayStepEvent:
		m.replaying = true
		m.replayed[e.Cell] = e.Player
		return m.setMessage(e.Caption, m.opts.CaptionDuration)
	case game.ReplayEndedEvent:
		m.replaying = false
	}
	return nil
}

func (m *Model) setMessage(text string, d time.Duration) tea.Cmd {
	m.messageID++
	m.message = text
	id := m.messageID
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearMessageMsg{id: id}
	})
}

func (m *Model) addLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logView.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logView.Height > 0 && m.logView.Width > 0 {
		m.logView.GotoBottom()
	}
}

func (m *Model) resizeLog() {
	// header, board, status, message and help take the rest
	fixed := board.Rows + 10
	if m.help.ShowAll {
		fixed += 3
	}
	m.logView.Width = max(m.width-2, 10)
	m.logView.Height = max(m.height-fixed, 3)
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("Blind Omok · %s", modeTitle(m.formatter, m.mode))))
	b.WriteString("\n\n")
	b.WriteString(m.renderBoard())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(MessageStyle.Render(m.message))
	b.WriteString("\n")
	b.WriteString(LogStyle.Render(m.logView.View()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func modeTitle(ef *game.EventFormatter, mode game.Mode) string {
	if mode == game.ModeAI {
		return fmt.Sprintf("%s vs %s", ef.PlayerLabel(board.Black), ef.PlayerLabel(board.White))
	}
	return "two players"
}

func (m *Model) renderBoard() string {
	var b strings.Builder
	b.WriteString("  ")
	for c := 0; c < board.Cols; c++ {
		b.WriteString(LabelStyle.Render(fmt.Sprintf(" %d", c+1)))
	}
	b.WriteString("\n")

	for r := 0; r < board.Rows; r++ {
		b.WriteString(LabelStyle.Render(fmt.Sprintf("%c ", 'A'+r)))
		for c := 0; c < board.Cols; c++ {
			cell := board.Coord{Row: r, Col: c}
			b.WriteString(" ")
			b.WriteString(m.renderCell(cell))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// visibleStone decides what a cell shows: replayed stones during a replay,
// every stone once the game is over, otherwise only AI stones being revealed.
func (m *Model) visibleStone(cell board.Coord) board.Player {
	switch {
	case m.replaying:
		return m.replayed[cell]
	case m.final != nil:
		return m.final.At(cell.Row, cell.Col)
	default:
		return m.revealed[cell]
	}
}

func (m *Model) renderCell(cell board.Coord) string {
	var glyph string
	style := EmptyCellStyle
	switch m.visibleStone(cell) {
	case board.Black:
		glyph, style = "●", BlackStoneStyle
	case board.White:
		glyph, style = "○", WhiteStoneStyle
	default:
		glyph = "·"
	}

	switch {
	case m.final == nil && cell == m.cursor:
		style = style.Inherit(CursorStyle)
	case m.final != nil && !m.replaying && m.winning[cell]:
		style = style.Inherit(WinningCellStyle)
	}
	return style.Render(glyph)
}

func (m *Model) renderStatus() string {
	if m.replaying {
		return StatusStyle.Render("Replaying (p to pause)")
	}
	if m.final != nil {
		return StatusStyle.Render("Game over · r to replay, q to quit")
	}

	status := fmt.Sprintf("%s to move", m.formatter.PlayerLabel(m.current))
	if m.thinking {
		status = "AI is thinking..."
	}

	timer := TimerStyle
	if m.seconds <= 10 {
		timer = TimerLowStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		StatusStyle.Render(status),
		"  ",
		timer.Render(FormatClock(m.seconds)),
		"  ",
		LabelStyle.Render("cursor "+m.cursor.String()),
	)
}

// FormatClock renders a countdown as mm:ss.
func FormatClock(seconds int) string {
	seconds = max(seconds, 0)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
