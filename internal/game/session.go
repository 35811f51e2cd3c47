package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blindomok/internal/board"
	"github.com/lox/blindomok/internal/bot"
	"github.com/lox/blindomok/internal/gameid"
	"github.com/lox/blindomok/internal/replay"
	"github.com/lox/blindomok/internal/rules"
)

var (
	ErrGameOver          = errors.New("game is over")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrAISearchExhausted = errors.New("ai search exhausted")
	ErrReplayUnavailable = errors.New("replay unavailable")
)

// State is the session's position in its lifecycle.
type State int

const (
	StateAwaitingMove State = iota
	StateGameWon
	StateGameEnded
	StateBoardFull
)

func (s State) String() string {
	switch s {
	case StateAwaitingMove:
		return "awaiting_move"
	case StateGameWon:
		return "game_won"
	case StateGameEnded:
		return "game_ended"
	case StateBoardFull:
		return "board_full"
	default:
		return "unknown"
	}
}

// Over reports whether the game has finished.
func (s State) Over() bool {
	return s != StateAwaitingMove
}

// MoveChooser picks the AI's moves. *bot.Engine implements it.
type MoveChooser interface {
	ChooseMove(b *board.Board, ai board.Player, opts bot.Options) (bot.Result, error)
}

// SessionConfig holds the rules of play that are not fixed by the board.
type SessionConfig struct {
	Mode           Mode
	AIPlayer       board.Player
	TurnSeconds    int
	PenaltySeconds int
	ThinkDelay     time.Duration
	RevealDuration time.Duration
	MaxAIRetries   int
	ReplayInterval time.Duration
}

// DefaultSessionConfig returns the standard two-minute game against the AI.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Mode:           ModeAI,
		AIPlayer:       board.White,
		TurnSeconds:    120,
		PenaltySeconds: 30,
		ThinkDelay:     time.Second,
		RevealDuration: 2 * time.Second,
		MaxAIRetries:   8,
		ReplayInterval: replay.DefaultInterval,
	}
}

// Validate checks the configuration for values a session cannot run with.
func (c SessionConfig) Validate() error {
	if c.Mode != ModePvP && c.Mode != ModeAI {
		return fmt.Errorf("invalid mode %v", c.Mode)
	}
	if c.Mode == ModeAI && !c.AIPlayer.Valid() {
		return fmt.Errorf("invalid ai player %v", c.AIPlayer)
	}
	if c.TurnSeconds <= 0 {
		return fmt.Errorf("turn seconds must be positive, got %d", c.TurnSeconds)
	}
	if c.PenaltySeconds < 0 {
		return fmt.Errorf("penalty seconds must not be negative, got %d", c.PenaltySeconds)
	}
	if c.ThinkDelay < 0 || c.RevealDuration < 0 {
		return errors.New("ai delays must not be negative")
	}
	if c.MaxAIRetries <= 0 {
		return fmt.Errorf("max ai retries must be positive, got %d", c.MaxAIRetries)
	}
	return nil
}

// Snapshot is a copy of the session state that is safe to show to both
// players. It never contains stone positions.
type Snapshot struct {
	ID               string
	Mode             Mode
	State            State
	Current          board.Player
	SecondsRemaining int
	Winner           board.Player
	Moves            int
	MoveCounts       map[board.Player]int
	AIThinking       bool
	Replaying        bool
	ReplayPaused     bool
	Err              error
}

// Session runs one blind game: it owns the board and the move record,
// enforces turn order and the countdown, and dispatches the AI. Every entry
// point takes the session lock, so clock callbacks and user input are
// handled one at a time. Events are published with the lock held.
type Session struct {
	mu        sync.Mutex
	id        string
	cfg       SessionConfig
	clock     quartz.Clock
	logger    *log.Logger
	bus       EventBus
	chooser   MoveChooser
	formatter *EventFormatter
	replay    *replay.Sequencer

	board     board.Board
	record    MoveRecord
	current   board.Player
	remaining int
	state     State
	winner    board.Player
	aiPending bool
	err       error

	started     bool
	stopTicker  context.CancelFunc
	aiTimer     *quartz.Timer
	revealTimer *quartz.Timer
}

// NewSession creates a session with black to move. A nil bus gets a fresh
// SimpleEventBus; chooser may be nil only in ModePvP.
func NewSession(cfg SessionConfig, chooser MoveChooser, bus EventBus, clock quartz.Clock, logger *log.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if cfg.Mode == ModeAI && chooser == nil {
		return nil, errors.New("ai mode requires a move chooser")
	}
	if bus == nil {
		bus = NewEventBus()
	}

	id := gameid.Generate()
	s := &Session{
		id:        id,
		cfg:       cfg,
		clock:     clock,
		logger:    logger.WithPrefix("session").With("game_id", id),
		bus:       bus,
		chooser:   chooser,
		formatter: NewEventFormatter(FormattingOptions{Mode: cfg.Mode, AIPlayer: cfg.AIPlayer}),
		current:   board.Black,
		remaining: cfg.TurnSeconds,
		state:     StateAwaitingMove,
	}
	s.replay = replay.New(clock, cfg.ReplayInterval, replayEvents{s}, logger)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// GetEventBus returns the bus the session publishes on.
func (s *Session) GetEventBus() EventBus {
	return s.bus
}

// Formatter returns a formatter that names players the way this session does.
func (s *Session) Formatter() *EventFormatter {
	return s.formatter
}

// Start announces the first turn and drives Tick once per second until ctx
// is done or the game ends. It also dispatches the AI if it moves first.
// Calling Start more than once has no effect.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.state.Over() {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(ctx)
	s.stopTicker = cancel
	s.clock.TickerFunc(ctx, time.Second, func() error {
		s.Tick()
		return nil
	}, "session", "countdown")

	s.logger.Info("Game started", "mode", s.cfg.Mode, "turn_seconds", s.cfg.TurnSeconds)
	s.publish(TurnChangedEvent{Player: s.current, SecondsRemaining: s.remaining})
	if s.isAI(s.current) {
		s.scheduleAI()
	}
}

// SelectCell places the current human player's stone.
func (s *Session) SelectCell(row, col int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Over() {
		return ErrGameOver
	}
	if s.aiPending || s.isAI(s.current) {
		return ErrNotYourTurn
	}
	if !board.InBounds(row, col) {
		s.logger.Debug("Ignoring selection off the board", "row", row, "col", col)
		return fmt.Errorf("select %d,%d: %w", row, col, rules.ErrInvalidCoordinates)
	}
	return s.applyMove(row, col)
}

// Tick advances the countdown by one second. Ticks are ignored once the game
// is over and while the AI is thinking.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Over() || s.aiPending {
		return
	}

	s.remaining--
	if s.remaining > 0 {
		s.publish(TimeUpdatedEvent{Player: s.current, SecondsRemaining: s.remaining})
		return
	}

	s.logger.Info("Turn timed out", "player", s.current)
	s.publish(TurnForfeitedEvent{Player: s.current})
	s.beginTurn(s.current.Opponent())
}

// EndGame finishes the game at once, keeping its history for replay.
func (s *Session) EndGame() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Over() {
		return ErrGameOver
	}
	s.logger.Info("Game ended by player", "moves", s.record.Len())
	s.finish(StateGameEnded, board.Empty, ReasonEnded)
	return nil
}

// StartReplay replays the finished game from the first move.
func (s *Session) StartReplay() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Over() {
		return fmt.Errorf("%w: game still in progress", ErrReplayUnavailable)
	}
	if s.record.Len() == 0 {
		return fmt.Errorf("%w: no moves recorded", ErrReplayUnavailable)
	}

	entries := s.record.Entries()
	moves := make([]replay.Move, len(entries))
	for i, e := range entries {
		moves[i] = replay.Move{Cell: e.Cell, Player: e.Player, Caption: s.formatter.FormatEntry(e)}
	}
	if err := s.replay.Start(moves); err != nil {
		return fmt.Errorf("%w: %w", ErrReplayUnavailable, err)
	}
	return nil
}

// TogglePause pauses or resumes a running replay and reports whether it is
// now paused.
func (s *Session) TogglePause() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paused, err := s.replay.TogglePause()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrReplayUnavailable, err)
	}
	return paused, nil
}

// StopReplay abandons a running replay.
func (s *Session) StopReplay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay.Stop()
}

// Snapshot returns the current visible state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:               s.id,
		Mode:             s.cfg.Mode,
		State:            s.state,
		Current:          s.current,
		SecondsRemaining: s.remaining,
		Winner:           s.winner,
		Moves:            s.record.Len(),
		MoveCounts:       s.record.Counts(),
		AIThinking:       s.aiPending,
		Replaying:        s.replay.Running(),
		ReplayPaused:     s.replay.Paused(),
		Err:              s.err,
	}
}

// Board returns a copy of the board. Stones stay hidden while the game is
// live, so ok is false until it is over.
func (s *Session) Board() (b board.Board, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Over() {
		return board.Board{}, false
	}
	return s.board, true
}

// Record returns a copy of the move history.
func (s *Session) Record() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Entries()
}

// applyMove places the current player's stone and moves the game on.
// Called with mu held.
func (s *Session) applyMove(row, col int) error {
	player := s.current
	cell := board.Coord{Row: row, Col: col}

	if err := rules.ApplyMove(&s.board, row, col, player); err != nil {
		if errors.Is(err, rules.ErrCellOccupied) {
			penalty := min(s.cfg.PenaltySeconds, s.remaining)
			s.remaining -= penalty
			s.logger.Debug("Occupied cell selected", "player", player, "cell", cell, "penalty", penalty)
			s.publish(MoveRejectedEvent{
				Player:           player,
				Cell:             cell,
				Reason:           err,
				Occupant:         s.board.At(row, col),
				PenaltySeconds:   penalty,
				SecondsRemaining: s.remaining,
			})
		}
		return err
	}

	entry := s.record.Append(cell, player)
	s.logger.Debug("Move applied", "number", entry.Number, "player", player, "cell", cell)
	s.publish(MoveAppliedEvent{Move: entry})

	switch {
	case rules.CheckWin(&s.board, row, col, player):
		s.logger.Info("Game won", "winner", player, "moves", s.record.Len())
		s.finish(StateGameWon, player, ReasonWin)
	case rules.IsFull(&s.board):
		s.logger.Info("Board full", "moves", s.record.Len())
		s.finish(StateBoardFull, board.Empty, ReasonBoardFull)
	default:
		s.beginTurn(player.Opponent())
	}
	return nil
}

// beginTurn hands the move to p with a fresh budget. Called with mu held.
func (s *Session) beginTurn(p board.Player) {
	s.current = p
	s.remaining = s.cfg.TurnSeconds
	s.publish(TurnChangedEvent{Player: p, SecondsRemaining: s.remaining})
	if s.isAI(p) {
		s.scheduleAI()
	}
}

func (s *Session) isAI(p board.Player) bool {
	return s.cfg.Mode == ModeAI && p == s.cfg.AIPlayer
}

func (s *Session) scheduleAI() {
	s.aiPending = true
	s.aiTimer = s.clock.AfterFunc(s.cfg.ThinkDelay, s.runAI, "session", "ai-think")
}

// runAI is the think-delay timer callback.
func (s *Session) runAI() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.aiTimer = nil
	if !s.aiPending || s.state.Over() {
		return
	}

	result, err := s.proposeAIMove()
	s.aiPending = false
	if err != nil {
		s.logger.Error("AI failed to move", "error", err)
		s.err = err
		s.finish(StateGameEnded, board.Empty, ReasonAIFailure)
		return
	}

	move := result.Move
	s.publish(AIMoveProposedEvent{
		Player: s.current,
		Cell:   move,
		Source: result.Source.String(),
		Score:  result.Score,
		Nodes:  result.Nodes,
	})

	if err := s.applyMove(move.Row, move.Col); err != nil {
		// proposeAIMove only returns empty in-bounds cells
		s.logger.Error("AI move rejected", "cell", move, "error", err)
		s.err = err
		s.finish(StateGameEnded, board.Empty, ReasonAIFailure)
		return
	}

	if !s.state.Over() {
		s.revealTimer = s.clock.AfterFunc(s.cfg.RevealDuration, func() { s.hideAIMove(move) }, "session", "ai-reveal")
	}
}

// proposeAIMove asks the chooser for a move, re-searching without any cell
// that turns out to be occupied or a forbidden double-three. Called with mu
// held.
func (s *Session) proposeAIMove() (bot.Result, error) {
	ai := s.current
	var rejected []board.Coord

	for attempt := 1; attempt <= s.cfg.MaxAIRetries; attempt++ {
		result, err := s.chooser.ChooseMove(&s.board, ai, bot.Options{Exclude: rejected})
		if err != nil {
			return bot.Result{}, fmt.Errorf("%w: %w", ErrAISearchExhausted, err)
		}

		c := result.Move
		switch {
		case !c.InBounds() || rules.IsOccupied(&s.board, c.Row, c.Col):
			s.logger.Warn("AI proposed an unavailable cell, searching again", "cell", c, "attempt", attempt)
		case rules.IsForbiddenDoubleThree(&s.board, c.Row, c.Col, ai):
			s.logger.Warn("AI proposed a forbidden double-three, searching again",
				"cell", c, "attempt", attempt, "error", rules.ErrForbiddenMove)
		default:
			s.logger.Debug("AI move chosen", "cell", c, "source", result.Source, "score", result.Score, "nodes", result.Nodes)
			return result, nil
		}
		rejected = append(rejected, c)
	}
	return bot.Result{}, fmt.Errorf("%w after %d attempts", ErrAISearchExhausted, s.cfg.MaxAIRetries)
}

func (s *Session) hideAIMove(cell board.Coord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revealTimer = nil
	if s.state.Over() {
		return
	}
	s.publish(AIMoveHiddenEvent{Cell: cell})
}

// finish moves the session into a terminal state, cancels every timer and
// publishes GameEnded. Called with mu held.
func (s *Session) finish(state State, winner board.Player, reason EndReason) {
	s.state = state
	s.winner = winner
	s.aiPending = false

	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
	if s.aiTimer != nil {
		s.aiTimer.Stop()
		s.aiTimer = nil
	}
	if s.revealTimer != nil {
		s.revealTimer.Stop()
		s.revealTimer = nil
	}

	event := GameEndedEvent{
		Winner:     winner,
		Reason:     reason,
		MoveCounts: s.record.Counts(),
		Board:      s.board,
		Err:        s.err,
	}
	if last, ok := s.record.Last(); ok && reason == ReasonWin {
		event.WinningLine = rules.WinningLine(&s.board, last.Cell.Row, last.Cell.Col, winner)
	}
	s.publish(event)
}

// publish stamps event with the session clock and hands it to the bus.
func (s *Session) publish(event stampable) {
	s.bus.Publish(event.stamp(s.clock.Now()))
}

// replayEvents forwards sequencer output to the session's bus. The
// sequencer calls it with its own lock held, so it must not take the
// session lock.
type replayEvents struct {
	s *Session
}

func (r replayEvents) ReplayStep(step replay.Step) {
	r.s.publish(ReplayStepEvent{
		Number:  step.Number,
		Total:   step.Total,
		Cell:    step.Move.Cell,
		Player:  step.Move.Player,
		Caption: step.Move.Caption,
	})
}

func (r replayEvents) ReplayEnded() {
	r.s.publish(ReplayEndedEvent{})
}
