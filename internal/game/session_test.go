package game

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blindomok/internal/board"
	"github.com/lox/blindomok/internal/bot"
	"github.com/lox/blindomok/internal/rules"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

type eventLog struct {
	mu     sync.Mutex
	events []GameEvent
}

func (l *eventLog) OnEvent(e GameEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.EventType())
	}
	return out
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

func eventsOf[T GameEvent](l *eventLog) []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []T
	for _, e := range l.events {
		if te, ok := e.(T); ok {
			out = append(out, te)
		}
	}
	return out
}

// scriptedChooser proposes the given cells in order, repeating the last.
type scriptedChooser struct {
	moves []board.Coord
	err   error
	calls []bot.Options
}

func (c *scriptedChooser) ChooseMove(_ *board.Board, _ board.Player, opts bot.Options) (bot.Result, error) {
	c.calls = append(c.calls, opts)
	if c.err != nil {
		return bot.Result{}, c.err
	}
	i := min(len(c.calls), len(c.moves)) - 1
	return bot.Result{Move: c.moves[i], Source: bot.SourceSearch}, nil
}

func pvpConfig() SessionConfig {
	cfg := DefaultSessionConfig()
	cfg.Mode = ModePvP
	return cfg
}

func newTestSession(t *testing.T, cfg SessionConfig, chooser MoveChooser) (*Session, *quartz.Mock, *eventLog) {
	t.Helper()
	clock := quartz.NewMock(t)
	events := &eventLog{}
	s, err := NewSession(cfg, chooser, nil, clock, quietLogger())
	require.NoError(t, err)
	s.GetEventBus().Subscribe(events)
	return s, clock, events
}

func play(t *testing.T, s *Session, cells ...board.Coord) {
	t.Helper()
	for _, c := range cells {
		require.NoError(t, s.SelectCell(c.Row, c.Col), "select %s", c)
	}
}

func TestNewSessionValidatesConfig(t *testing.T) {
	clock := quartz.NewMock(t)

	_, err := NewSession(DefaultSessionConfig(), nil, nil, clock, quietLogger())
	assert.Error(t, err, "ai mode needs a chooser")

	cfg := pvpConfig()
	cfg.TurnSeconds = 0
	_, err = NewSession(cfg, nil, nil, clock, quietLogger())
	assert.Error(t, err)

	cfg = pvpConfig()
	cfg.MaxAIRetries = 0
	_, err = NewSession(cfg, nil, nil, clock, quietLogger())
	assert.Error(t, err)

	s, err := NewSession(pvpConfig(), nil, nil, clock, quietLogger())
	require.NoError(t, err)
	assert.Len(t, s.ID(), 26)
}

func TestSelectCellAppliesAndPassesTurn(t *testing.T) {
	s, clock, events := newTestSession(t, pvpConfig(), nil)

	require.NoError(t, s.SelectCell(2, 3))

	snap := s.Snapshot()
	assert.Equal(t, StateAwaitingMove, snap.State)
	assert.Equal(t, board.White, snap.Current)
	assert.Equal(t, 120, snap.SecondsRemaining)
	assert.Equal(t, 1, snap.Moves)
	assert.Equal(t, []EventType{EventTypeMoveApplied, EventTypeTurnChanged}, events.types())

	applied := eventsOf[MoveAppliedEvent](events)
	require.Len(t, applied, 1)
	assert.Equal(t, Entry{Number: 1, Cell: board.Coord{Row: 2, Col: 3}, Player: board.Black}, applied[0].Move)
	assert.Equal(t, "C4", applied[0].Move.Label())
	assert.Equal(t, clock.Now(), applied[0].Timestamp())

	_, visible := s.Board()
	assert.False(t, visible, "stones stay hidden during play")
}

func TestSelectCellOutOfRangeIsNoop(t *testing.T) {
	s, _, events := newTestSession(t, pvpConfig(), nil)

	assert.ErrorIs(t, s.SelectCell(8, 0), rules.ErrInvalidCoordinates)
	assert.ErrorIs(t, s.SelectCell(0, -1), rules.ErrInvalidCoordinates)
	assert.Equal(t, 0, s.Snapshot().Moves)
	assert.Equal(t, board.Black, s.Snapshot().Current)
	assert.Empty(t, events.types())
}

func TestOccupiedCellCostsThirtySeconds(t *testing.T) {
	s, _, events := newTestSession(t, pvpConfig(), nil)
	play(t, s, board.Coord{Row: 0, Col: 0})

	err := s.SelectCell(0, 0)
	assert.ErrorIs(t, err, rules.ErrCellOccupied)

	snap := s.Snapshot()
	assert.Equal(t, board.White, snap.Current, "turn does not pass")
	assert.Equal(t, 90, snap.SecondsRemaining)
	assert.Equal(t, 1, snap.Moves)

	rejected := eventsOf[MoveRejectedEvent](events)
	require.Len(t, rejected, 1)
	assert.Equal(t, board.White, rejected[0].Player)
	assert.ErrorIs(t, rejected[0].Reason, rules.ErrCellOccupied)
	assert.Equal(t, board.Black, rejected[0].Occupant)
	assert.Equal(t, 30, rejected[0].PenaltySeconds)
	assert.Equal(t, 90, rejected[0].SecondsRemaining)
}

func TestPenaltyIsFlooredAtZero(t *testing.T) {
	s, _, events := newTestSession(t, pvpConfig(), nil)
	play(t, s, board.Coord{Row: 0, Col: 0})

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, s.SelectCell(0, 0), rules.ErrCellOccupied)
	}
	assert.Equal(t, 0, s.Snapshot().SecondsRemaining)

	rejected := eventsOf[MoveRejectedEvent](events)
	require.Len(t, rejected, 5)
	assert.Equal(t, 0, rejected[4].PenaltySeconds)

	// The next tick forfeits the turn.
	s.Tick()
	snap := s.Snapshot()
	assert.Equal(t, board.Black, snap.Current)
	assert.Equal(t, 120, snap.SecondsRemaining)
}

func TestTimeoutForfeitsTurn(t *testing.T) {
	s, _, events := newTestSession(t, pvpConfig(), nil)

	for i := 0; i < 119; i++ {
		s.Tick()
	}
	snap := s.Snapshot()
	assert.Equal(t, board.Black, snap.Current)
	assert.Equal(t, 1, snap.SecondsRemaining)
	events.reset()

	s.Tick()
	snap = s.Snapshot()
	assert.Equal(t, board.White, snap.Current)
	assert.Equal(t, 120, snap.SecondsRemaining)
	assert.Equal(t, 0, snap.Moves, "a forfeit records no move")
	assert.Equal(t, []EventType{EventTypeTurnForfeited, EventTypeTurnChanged}, events.types())

	forfeited := eventsOf[TurnForfeitedEvent](events)
	require.Len(t, forfeited, 1)
	assert.Equal(t, board.Black, forfeited[0].Player)
}

func TestTimeoutHandsTurnToAI(t *testing.T) {
	ctx := context.Background()
	s, clock, events := newTestSession(t, DefaultSessionConfig(), bot.NewEngine(quietLogger(), 2))

	for i := 0; i < 120; i++ {
		s.Tick()
	}

	snap := s.Snapshot()
	assert.Equal(t, board.White, snap.Current)
	assert.True(t, snap.AIThinking, "the forfeit starts the AI's move")
	assert.Equal(t, 0, snap.Moves)

	forfeited := eventsOf[TurnForfeitedEvent](events)
	require.Len(t, forfeited, 1)
	assert.Equal(t, board.Black, forfeited[0].Player)
	turns := eventsOf[TurnChangedEvent](events)
	require.NotEmpty(t, turns)
	assert.Equal(t, board.White, turns[len(turns)-1].Player)

	clock.Advance(time.Second).MustWait(ctx)

	snap = s.Snapshot()
	assert.False(t, snap.AIThinking)
	assert.Equal(t, board.Black, snap.Current)
	assert.Equal(t, 120, snap.SecondsRemaining)
	record := s.Record()
	require.Len(t, record, 1)
	assert.Equal(t, board.White, record[0].Player)
}

func TestStartDrivesTheCountdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, clock, events := newTestSession(t, pvpConfig(), nil)

	s.Start(ctx)
	require.Equal(t, []EventType{EventTypeTurnChanged}, events.types())

	clock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, 119, s.Snapshot().SecondsRemaining)

	updates := eventsOf[TimeUpdatedEvent](events)
	require.Len(t, updates, 1)
	assert.Equal(t, 119, updates[0].SecondsRemaining)

	for i := 0; i < 119; i++ {
		clock.Advance(time.Second).MustWait(ctx)
	}
	snap := s.Snapshot()
	assert.Equal(t, board.White, snap.Current)
	assert.Equal(t, 120, snap.SecondsRemaining)
	assert.Len(t, eventsOf[TurnForfeitedEvent](events), 1)
}

func TestHorizontalFiveWins(t *testing.T) {
	s, _, events := newTestSession(t, pvpConfig(), nil)

	for col := 0; col < 4; col++ {
		play(t, s, board.Coord{Row: 0, Col: col}, board.Coord{Row: 7, Col: col})
	}
	play(t, s, board.Coord{Row: 0, Col: 4})

	snap := s.Snapshot()
	assert.Equal(t, StateGameWon, snap.State)
	assert.Equal(t, board.Black, snap.Winner)
	assert.Equal(t, 9, snap.Moves)

	ended := eventsOf[GameEndedEvent](events)
	require.Len(t, ended, 1)
	assert.Equal(t, ReasonWin, ended[0].Reason)
	assert.Equal(t, board.Black, ended[0].Winner)
	assert.Equal(t, map[board.Player]int{board.Black: 5, board.White: 4}, ended[0].MoveCounts)
	assert.Len(t, ended[0].WinningLine, 5)

	assert.ErrorIs(t, s.SelectCell(5, 5), ErrGameOver)
	assert.ErrorIs(t, s.EndGame(), ErrGameOver)

	s.Tick()
	assert.Equal(t, snap.SecondsRemaining, s.Snapshot().SecondsRemaining, "ticks are ignored after the game")

	b, ok := s.Board()
	require.True(t, ok)
	assert.Equal(t, len(s.Record()), b.Count())
}

func TestFullBoardWithoutFiveEndsTheGame(t *testing.T) {
	s, _, events := newTestSession(t, pvpConfig(), nil)

	// Colour by column pair and row parity: no run longer than two anywhere.
	var black, white []board.Coord
	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			if (c/2+r)%2 == 0 {
				black = append(black, board.Coord{Row: r, Col: c})
			} else {
				white = append(white, board.Coord{Row: r, Col: c})
			}
		}
	}
	require.Len(t, black, board.Size/2)
	require.Len(t, white, board.Size/2)

	for i := range black {
		play(t, s, black[i], white[i])
	}

	snap := s.Snapshot()
	assert.Equal(t, StateBoardFull, snap.State)
	assert.Equal(t, board.Empty, snap.Winner)
	assert.Equal(t, board.Size, snap.Moves)

	ended := eventsOf[GameEndedEvent](events)
	require.Len(t, ended, 1)
	assert.Equal(t, ReasonBoardFull, ended[0].Reason)
	assert.Equal(t, board.Size, ended[0].Board.Count())
}

func TestEndGameKeepsHistory(t *testing.T) {
	s, _, events := newTestSession(t, pvpConfig(), nil)
	play(t, s, board.Coord{Row: 1, Col: 1}, board.Coord{Row: 2, Col: 2})

	require.NoError(t, s.EndGame())

	snap := s.Snapshot()
	assert.Equal(t, StateGameEnded, snap.State)
	assert.Equal(t, board.Empty, snap.Winner)
	assert.Len(t, s.Record(), 2)

	ended := eventsOf[GameEndedEvent](events)
	require.Len(t, ended, 1)
	assert.Equal(t, ReasonEnded, ended[0].Reason)
	assert.Equal(t, map[board.Player]int{board.Black: 1, board.White: 1}, ended[0].MoveCounts)
}

func TestAIRepliesAfterThinkDelay(t *testing.T) {
	ctx := context.Background()
	s, clock, events := newTestSession(t, DefaultSessionConfig(), bot.NewEngine(quietLogger(), bot.DefaultDepth))

	play(t, s, board.Coord{Row: 3, Col: 3})

	snap := s.Snapshot()
	assert.True(t, snap.AIThinking)
	assert.Equal(t, board.White, snap.Current)
	assert.ErrorIs(t, s.SelectCell(0, 0), ErrNotYourTurn)

	s.Tick()
	assert.Equal(t, 120, s.Snapshot().SecondsRemaining, "ticks are ignored while the AI thinks")

	clock.Advance(time.Second).MustWait(ctx)

	snap = s.Snapshot()
	assert.False(t, snap.AIThinking)
	assert.Equal(t, board.Black, snap.Current)
	assert.Equal(t, 2, snap.Moves)

	proposed := eventsOf[AIMoveProposedEvent](events)
	require.Len(t, proposed, 1)
	record := s.Record()
	assert.Equal(t, record[1].Cell, proposed[0].Cell)
	assert.Equal(t, board.White, record[1].Player)
	assert.Empty(t, eventsOf[AIMoveHiddenEvent](events))

	clock.Advance(2 * time.Second).MustWait(ctx)
	hidden := eventsOf[AIMoveHiddenEvent](events)
	require.Len(t, hidden, 1)
	assert.Equal(t, proposed[0].Cell, hidden[0].Cell)
}

func TestAIMoveIsNotHiddenAfterGameEnds(t *testing.T) {
	ctx := context.Background()
	chooser := &scriptedChooser{moves: []board.Coord{{Row: 7, Col: 6}}}
	s, clock, events := newTestSession(t, DefaultSessionConfig(), chooser)

	play(t, s, board.Coord{Row: 0, Col: 0})
	clock.Advance(time.Second).MustWait(ctx)
	require.NoError(t, s.EndGame())

	clock.Advance(2 * time.Second).MustWait(ctx)
	assert.Empty(t, eventsOf[AIMoveHiddenEvent](events))
}

func TestAIRetriesRejectedProposals(t *testing.T) {
	ctx := context.Background()
	occupied := board.Coord{Row: 0, Col: 0}
	forbidden := board.Coord{Row: 3, Col: 4}
	fine := board.Coord{Row: 6, Col: 6}
	chooser := &scriptedChooser{moves: []board.Coord{occupied, forbidden, fine}}
	s, clock, _ := newTestSession(t, DefaultSessionConfig(), chooser)

	pos, err := board.FromRows(
		".......",
		".......",
		"...OO..",
		"OOOO...",
		"....OO.",
		".......",
		".......",
		".......",
	)
	require.NoError(t, err)
	s.board = pos
	require.True(t, rules.IsForbiddenDoubleThree(&s.board, forbidden.Row, forbidden.Col, board.White))

	play(t, s, occupied)
	clock.Advance(time.Second).MustWait(ctx)

	require.Len(t, chooser.calls, 3)
	assert.Empty(t, chooser.calls[0].Exclude)
	assert.Equal(t, []board.Coord{occupied}, chooser.calls[1].Exclude)
	assert.Equal(t, []board.Coord{occupied, forbidden}, chooser.calls[2].Exclude)

	record := s.Record()
	require.Len(t, record, 2)
	assert.Equal(t, fine, record[1].Cell)
	assert.Equal(t, StateAwaitingMove, s.Snapshot().State)
}

func TestAIRetryExhaustionEndsTheGame(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultSessionConfig()
	cfg.MaxAIRetries = 3
	chooser := &scriptedChooser{moves: []board.Coord{{Row: 0, Col: 0}}}
	s, clock, events := newTestSession(t, cfg, chooser)

	play(t, s, board.Coord{Row: 0, Col: 0})
	clock.Advance(time.Second).MustWait(ctx)

	assert.Len(t, chooser.calls, 3)
	snap := s.Snapshot()
	assert.Equal(t, StateGameEnded, snap.State)
	assert.ErrorIs(t, snap.Err, ErrAISearchExhausted)

	ended := eventsOf[GameEndedEvent](events)
	require.Len(t, ended, 1)
	assert.Equal(t, ReasonAIFailure, ended[0].Reason)
	assert.Equal(t, 1, s.Snapshot().Moves)
}

func TestAIChooserErrorEndsTheGame(t *testing.T) {
	ctx := context.Background()
	chooser := &scriptedChooser{err: bot.ErrNoLegalMove}
	s, clock, _ := newTestSession(t, DefaultSessionConfig(), chooser)

	play(t, s, board.Coord{Row: 4, Col: 4})
	clock.Advance(time.Second).MustWait(ctx)

	snap := s.Snapshot()
	assert.Equal(t, StateGameEnded, snap.State)
	assert.ErrorIs(t, snap.Err, ErrAISearchExhausted)
	assert.ErrorIs(t, snap.Err, bot.ErrNoLegalMove)
}

func TestAIMovesFirstWhenPlayingBlack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := DefaultSessionConfig()
	cfg.AIPlayer = board.Black
	chooser := &scriptedChooser{moves: []board.Coord{{Row: 3, Col: 3}}}
	s, clock, _ := newTestSession(t, cfg, chooser)

	s.Start(ctx)
	assert.True(t, s.Snapshot().AIThinking)
	assert.ErrorIs(t, s.SelectCell(0, 0), ErrNotYourTurn)

	clock.Advance(time.Second).MustWait(ctx)
	snap := s.Snapshot()
	assert.Equal(t, board.White, snap.Current)
	assert.Equal(t, 1, snap.Moves)
}

func TestReplayAfterGameOver(t *testing.T) {
	ctx := context.Background()
	s, clock, events := newTestSession(t, pvpConfig(), nil)

	assert.ErrorIs(t, s.StartReplay(), ErrReplayUnavailable, "no replay during play")

	play(t, s,
		board.Coord{Row: 0, Col: 0},
		board.Coord{Row: 1, Col: 1},
		board.Coord{Row: 2, Col: 2},
	)
	require.NoError(t, s.EndGame())
	events.reset()

	require.NoError(t, s.StartReplay())
	steps := eventsOf[ReplayStepEvent](events)
	require.Len(t, steps, 1)
	assert.Equal(t, "User1 (Black): A1", steps[0].Caption)

	paused, err := s.TogglePause()
	require.NoError(t, err)
	assert.True(t, paused)
	assert.True(t, s.Snapshot().ReplayPaused)

	clock.Advance(3 * time.Second).MustWait(ctx)
	assert.Len(t, eventsOf[ReplayStepEvent](events), 1)

	paused, err = s.TogglePause()
	require.NoError(t, err)
	assert.False(t, paused)

	steps = eventsOf[ReplayStepEvent](events)
	require.Len(t, steps, 2)
	assert.Equal(t, 2, steps[1].Number)
	assert.Equal(t, "User2 (White): B2", steps[1].Caption)

	clock.Advance(time.Second).MustWait(ctx)
	clock.Advance(time.Second).MustWait(ctx)
	assert.Len(t, eventsOf[ReplayStepEvent](events), 3)
	assert.Len(t, eventsOf[ReplayEndedEvent](events), 1)
	assert.False(t, s.Snapshot().Replaying)

	_, err = s.TogglePause()
	assert.ErrorIs(t, err, ErrReplayUnavailable)
}

func TestReplayNeedsMoves(t *testing.T) {
	s, _, _ := newTestSession(t, pvpConfig(), nil)
	require.NoError(t, s.EndGame())
	assert.ErrorIs(t, s.StartReplay(), ErrReplayUnavailable)
}

func TestStoneCountMatchesRecord(t *testing.T) {
	s, _, _ := newTestSession(t, pvpConfig(), nil)

	cells := []board.Coord{{Row: 0, Col: 0}, {Row: 5, Col: 5}, {Row: 3, Col: 2}}
	for _, c := range cells {
		require.NoError(t, s.SelectCell(c.Row, c.Col))
		_ = s.SelectCell(c.Row, c.Col) // occupied, rejected
		_ = s.SelectCell(9, 9)
	}
	require.NoError(t, s.EndGame())

	b, ok := s.Board()
	require.True(t, ok)
	assert.Equal(t, len(cells), b.Count())
	assert.Len(t, s.Record(), b.Count())
}
