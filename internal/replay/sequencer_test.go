package replay

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
)

type recorder struct {
	mu    sync.Mutex
	steps []Step
	ended int
}

func (r *recorder) ReplayStep(step Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
}

func (r *recorder) ReplayEnded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended++
}

func (r *recorder) numbers() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.steps))
	for _, s := range r.steps {
		out = append(out, s.Number)
	}
	return out
}

func (r *recorder) endedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

var threeMoves = []Move{
	{Cell: board.Coord{Row: 0, Col: 0}, Player: board.Black, Caption: "User1 (Black): A1"},
	{Cell: board.Coord{Row: 1, Col: 1}, Player: board.White, Caption: "AI (White): B2"},
	{Cell: board.Coord{Row: 2, Col: 2}, Player: board.Black, Caption: "User1 (Black): C3"},
}

func TestSequencerPlaysEveryMoveThenEnds(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	rec := &recorder{}
	seq := New(clock, time.Second, rec, quietLogger())

	require.NoError(t, seq.Start(threeMoves))
	assert.Equal(t, []int{1}, rec.numbers(), "first step is immediate")

	clock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, []int{1, 2}, rec.numbers())

	clock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, []int{1, 2, 3}, rec.numbers())
	assert.Equal(t, 0, rec.endedCount())
	assert.True(t, seq.Running())

	clock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, 1, rec.endedCount(), "end is reported one interval after the last step")
	assert.False(t, seq.Running())

	rec.mu.Lock()
	assert.Equal(t, threeMoves[1], rec.steps[1].Move)
	assert.Equal(t, 3, rec.steps[2].Total)
	rec.mu.Unlock()
}

func TestSequencerPauseFreezesAndResumeContinues(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	rec := &recorder{}
	seq := New(clock, time.Second, rec, quietLogger())

	require.NoError(t, seq.Start(threeMoves))

	paused, err := seq.TogglePause()
	require.NoError(t, err)
	assert.True(t, paused)
	assert.True(t, seq.Paused())

	clock.Advance(5 * time.Second).MustWait(ctx)
	assert.Equal(t, []int{1}, rec.numbers(), "no steps while paused")

	paused, err = seq.TogglePause()
	require.NoError(t, err)
	assert.False(t, paused)
	assert.Equal(t, []int{1, 2}, rec.numbers(), "resume shows the next move at once")

	clock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, []int{1, 2, 3}, rec.numbers())
}

func TestSequencerRestartsFromTheBeginning(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	rec := &recorder{}
	seq := New(clock, time.Second, rec, quietLogger())

	require.NoError(t, seq.Start(threeMoves[:1]))
	clock.Advance(time.Second).MustWait(ctx)
	require.Equal(t, 1, rec.endedCount())

	require.NoError(t, seq.Start(threeMoves[:1]))
	assert.Equal(t, []int{1, 1}, rec.numbers())
}

func TestSequencerErrors(t *testing.T) {
	clock := quartz.NewMock(t)
	rec := &recorder{}
	seq := New(clock, 0, rec, quietLogger())

	assert.ErrorIs(t, seq.Start(nil), ErrNothingToReplay)

	_, err := seq.TogglePause()
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, seq.Start(threeMoves))
	assert.ErrorIs(t, seq.Start(threeMoves), ErrAlreadyRunning)
}

func TestSequencerStop(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	rec := &recorder{}
	seq := New(clock, time.Second, rec, quietLogger())

	require.NoError(t, seq.Start(threeMoves))
	seq.Stop()
	assert.False(t, seq.Running())

	clock.Advance(3 * time.Second).MustWait(ctx)
	assert.Equal(t, []int{1}, rec.numbers())
	assert.Equal(t, 0, rec.endedCount(), "stop does not report an end")
}
