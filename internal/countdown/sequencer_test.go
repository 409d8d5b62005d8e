package countdown

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtpcraft/randomtp/internal/types"
)

const waitTimeout = 2 * time.Second

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for countdown event")
	}
	var zero T
	return zero
}

func nothing[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected countdown event %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

type recorder struct {
	ticks    chan int
	done     chan struct{}
	aborted  chan types.CancelCause
	sequence Sequence
}

func newRecorder(ticks int) *recorder {
	r := &recorder{
		ticks:   make(chan int, 16),
		done:    make(chan struct{}, 4),
		aborted: make(chan types.CancelCause, 4),
	}
	r.sequence = Sequence{
		Ticks:      ticks,
		Interval:   time.Second,
		OnTick:     func(remaining int) { r.ticks <- remaining },
		OnComplete: func() { r.done <- struct{}{} },
		OnAbort:    func(cause types.CancelCause) { r.aborted <- cause },
	}
	return r
}

func TestSequencer_Completes(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSequencer(clock)
	rec := newRecorder(3)

	require.NoError(t, s.Start("p1", rec.sequence))
	assert.True(t, s.Active("p1"))

	for _, expected := range []int{3, 2, 1} {
		assert.Equal(t, expected, receive(t, rec.ticks))
		nothing(t, rec.done)
		clock.BlockUntil(1)
		clock.Advance(time.Second)
	}

	receive(t, rec.done)
	nothing(t, rec.done)
	assert.False(t, s.Active("p1"))
	assert.False(t, s.Cancel("p1"))
}

func TestSequencer_CancelStopsFurtherTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSequencer(clock)
	rec := newRecorder(3)

	require.NoError(t, s.Start("p1", rec.sequence))
	assert.Equal(t, 3, receive(t, rec.ticks))
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	assert.Equal(t, 2, receive(t, rec.ticks))

	assert.True(t, s.Cancel("p1"))
	assert.False(t, s.Cancel("p1"))

	clock.Advance(5 * time.Second)
	nothing(t, rec.ticks)
	nothing(t, rec.done)
	nothing(t, rec.aborted)
	assert.False(t, s.Active("p1"))
}

func TestSequencer_CheckAborts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSequencer(clock)
	rec := newRecorder(3)

	var dead atomic.Bool
	rec.sequence.Check = func() (types.CancelCause, bool) {
		if dead.Load() {
			return types.CauseDeath, false
		}
		return "", true
	}

	require.NoError(t, s.Start("p1", rec.sequence))
	assert.Equal(t, 3, receive(t, rec.ticks))

	dead.Store(true)
	clock.BlockUntil(1)
	clock.Advance(time.Second)

	assert.Equal(t, types.CauseDeath, receive(t, rec.aborted))
	nothing(t, rec.ticks)
	nothing(t, rec.done)
	assert.False(t, s.Active("p1"))
}

func TestSequencer_OnePerParticipant(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSequencer(clock)

	require.NoError(t, s.Start("p1", newRecorder(3).sequence))
	require.ErrorIs(t, s.Start("p1", newRecorder(3).sequence), ErrAlreadyActive)
	require.NoError(t, s.Start("p2", newRecorder(3).sequence))

	assert.True(t, s.Cancel("p1"))
	require.NoError(t, s.Start("p1", newRecorder(3).sequence))
}

func TestSequencer_ZeroTicksCompletesImmediately(t *testing.T) {
	s := NewSequencer(clockwork.NewFakeClock())
	rec := newRecorder(0)

	require.NoError(t, s.Start("p1", rec.sequence))
	receive(t, rec.done)
	nothing(t, rec.ticks)
}

func TestSequencer_CancelFromTickCallback(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSequencer(clock)
	rec := newRecorder(3)

	cancelled := make(chan bool, 1)
	rec.sequence.OnTick = func(remaining int) {
		rec.ticks <- remaining
		cancelled <- s.Cancel("p1")
	}

	require.NoError(t, s.Start("p1", rec.sequence))
	assert.Equal(t, 3, receive(t, rec.ticks))
	assert.True(t, receive(t, cancelled))

	clock.Advance(5 * time.Second)
	nothing(t, rec.ticks)
	nothing(t, rec.done)
	nothing(t, rec.aborted)
	assert.False(t, s.Active("p1"))
	require.NoError(t, s.Start("p1", newRecorder(3).sequence))
}
