package countdown

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rtpcraft/randomtp/internal/types"
)

var ErrAlreadyActive = errors.New("countdown already active")

// Sequence describes one countdown. Callbacks run on the sequence goroutine
// without any sequencer lock held, so they may call Cancel or Start.
type Sequence struct {
	Ticks    int
	Interval time.Duration
	// OnTick receives the number of ticks left, counting down to 1.
	OnTick func(remaining int)
	// Check runs before every tick and before completion. Returning false
	// aborts the sequence with the given cause.
	Check      func() (types.CancelCause, bool)
	OnComplete func()
	OnAbort    func(cause types.CancelCause)
}

type run struct {
	mu        sync.Mutex
	cancelled bool
	stop      chan struct{}
}

// Sequencer runs at most one countdown per participant. The first tick fires
// immediately, the following ones one interval apart, and completion one
// interval after the last tick.
type Sequencer struct {
	clock clockwork.Clock

	mu     sync.Mutex
	active map[string]*run
}

func NewSequencer(clock clockwork.Clock) *Sequencer {
	return &Sequencer{
		clock:  clock,
		active: make(map[string]*run),
	}
}

func (s *Sequencer) Start(participantID string, seq Sequence) error {
	s.mu.Lock()
	if _, ok := s.active[participantID]; ok {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	r := &run{stop: make(chan struct{})}
	s.active[participantID] = r
	s.mu.Unlock()

	go s.loop(participantID, r, seq)
	return nil
}

// Cancel stops the participant's countdown. Once Cancel returned true no
// further tick starts and no completion or abort is delivered. A tick
// callback already running finishes. Cancelling twice is a no-op.
func (s *Sequencer) Cancel(participantID string) bool {
	s.mu.Lock()
	r, ok := s.active[participantID]
	if ok {
		delete(s.active, participantID)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}

	r.mu.Lock()
	r.cancelled = true
	close(r.stop)
	r.mu.Unlock()
	return true
}

func (s *Sequencer) Active(participantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[participantID]
	return ok
}

func (s *Sequencer) loop(participantID string, r *run, seq Sequence) {
	for remaining := seq.Ticks; remaining > 0; remaining-- {
		if !s.check(participantID, r, seq) {
			return
		}

		r.mu.Lock()
		cancelled := r.cancelled
		r.mu.Unlock()
		if cancelled {
			return
		}
		if seq.OnTick != nil {
			seq.OnTick(remaining)
		}

		select {
		case <-s.clock.After(seq.Interval):
		case <-r.stop:
			return
		}
	}

	if !s.check(participantID, r, seq) {
		return
	}

	if s.release(participantID, r) && seq.OnComplete != nil {
		seq.OnComplete()
	}
}

func (s *Sequencer) check(participantID string, r *run, seq Sequence) bool {
	if seq.Check == nil {
		return true
	}

	cause, ok := seq.Check()
	if ok {
		return true
	}

	if s.release(participantID, r) && seq.OnAbort != nil {
		seq.OnAbort(cause)
	}
	return false
}

// release removes r from the active set. Only the caller that removes it may
// deliver the final callback.
func (s *Sequencer) release(participantID string, r *run) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active[participantID] != r {
		return false
	}
	delete(s.active, participantID)
	return true
}
