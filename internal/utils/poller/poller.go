package poller

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Poller runs pollMethod every interval until stopped or its context ends.
// Errors are logged and never stop the loop.
type Poller struct {
	name       string
	interval   time.Duration
	clock      clockwork.Clock
	quit       chan struct{}
	stopOnce   sync.Once
	pollMethod func(ctx context.Context) error
}

type Option func(*Poller)

// WithClock replaces the real clock driving the ticker.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Poller) {
		p.clock = clock
	}
}

func NewPoller(name string, interval time.Duration, pollMethod func(ctx context.Context) error, opts ...Option) *Poller {
	p := &Poller{
		name:       name,
		interval:   interval,
		clock:      clockwork.NewRealClock(),
		quit:       make(chan struct{}),
		pollMethod: pollMethod,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) Start(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	log := log.Ctx(ctx).With().Str("poller", p.name).Logger()
	log.Info().Stringer("interval", p.interval).Msg("Poller started")

	for {
		select {
		case <-ticker.Chan():
			if err := p.pollMethod(ctx); err != nil {
				log.Error().Err(err).Msg("Poll failed")
			}
		case <-ctx.Done():
			log.Info().Msg("Poller stopped, context done")
			return
		case <-p.quit:
			log.Info().Msg("Poller stopped")
			return
		}
	}
}

// Stop ends Start. Calling it more than once is a no-op.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
	})
}
