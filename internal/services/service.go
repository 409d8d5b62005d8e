package services

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"

	"github.com/rtpcraft/randomtp/internal/config"
	"github.com/rtpcraft/randomtp/internal/cooldown"
	"github.com/rtpcraft/randomtp/internal/countdown"
	"github.com/rtpcraft/randomtp/internal/economy"
	"github.com/rtpcraft/randomtp/internal/locator"
	"github.com/rtpcraft/randomtp/internal/types"
)

// ParticipantStore owns participant records.
type ParticipantStore interface {
	Get(ctx context.Context, id string) (types.ParticipantRecord, error)
	Update(ctx context.Context, id string, mutator func(*types.ParticipantRecord)) error
	Persist(ctx context.Context) error
}

// ParticipantHost is the live game side of a participant.
type ParticipantHost interface {
	Position(id string) (types.Location, bool)
	IsOnline(id string) bool
	IsAlive(id string) bool
	Relocate(ctx context.Context, id string, loc types.Location) error
	GrantResistance(id string, duration time.Duration, level int)
}

// Feedback delivers messages and cosmetic effects to a participant.
type Feedback interface {
	Notify(ctx context.Context, id, message string)
	PlayTick(ctx context.Context, id string, remaining int)
	PlayArrival(ctx context.Context, id string, loc types.Location)
	PlayCancel(ctx context.Context, id string, cause types.CancelCause)
}

type Economy interface {
	Enabled() bool
	HasFunds(ctx context.Context, participantID string, amount decimal.Decimal) bool
	Charge(ctx context.Context, participantID string, amount decimal.Decimal) (economy.Receipt, bool)
	Refund(ctx context.Context, participantID string, r economy.Receipt) bool
	Balance(ctx context.Context, participantID string) decimal.Decimal
	Format(amount decimal.Decimal) string
	CurrencyName() string
	Active() (economy.Descriptor, bool)
	Providers(ctx context.Context) []economy.ProviderStatus
	Switch(ctx context.Context, name string) error
}

type LocationFinder interface {
	Find(ctx context.Context, q locator.Query) (locator.Result, error)
}

type EventPublisher interface {
	PublishTeleportEvent(ctx context.Context, ev types.TeleportEvent) error
}

type Service struct {
	cfg       *config.Config
	store     ParticipantStore
	economy   Economy
	finder    LocationFinder
	policy    *cooldown.Policy
	sequencer *countdown.Sequencer
	host      ParticipantHost
	feedback  Feedback
	publisher EventPublisher
	worlds    map[string]locator.World
	clock     clockwork.Clock

	mu       sync.Mutex
	requests map[string]*teleportRequest
	closed   bool

	// background searches and persists
	background conc.WaitGroup
}

func NewService(
	cfg *config.Config,
	store ParticipantStore,
	economy Economy,
	finder LocationFinder,
	policy *cooldown.Policy,
	sequencer *countdown.Sequencer,
	host ParticipantHost,
	feedback Feedback,
	publisher EventPublisher,
	worlds []locator.World,
	clock clockwork.Clock,
) *Service {
	byName := make(map[string]locator.World, len(worlds))
	for _, w := range worlds {
		byName[w.Name()] = w
	}

	return &Service{
		cfg:       cfg,
		store:     store,
		economy:   economy,
		finder:    finder,
		policy:    policy,
		sequencer: sequencer,
		host:      host,
		feedback:  feedback,
		publisher: publisher,
		worlds:    byName,
		clock:     clock,
		requests:  make(map[string]*teleportRequest),
	}
}

func (s *Service) HasActiveRequest(participantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.requests[participantID]
	return ok
}

// Shutdown cancels every pending request, waits for background work and
// flushes the participant store.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	pending := make([]*teleportRequest, 0, len(s.requests))
	for _, req := range s.requests {
		pending = append(pending, req)
	}
	s.mu.Unlock()

	for _, req := range pending {
		s.cancel(ctx, req, types.CauseShutdown, s.refundEligible(types.CauseShutdown))
	}

	s.background.Wait()

	return s.store.Persist(ctx)
}
