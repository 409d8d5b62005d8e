package participants

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/rtpcraft/randomtp/internal/config"
	"github.com/rtpcraft/randomtp/internal/db"
	"github.com/rtpcraft/randomtp/internal/db/model"
	"github.com/rtpcraft/randomtp/internal/observability/metrics"
	"github.com/rtpcraft/randomtp/internal/types"
	"github.com/rtpcraft/randomtp/internal/utils/poller"
)

// Store caches participant records in memory and writes changed ones back to
// the database on Persist.
type Store struct {
	db    db.DbInterface
	cfg   *config.StoreConfig
	clock clockwork.Clock

	mu      sync.Mutex
	records map[string]types.ParticipantRecord
	dirty   map[string]struct{}

	// serializes Persist so a slow flush cannot be overtaken by a newer one
	persistMu sync.Mutex
	flusher   *poller.Poller
}

func NewStore(database db.DbInterface, cfg *config.StoreConfig, clock clockwork.Clock) *Store {
	return &Store{
		db:      database,
		cfg:     cfg,
		clock:   clock,
		records: make(map[string]types.ParticipantRecord),
		dirty:   make(map[string]struct{}),
	}
}

// Get returns the record of id, loading it from the database on first use.
// Unknown participants get a fresh zero record.
func (s *Store) Get(ctx context.Context, id string) (types.ParticipantRecord, error) {
	s.mu.Lock()
	record, ok := s.records[id]
	s.mu.Unlock()
	if ok {
		return record, nil
	}

	loaded, err := s.load(ctx, id)
	if err != nil {
		return types.ParticipantRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another caller may have loaded and modified it meanwhile
	if record, ok := s.records[id]; ok {
		return record, nil
	}
	s.records[id] = loaded
	return loaded, nil
}

// Update applies mutator to the record of id and marks it for persisting.
func (s *Store) Update(ctx context.Context, id string, mutator func(*types.ParticipantRecord)) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.records[id]
	mutator(&record)
	record.ID = id
	s.records[id] = record
	s.dirty[id] = struct{}{}
	return nil
}

// Dirty reports how many records wait to be persisted.
func (s *Store) Dirty() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty)
}

// Persist writes every changed record to the database. Records that could not
// be written stay dirty for the next attempt.
func (s *Store) Persist(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	now := s.clock.Now()
	docs := make([]*model.ParticipantDocument, 0, len(s.dirty))
	ids := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		doc, err := model.FromParticipantRecord(s.records[id], now)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to convert participant %s: %w", id, err)
		}
		docs = append(docs, doc)
		ids = append(ids, id)
	}
	s.dirty = make(map[string]struct{})
	s.mu.Unlock()

	if len(docs) == 0 {
		return nil
	}

	err := retry.Do(
		func() error {
			return s.db.UpsertParticipants(ctx, docs)
		},
		retry.Context(ctx),
		retry.Attempts(s.cfg.MaxRetryTimes),
		retry.Delay(s.cfg.RetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Int("records", len(docs)).
				Err(err).
				Msg("Retrying participant persist")
		}),
	)
	if err != nil {
		s.mu.Lock()
		for _, id := range ids {
			s.dirty[id] = struct{}{}
		}
		s.mu.Unlock()
		return fmt.Errorf("failed to persist %d participants: %w", len(docs), err)
	}

	log.Ctx(ctx).Debug().Int("records", len(docs)).Msg("Persisted participants")
	return nil
}

// StartFlusher persists changed records every interval until ctx is done or
// StopFlusher is called.
func (s *Store) StartFlusher(ctx context.Context, interval time.Duration) {
	s.flusher = poller.NewPoller(
		"participant-store",
		interval,
		metrics.RecordPollerDuration("participant-store", s.Persist),
		poller.WithClock(s.clock),
	)
	go s.flusher.Start(ctx)
}

func (s *Store) StopFlusher() {
	if s.flusher != nil {
		s.flusher.Stop()
	}
}

func (s *Store) load(ctx context.Context, id string) (types.ParticipantRecord, error) {
	doc, err := s.db.GetParticipant(ctx, id)
	if err != nil {
		if db.IsNotFoundError(err) {
			return types.NewParticipantRecord(id), nil
		}
		return types.ParticipantRecord{}, fmt.Errorf("failed to load participant %s: %w", id, err)
	}

	record, err := doc.ToRecord()
	if err != nil {
		return types.ParticipantRecord{}, fmt.Errorf("failed to decode participant %s: %w", id, err)
	}
	return record, nil
}
