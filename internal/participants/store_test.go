package participants_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtpcraft/randomtp/internal/config"
	"github.com/rtpcraft/randomtp/internal/db"
	"github.com/rtpcraft/randomtp/internal/db/model"
	"github.com/rtpcraft/randomtp/internal/participants"
	"github.com/rtpcraft/randomtp/internal/types"
)

var storeCfg = &config.StoreConfig{
	Backend:       config.StoreBackendMemory,
	MaxRetryTimes: 3,
	RetryInterval: time.Millisecond,
}

// flakyDb fails the first `failures` upserts.
type flakyDb struct {
	*db.MemoryDatabase
	failures int32
	calls    atomic.Int32
}

func (f *flakyDb) UpsertParticipants(ctx context.Context, docs []*model.ParticipantDocument) error {
	if f.calls.Add(1) <= f.failures {
		return errors.New("connection reset")
	}
	return f.MemoryDatabase.UpsertParticipants(ctx, docs)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("unknown participant gets a fresh record", func(t *testing.T) {
		store := participants.NewStore(db.NewMemoryDatabase(), storeCfg, clockwork.NewFakeClockAt(now))

		record, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", record.ID)
		assert.False(t, record.HasTeleported())
		assert.True(t, record.TotalSpent.IsZero())
		assert.Zero(t, store.Dirty())
	})
	t.Run("update then persist", func(t *testing.T) {
		database := db.NewMemoryDatabase()
		store := participants.NewStore(database, storeCfg, clockwork.NewFakeClockAt(now))

		err := store.Update(ctx, "alice", func(r *types.ParticipantRecord) {
			r.LastTeleportAt = now
			r.TeleportCount++
			r.TotalSpent = r.TotalSpent.Add(decimal.NewFromInt(100))
		})
		require.NoError(t, err)
		assert.Equal(t, 1, store.Dirty())

		require.NoError(t, store.Persist(ctx))
		assert.Zero(t, store.Dirty())

		doc, err := database.GetParticipant(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(1), doc.TeleportCount)
		assert.Equal(t, now.UnixMilli(), doc.LastTeleportAt)

		// a second store reads back what the first one wrote
		other := participants.NewStore(database, storeCfg, clockwork.NewFakeClockAt(now))
		record, err := other.Get(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, record.TotalSpent.Equal(decimal.NewFromInt(100)))
		assert.True(t, record.LastTeleportAt.Equal(now))
	})
	t.Run("persist retries transient failures", func(t *testing.T) {
		database := &flakyDb{MemoryDatabase: db.NewMemoryDatabase(), failures: 2}
		store := participants.NewStore(database, storeCfg, clockwork.NewFakeClockAt(now))

		require.NoError(t, store.Update(ctx, "bob", func(r *types.ParticipantRecord) { r.TeleportCount = 4 }))
		require.NoError(t, store.Persist(ctx))
		assert.Equal(t, int32(3), database.calls.Load())
		assert.Zero(t, store.Dirty())
	})
	t.Run("failed persist keeps records dirty", func(t *testing.T) {
		database := &flakyDb{MemoryDatabase: db.NewMemoryDatabase(), failures: 100}
		store := participants.NewStore(database, storeCfg, clockwork.NewFakeClockAt(now))

		require.NoError(t, store.Update(ctx, "bob", func(r *types.ParticipantRecord) { r.TeleportCount = 4 }))
		require.Error(t, store.Persist(ctx))
		assert.Equal(t, 1, store.Dirty())
	})
	t.Run("persist without changes is a no-op", func(t *testing.T) {
		database := &flakyDb{MemoryDatabase: db.NewMemoryDatabase(), failures: 100}
		store := participants.NewStore(database, storeCfg, clockwork.NewFakeClockAt(now))

		require.NoError(t, store.Persist(ctx))
		assert.Zero(t, database.calls.Load())
	})
}

func TestStoreFlusher(t *testing.T) {
	ctx := t.Context()
	clock := clockwork.NewFakeClock()
	database := db.NewMemoryDatabase()
	store := participants.NewStore(database, storeCfg, clock)

	require.NoError(t, store.Update(ctx, "alice", func(r *types.ParticipantRecord) {
		r.TeleportCount++
	}))
	require.Equal(t, 1, store.Dirty())

	store.StartFlusher(ctx, time.Minute)
	t.Cleanup(store.StopFlusher)

	clock.BlockUntil(1)
	clock.Advance(time.Minute)

	require.Eventually(t, func() bool {
		doc, err := database.GetParticipant(ctx, "alice")
		return err == nil && doc.TeleportCount == 1
	}, time.Second, time.Millisecond)
	assert.Zero(t, store.Dirty())
}
