//go:build integration

package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtpcraft/randomtp/internal/db"
	"github.com/rtpcraft/randomtp/internal/db/model"
	"github.com/rtpcraft/randomtp/internal/types"
)

func TestParticipants(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("not found", func(t *testing.T) {
		t.Cleanup(func() { resetDatabase(t) })

		_, err := testDB.GetParticipant(ctx, "missing")
		require.Error(t, err)
		assert.True(t, db.IsNotFoundError(err))
	})
	t.Run("upsert then update", func(t *testing.T) {
		t.Cleanup(func() { resetDatabase(t) })

		record := types.NewParticipantRecord("alice")
		record.LastTeleportAt = now
		record.TeleportCount = 1
		record.TotalSpent = decimal.RequireFromString("100.5")

		doc, err := model.FromParticipantRecord(record, now)
		require.NoError(t, err)
		require.NoError(t, testDB.UpsertParticipants(ctx, []*model.ParticipantDocument{doc}))

		record.TeleportCount = 2
		record.TotalSpent = decimal.RequireFromString("180.5")
		doc, err = model.FromParticipantRecord(record, now)
		require.NoError(t, err)
		require.NoError(t, testDB.UpsertParticipants(ctx, []*model.ParticipantDocument{doc}))

		stored, err := testDB.GetParticipant(ctx, "alice")
		require.NoError(t, err)

		got, err := stored.ToRecord()
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.TeleportCount)
		assert.True(t, got.TotalSpent.Equal(decimal.RequireFromString("180.5")))
		assert.True(t, got.LastTeleportAt.Equal(now))
	})
	t.Run("empty batch", func(t *testing.T) {
		require.NoError(t, testDB.UpsertParticipants(ctx, nil))
	})
}
