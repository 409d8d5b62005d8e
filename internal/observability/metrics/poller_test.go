package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPollerDuration(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	f := RecordPollerDuration("test-poller", func(ctx context.Context) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})

	require.NoError(t, f(t.Context()))
	require.ErrorIs(t, f(t.Context()), boom)
	assert.Equal(t, 2, calls)

	// one series per status label
	assert.Equal(t, 2, testutil.CollectAndCount(pollerDurationHistogram, "poller_duration_seconds"))
}

func TestRecordTeleportOutcome(t *testing.T) {
	before := testutil.ToFloat64(teleportOutcomeCounter.WithLabelValues("FAILED", "NO_SAFE_LOCATION"))
	RecordTeleportOutcome("FAILED", "NO_SAFE_LOCATION")
	after := testutil.ToFloat64(teleportOutcomeCounter.WithLabelValues("FAILED", "NO_SAFE_LOCATION"))
	assert.InDelta(t, 1, after-before, 0.0001)
}
