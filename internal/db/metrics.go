package db

import (
	"context"
	"time"

	"github.com/rtpcraft/randomtp/internal/db/model"
	"github.com/rtpcraft/randomtp/internal/observability/metrics"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) GetParticipant(ctx context.Context, id string) (result *model.ParticipantDocument, err error) {
	//nolint:errcheck
	d.run("GetParticipant", func() error {
		result, err = d.db.GetParticipant(ctx, id)
		return err
	})
	return
}

func (d *DbWithMetrics) UpsertParticipants(ctx context.Context, docs []*model.ParticipantDocument) error {
	return d.run("UpsertParticipants", func() error {
		return d.db.UpsertParticipants(ctx, docs)
	})
}

// run is private method that executes passed lambda function and send metrics data with spent time, method name
// and an error if any. It returns the error from the lambda function for convenience
func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	// a missing participant is an expected answer, not a failure
	metrics.RecordDbLatency(duration, method, err != nil && !IsNotFoundError(err))
	return err
}
