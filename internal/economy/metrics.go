package economy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rtpcraft/randomtp/internal/observability/metrics"
)

type providerWithMetrics struct {
	provider Provider
	name     string
}

func newProviderWithMetrics(p Provider) *providerWithMetrics {
	return &providerWithMetrics{
		provider: p,
		name:     p.Descriptor().Name,
	}
}

func (p *providerWithMetrics) Descriptor() Descriptor {
	return p.provider.Descriptor()
}

func (p *providerWithMetrics) Available(ctx context.Context) (ok bool) {
	//nolint:errcheck
	runWithMetrics(p.name, "Available", func() (bool, error) {
		ok = p.provider.Available(ctx)
		return ok, nil
	})
	return
}

func (p *providerWithMetrics) Has(ctx context.Context, participantID string, amount decimal.Decimal) (bool, error) {
	return runWithMetrics(p.name, "Has", func() (bool, error) {
		return p.provider.Has(ctx, participantID, amount)
	})
}

func (p *providerWithMetrics) Withdraw(ctx context.Context, participantID string, amount decimal.Decimal) error {
	_, err := runWithMetrics(p.name, "Withdraw", func() (struct{}, error) {
		return struct{}{}, p.provider.Withdraw(ctx, participantID, amount)
	})
	return err
}

func (p *providerWithMetrics) Deposit(ctx context.Context, participantID string, amount decimal.Decimal) error {
	_, err := runWithMetrics(p.name, "Deposit", func() (struct{}, error) {
		return struct{}{}, p.provider.Deposit(ctx, participantID, amount)
	})
	return err
}

func (p *providerWithMetrics) Balance(ctx context.Context, participantID string) (decimal.Decimal, error) {
	return runWithMetrics(p.name, "Balance", func() (decimal.Decimal, error) {
		return p.provider.Balance(ctx, participantID)
	})
}

func runWithMetrics[T any](provider, method string, f func() (T, error)) (T, error) {
	startTime := time.Now()
	result, err := f()
	duration := time.Since(startTime)

	metrics.RecordEconomyProviderLatency(duration, provider, method, err != nil)
	return result, err
}
