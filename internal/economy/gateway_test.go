package economy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFormatter(t *testing.T) *Formatter {
	f, err := NewFormatter("en", "$", "coins")
	require.NoError(t, err)
	return f
}

func newTestGateway(t *testing.T, providers ...Provider) *Gateway {
	g := NewGateway(time.Hour, testFormatter(t))
	for _, p := range providers {
		require.NoError(t, g.Register(p))
	}
	g.Reselect(t.Context())
	return g
}

// flakyProvider wraps a memory provider and fails or panics on demand.
type flakyProvider struct {
	*MemoryProvider
	fail        atomic.Bool
	panicOnCall atomic.Bool
	balanceHits atomic.Int32
}

func newFlakyProvider(name string, priority int) *flakyProvider {
	return &flakyProvider{MemoryProvider: NewMemoryProvider(name, priority, decimal.NewFromInt(100))}
}

func (f *flakyProvider) Withdraw(ctx context.Context, id string, amount decimal.Decimal) error {
	if f.panicOnCall.Load() {
		panic("backend exploded")
	}
	if f.fail.Load() {
		return errors.New("backend down")
	}
	return f.MemoryProvider.Withdraw(ctx, id, amount)
}

func (f *flakyProvider) Balance(ctx context.Context, id string) (decimal.Decimal, error) {
	f.balanceHits.Add(1)
	return f.MemoryProvider.Balance(ctx, id)
}

type formattingProvider struct {
	*MemoryProvider
}

func (formattingProvider) Format(amount decimal.Decimal) string {
	return amount.StringFixed(0) + " gems"
}

func (formattingProvider) CurrencyName() string {
	return "gems"
}

func (p formattingProvider) Descriptor() Descriptor {
	d := p.MemoryProvider.Descriptor()
	d.Capabilities = append(d.Capabilities, CapabilityCurrencyFormatting)
	return d
}

func TestGateway_Selection(t *testing.T) {
	t.Run("highest priority wins", func(t *testing.T) {
		low := NewMemoryProvider("low", 1, decimal.Zero)
		high := NewMemoryProvider("high", 10, decimal.Zero)
		g := newTestGateway(t, low, high)

		active, ok := g.Active()
		require.True(t, ok)
		assert.Equal(t, "high", active.Name)
	})
	t.Run("ties go to registration order", func(t *testing.T) {
		first := NewMemoryProvider("first", 5, decimal.Zero)
		second := NewMemoryProvider("second", 5, decimal.Zero)
		g := newTestGateway(t, first, second)

		active, _ := g.Active()
		assert.Equal(t, "first", active.Name)
	})
	t.Run("unavailable providers are skipped", func(t *testing.T) {
		primary := NewMemoryProvider("primary", 10, decimal.Zero)
		secondary := NewMemoryProvider("secondary", 5, decimal.Zero)
		primary.SetAvailable(false)
		g := newTestGateway(t, primary, secondary)

		active, _ := g.Active()
		assert.Equal(t, "secondary", active.Name)

		primary.SetAvailable(true)
		g.Reselect(t.Context())
		active, _ = g.Active()
		assert.Equal(t, "primary", active.Name)
	})
	t.Run("invalid descriptors are rejected", func(t *testing.T) {
		g := NewGateway(time.Hour, testFormatter(t))

		bad := NewMemoryProvider("bad", 1, decimal.Zero)
		bad.desc.Version = "one"
		require.Error(t, g.Register(bad))

		require.NoError(t, g.Register(NewMemoryProvider("dup", 1, decimal.Zero)))
		require.Error(t, g.Register(NewMemoryProvider("dup", 2, decimal.Zero)))
	})
}

func TestGateway_Disabled(t *testing.T) {
	p := NewMemoryProvider("only", 1, decimal.Zero)
	p.SetAvailable(false)
	g := newTestGateway(t, p)

	ctx := t.Context()
	cost := decimal.NewFromInt(100)

	assert.False(t, g.Enabled())
	assert.True(t, g.HasFunds(ctx, "p1", cost))
	assert.True(t, g.Debit(ctx, "p1", cost))
	assert.True(t, g.Credit(ctx, "p1", cost))
	assert.True(t, g.Balance(ctx, "p1").IsZero())
	assert.Equal(t, "100", g.Format(cost))
	assert.False(t, g.SupportsFeature(CapabilityBulkOperations))
}

func TestGateway_RefundGoesToChargingProvider(t *testing.T) {
	ctx := t.Context()
	primary := NewMemoryProvider("primary", 2, decimal.NewFromInt(150))
	backup := NewMemoryProvider("backup", 1, decimal.NewFromInt(150))
	g := newTestGateway(t, primary, backup)

	cost := decimal.NewFromInt(100)
	receipt, ok := g.Charge(ctx, "p1", cost)
	require.True(t, ok)
	assert.Equal(t, "primary", receipt.Provider)
	assert.True(t, receipt.Amount.Equal(cost))

	primary.SetAvailable(false)
	g.Reselect(ctx)
	active, ok := g.Active()
	require.True(t, ok)
	require.Equal(t, "backup", active.Name)

	assert.True(t, g.Refund(ctx, "p1", receipt))

	balance, err := primary.Balance(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(150)))
	balance, err = backup.Balance(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(150)))

	t.Run("empty receipt is a no-op", func(t *testing.T) {
		assert.True(t, g.Refund(ctx, "p1", Receipt{}))
	})
	t.Run("unknown provider fails", func(t *testing.T) {
		assert.False(t, g.Refund(ctx, "p1", Receipt{Provider: "gone", Amount: cost}))
	})
}

func TestGateway_Operations(t *testing.T) {
	ctx := t.Context()
	p := NewMemoryProvider("mem", 1, decimal.NewFromInt(150))
	g := newTestGateway(t, p)

	cost := decimal.NewFromInt(100)
	assert.True(t, g.HasFunds(ctx, "p1", cost))
	assert.True(t, g.Debit(ctx, "p1", cost))
	assert.True(t, decimal.NewFromInt(50).Equal(g.Balance(ctx, "p1")))

	assert.False(t, g.HasFunds(ctx, "p1", cost))
	assert.False(t, g.Debit(ctx, "p1", cost), "failed withdraw must report false")
	assert.True(t, decimal.NewFromInt(50).Equal(g.Balance(ctx, "p1")))

	assert.True(t, g.Credit(ctx, "p1", cost))
	assert.True(t, decimal.NewFromInt(150).Equal(g.Balance(ctx, "p1")))

	// zero amounts never reach the provider
	p.SetAvailable(true)
	assert.True(t, g.Debit(ctx, "p2", decimal.Zero))
	assert.True(t, g.SupportsFeature(CapabilityBulkOperations))
	assert.False(t, g.SupportsFeature(CapabilityLoanSystem))
}

func TestGateway_BalanceCache(t *testing.T) {
	ctx := t.Context()
	p := newFlakyProvider("flaky", 1)
	g := newTestGateway(t, p)

	g.Balance(ctx, "p1")
	g.Balance(ctx, "p1")
	assert.Equal(t, int32(1), p.balanceHits.Load())

	require.True(t, g.Debit(ctx, "p1", decimal.NewFromInt(10)))
	assert.True(t, decimal.NewFromInt(90).Equal(g.Balance(ctx, "p1")))
	assert.Equal(t, int32(2), p.balanceHits.Load())

	// a provider switch drops every cached balance
	other := NewMemoryProvider("other", 0, decimal.Zero)
	require.NoError(t, g.Register(other))
	require.NoError(t, g.Switch(ctx, "other"))
	assert.True(t, g.Balance(ctx, "p1").IsZero())

	require.NoError(t, g.Switch(ctx, "flaky"))
	assert.True(t, decimal.NewFromInt(90).Equal(g.Balance(ctx, "p1")))
	assert.Equal(t, int32(3), p.balanceHits.Load())
}

func TestGateway_Failover(t *testing.T) {
	ctx := t.Context()
	primary := newFlakyProvider("primary", 10)
	secondary := newFlakyProvider("secondary", 5)
	g := newTestGateway(t, primary, secondary)

	t.Run("error while still available keeps provider", func(t *testing.T) {
		primary.fail.Store(true)
		defer primary.fail.Store(false)

		assert.False(t, g.Debit(ctx, "p1", decimal.NewFromInt(10)))
		active, _ := g.Active()
		assert.Equal(t, "primary", active.Name)
	})
	t.Run("error with unavailable provider fails over", func(t *testing.T) {
		primary.fail.Store(true)
		primary.SetAvailable(false)

		assert.False(t, g.Debit(ctx, "p1", decimal.NewFromInt(10)))
		active, _ := g.Active()
		assert.Equal(t, "secondary", active.Name)

		assert.True(t, g.Debit(ctx, "p1", decimal.NewFromInt(10)))
		assert.True(t, decimal.NewFromInt(90).Equal(g.Balance(ctx, "p1")))
	})
	t.Run("panics are contained", func(t *testing.T) {
		secondary.panicOnCall.Store(true)
		assert.NotPanics(t, func() {
			assert.False(t, g.Debit(ctx, "p1", decimal.NewFromInt(10)))
		})
	})
	t.Run("switch to unavailable provider is refused", func(t *testing.T) {
		require.Error(t, g.Switch(ctx, "primary"))
		require.Error(t, g.Switch(ctx, "missing"))
	})
}

func TestGateway_Format(t *testing.T) {
	plain := NewMemoryProvider("plain", 1, decimal.Zero)
	g := newTestGateway(t, plain)

	assert.Equal(t, "$100.00", g.Format(decimal.NewFromInt(100)))
	assert.Contains(t, g.Format(decimal.RequireFromString("1234.5")), "234.50")
	assert.Equal(t, "coins", g.CurrencyName())

	fancy := formattingProvider{NewMemoryProvider("fancy", 5, decimal.Zero)}
	require.NoError(t, g.Register(fancy))
	g.Reselect(t.Context())

	assert.Equal(t, "100 gems", g.Format(decimal.NewFromInt(100)))
	assert.Equal(t, "gems", g.CurrencyName())
	assert.True(t, g.SupportsFeature(CapabilityCurrencyFormatting))
}

func TestGateway_Providers(t *testing.T) {
	a := NewMemoryProvider("a", 1, decimal.Zero)
	b := NewMemoryProvider("b", 2, decimal.Zero)
	b.SetAvailable(false)
	g := newTestGateway(t, a, b)

	statuses := g.Providers(t.Context())
	require.Len(t, statuses, 2)
	assert.Equal(t, ProviderStatus{
		Name: "a", Version: "1.0.0", Priority: 1,
		Capabilities: []Capability{CapabilityBulkOperations},
		Available:    true, Active: true,
	}, statuses[0])
	assert.False(t, statuses[1].Available)
	assert.False(t, statuses[1].Active)
}

func TestGateway_ConcurrentSwitching(t *testing.T) {
	ctx := t.Context()
	a := NewMemoryProvider("a", 1, decimal.NewFromInt(1_000_000))
	b := NewMemoryProvider("b", 1, decimal.NewFromInt(1_000_000))
	g := newTestGateway(t, a, b)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 200 {
				if i == 0 && j%10 == 0 {
					_ = g.Switch(ctx, []string{"a", "b"}[j/10%2])
					continue
				}
				assert.True(t, g.Debit(ctx, "p", decimal.NewFromInt(1)))
			}
		}()
	}
	wg.Wait()

	spentA := decimal.NewFromInt(1_000_000).Sub(mustBalance(t, a, "p"))
	spentB := decimal.NewFromInt(1_000_000).Sub(mustBalance(t, b, "p"))
	// every successful debit landed on exactly one provider
	assert.True(t, decimal.NewFromInt(7*200+180).Equal(spentA.Add(spentB)), "spent %s + %s", spentA, spentB)
}

func mustBalance(t *testing.T, p Provider, id string) decimal.Decimal {
	v, err := p.Balance(t.Context(), id)
	require.NoError(t, err)
	return v
}

func TestParseCapability(t *testing.T) {
	c, err := ParseCapability("TRANSACTION_LOGGING")
	require.NoError(t, err)
	assert.Equal(t, CapabilityTransactionLogging, c)

	_, err = ParseCapability("teleportation")
	require.Error(t, err)
}
