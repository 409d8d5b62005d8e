package economy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rtpcraft/randomtp/internal/observability/metrics"
	"github.com/rtpcraft/randomtp/internal/utils/poller"
)

type entry struct {
	provider  Provider
	formatter CurrencyFormatter
	stats     StatisticsReporter
}

// ProviderStatus is the diagnostic view of one registered provider.
type ProviderStatus struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Priority     int          `json:"priority"`
	Capabilities []Capability `json:"capabilities"`
	Available    bool         `json:"available"`
	Active       bool         `json:"active"`
}

// Gateway routes monetary operations to the highest priority available
// provider and fails over when it goes away. With no provider available every
// operation succeeds without moving money.
//
// Provider failures never escape the gateway: they are logged and reported as
// a false result.
type Gateway struct {
	formatter *Formatter
	interval  time.Duration

	mu      sync.RWMutex
	entries []*entry
	active  *entry

	cache  *balanceCache
	poller *poller.Poller
}

func NewGateway(checkInterval time.Duration, formatter *Formatter) *Gateway {
	return &Gateway{
		formatter: formatter,
		interval:  checkInterval,
		cache:     newBalanceCache(),
	}
}

// Register adds a provider. Selection only happens on Reselect, Start or a
// provider failure.
func (g *Gateway) Register(p Provider) error {
	desc := p.Descriptor()
	if err := desc.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, e := range g.entries {
		if e.provider.Descriptor().Name == desc.Name {
			return fmt.Errorf("provider %s already registered", desc.Name)
		}
	}

	e := &entry{
		provider: newProviderWithMetrics(p),
	}
	if f, ok := p.(CurrencyFormatter); ok && desc.Supports(CapabilityCurrencyFormatting) {
		e.formatter = f
	}
	if r, ok := p.(StatisticsReporter); ok && desc.Supports(CapabilityEconomyStatistics) {
		e.stats = r
	}
	g.entries = append(g.entries, e)
	return nil
}

// Start selects a provider and keeps re-checking availability until ctx is
// done or Stop is called.
func (g *Gateway) Start(ctx context.Context) {
	g.Reselect(ctx)

	g.poller = poller.NewPoller(
		"economy-provider",
		g.interval,
		metrics.RecordPollerDuration("economy-provider", func(ctx context.Context) error {
			g.Reselect(ctx)
			return nil
		}),
	)
	go g.poller.Start(ctx)
}

func (g *Gateway) Stop() {
	if g.poller != nil {
		g.poller.Stop()
	}
}

// Reselect probes every provider and activates the best available one:
// highest priority first, registration order breaking ties.
func (g *Gateway) Reselect(ctx context.Context) {
	g.mu.RLock()
	entries := append([]*entry(nil), g.entries...)
	g.mu.RUnlock()

	var best *entry
	for _, e := range entries {
		if !g.available(ctx, e) {
			continue
		}
		if best == nil || e.provider.Descriptor().Priority > best.provider.Descriptor().Priority {
			best = e
		}
	}

	g.activate(ctx, best)
}

// Switch forces the named provider active if it is available.
func (g *Gateway) Switch(ctx context.Context, name string) error {
	target := g.lookup(name)
	if target == nil {
		return fmt.Errorf("provider %s is not registered", name)
	}
	if !g.available(ctx, target) {
		return fmt.Errorf("provider %s is not available", name)
	}

	g.activate(ctx, target)
	return nil
}

func (g *Gateway) activate(ctx context.Context, e *entry) {
	g.mu.Lock()
	previous := g.active
	g.active = e
	g.mu.Unlock()

	if previous == e {
		return
	}

	g.cache.clear()

	log := log.Ctx(ctx)
	if e == nil {
		log.Warn().Msg("No economy provider available, monetary operations are disabled")
		metrics.RecordEconomyProviderSwitch("none")
		return
	}

	desc := e.provider.Descriptor()
	log.Info().
		Str("provider", desc.Name).
		Str("version", desc.Version).
		Int("priority", desc.Priority).
		Msg("Economy provider activated")
	metrics.RecordEconomyProviderSwitch(desc.Name)
}

func (g *Gateway) lookup(name string) *entry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, e := range g.entries {
		if e.provider.Descriptor().Name == name {
			return e
		}
	}
	return nil
}

func (g *Gateway) current() *entry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active
}

func (g *Gateway) Enabled() bool {
	return g.current() != nil
}

// Active returns the descriptor of the active provider.
func (g *Gateway) Active() (Descriptor, bool) {
	e := g.current()
	if e == nil {
		return Descriptor{}, false
	}
	return e.provider.Descriptor(), true
}

func (g *Gateway) SupportsFeature(c Capability) bool {
	e := g.current()
	return e != nil && e.provider.Descriptor().Supports(c)
}

func (g *Gateway) HasFunds(ctx context.Context, participantID string, amount decimal.Decimal) bool {
	e := g.current()
	if e == nil || amount.Sign() <= 0 {
		return true
	}

	ok, err := guard(ctx, g, e, "has", func() (bool, error) {
		return e.provider.Has(ctx, participantID, amount)
	})
	return err == nil && ok
}

// Receipt records which provider took a charge. A zero Receipt means nothing
// was charged.
type Receipt struct {
	Provider string
	Amount   decimal.Decimal
}

// Charge withdraws amount from the active provider. It reports false when
// nothing was charged.
func (g *Gateway) Charge(ctx context.Context, participantID string, amount decimal.Decimal) (Receipt, bool) {
	e := g.current()
	if e == nil || amount.Sign() <= 0 {
		return Receipt{}, true
	}

	_, err := guard(ctx, g, e, "withdraw", func() (struct{}, error) {
		return struct{}{}, e.provider.Withdraw(ctx, participantID, amount)
	})
	g.cache.invalidate(participantID)
	if err != nil {
		return Receipt{}, false
	}
	return Receipt{Provider: e.provider.Descriptor().Name, Amount: amount}, true
}

// Debit withdraws amount. It reports false when nothing was charged.
func (g *Gateway) Debit(ctx context.Context, participantID string, amount decimal.Decimal) bool {
	_, ok := g.Charge(ctx, participantID, amount)
	return ok
}

// Refund deposits a charge back into the provider that took it, even when
// another provider became active since.
func (g *Gateway) Refund(ctx context.Context, participantID string, r Receipt) bool {
	if r.Provider == "" || r.Amount.Sign() <= 0 {
		return true
	}

	e := g.lookup(r.Provider)
	if e == nil {
		log.Ctx(ctx).Error().Str("provider", r.Provider).Msg("Refund provider is not registered")
		return false
	}

	_, err := guard(ctx, g, e, "deposit", func() (struct{}, error) {
		return struct{}{}, e.provider.Deposit(ctx, participantID, r.Amount)
	})
	g.cache.invalidate(participantID)
	return err == nil
}

func (g *Gateway) Credit(ctx context.Context, participantID string, amount decimal.Decimal) bool {
	e := g.current()
	if e == nil || amount.Sign() <= 0 {
		return true
	}

	_, err := guard(ctx, g, e, "deposit", func() (struct{}, error) {
		return struct{}{}, e.provider.Deposit(ctx, participantID, amount)
	})
	g.cache.invalidate(participantID)
	return err == nil
}

// Balance returns the cached or freshly read balance, zero on failure.
func (g *Gateway) Balance(ctx context.Context, participantID string) decimal.Decimal {
	e := g.current()
	if e == nil {
		return decimal.Zero
	}

	if v, ok := g.cache.get(participantID); ok {
		return v
	}

	v, err := guard(ctx, g, e, "balance", func() (decimal.Decimal, error) {
		return e.provider.Balance(ctx, participantID)
	})
	if err != nil {
		return decimal.Zero
	}

	// only cache reads from the provider that is still active
	if g.current() == e {
		g.cache.put(participantID, v)
	}
	return v
}

func (g *Gateway) Format(amount decimal.Decimal) string {
	e := g.current()
	switch {
	case e == nil:
		return amount.String()
	case e.formatter != nil:
		return e.formatter.Format(amount)
	default:
		return g.formatter.Format(amount)
	}
}

func (g *Gateway) CurrencyName() string {
	e := g.current()
	if e != nil && e.formatter != nil {
		return e.formatter.CurrencyName()
	}
	return g.formatter.CurrencyName()
}

// Statistics returns the active provider's statistics. The second return
// value is false when it offers none or the call failed.
func (g *Gateway) Statistics(ctx context.Context) (map[string]decimal.Decimal, bool) {
	e := g.current()
	if e == nil || e.stats == nil {
		return nil, false
	}

	stats, err := guard(ctx, g, e, "statistics", func() (map[string]decimal.Decimal, error) {
		return e.stats.Statistics(ctx)
	})
	return stats, err == nil
}

// Providers reports every registered provider with a fresh availability probe.
func (g *Gateway) Providers(ctx context.Context) []ProviderStatus {
	g.mu.RLock()
	entries := append([]*entry(nil), g.entries...)
	active := g.active
	g.mu.RUnlock()

	statuses := make([]ProviderStatus, 0, len(entries))
	for _, e := range entries {
		desc := e.provider.Descriptor()
		statuses = append(statuses, ProviderStatus{
			Name:         desc.Name,
			Version:      desc.Version,
			Priority:     desc.Priority,
			Capabilities: desc.Capabilities,
			Available:    g.available(ctx, e),
			Active:       e == active,
		})
	}
	return statuses
}

func (g *Gateway) available(ctx context.Context, e *entry) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).Error().
				Str("provider", e.provider.Descriptor().Name).
				Interface("panic", r).
				Msg("Economy provider availability probe panicked")
			ok = false
		}
	}()
	return e.provider.Available(ctx)
}

// guard runs a provider call, turning panics into errors. A failing provider
// that no longer reports itself available triggers an immediate reselection.
func guard[T any](ctx context.Context, g *Gateway, e *entry, method string, f func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panicked: %v", r)
		}
		if err == nil {
			return
		}

		log.Ctx(ctx).Error().
			Err(err).
			Str("provider", e.provider.Descriptor().Name).
			Str("method", method).
			Msg("Economy provider call failed")

		if !g.available(ctx, e) {
			g.Reselect(ctx)
		}
	}()

	return f()
}
