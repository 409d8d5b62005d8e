package economy

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

const memoryProviderVersion = "1.0.0"

// MemoryProvider keeps balances in process. Accounts are opened lazily with
// the starting balance.
type MemoryProvider struct {
	desc     Descriptor
	starting decimal.Decimal
	down     atomic.Bool

	mu       sync.Mutex
	balances map[string]decimal.Decimal
}

func NewMemoryProvider(name string, priority int, startingBalance decimal.Decimal) *MemoryProvider {
	return &MemoryProvider{
		desc: Descriptor{
			Name:         name,
			Version:      memoryProviderVersion,
			Priority:     priority,
			Capabilities: []Capability{CapabilityBulkOperations},
		},
		starting: startingBalance,
		balances: make(map[string]decimal.Decimal),
	}
}

func (m *MemoryProvider) Descriptor() Descriptor {
	return m.desc
}

func (m *MemoryProvider) Available(context.Context) bool {
	return !m.down.Load()
}

// SetAvailable toggles the availability probe.
func (m *MemoryProvider) SetAvailable(available bool) {
	m.down.Store(!available)
}

func (m *MemoryProvider) SetBalance(participantID string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[participantID] = amount
}

func (m *MemoryProvider) Has(_ context.Context, participantID string, amount decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(participantID).GreaterThanOrEqual(amount), nil
}

func (m *MemoryProvider) Withdraw(_ context.Context, participantID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	balance := m.balanceLocked(participantID)
	if balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	m.balances[participantID] = balance.Sub(amount)
	return nil
}

func (m *MemoryProvider) Deposit(_ context.Context, participantID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[participantID] = m.balanceLocked(participantID).Add(amount)
	return nil
}

func (m *MemoryProvider) Balance(_ context.Context, participantID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(participantID), nil
}

// Deposits credits every listed participant at once.
func (m *MemoryProvider) Deposits(amount decimal.Decimal, participantIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range participantIDs {
		m.balances[id] = m.balanceLocked(id).Add(amount)
	}
}

func (m *MemoryProvider) balanceLocked(participantID string) decimal.Decimal {
	if v, ok := m.balances[participantID]; ok {
		return v
	}
	m.balances[participantID] = m.starting
	return m.starting
}
