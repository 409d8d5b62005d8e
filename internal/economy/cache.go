package economy

import (
	"sync"

	"github.com/shopspring/decimal"
)

// balanceCache remembers the last balance read per participant until a
// monetary operation touches it or the active provider changes.
type balanceCache struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
}

func newBalanceCache() *balanceCache {
	return &balanceCache{balances: make(map[string]decimal.Decimal)}
}

func (c *balanceCache) get(participantID string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.balances[participantID]
	return v, ok
}

func (c *balanceCache) put(participantID string, v decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[participantID] = v
}

func (c *balanceCache) invalidate(participantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.balances, participantID)
}

func (c *balanceCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.balances)
}
