package cooldown

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rtpcraft/randomtp/internal/config"
)

// Tier is a privilege level, ordered from lowest to highest.
type Tier int

const (
	TierBase Tier = iota
	TierVIP
	TierVIPPlus
)

var tierNames = [...]string{"base", "vip", "vip-plus"}

func (t Tier) String() string {
	if t < TierBase || t > TierVIPPlus {
		return "unknown"
	}
	return tierNames[t]
}

// Tiers lists every tier from lowest to highest.
func Tiers() []Tier {
	return []Tier{TierBase, TierVIP, TierVIPPlus}
}

type PrivilegeResolver interface {
	HasPrivilege(participantID, privilege string) bool
}

type tierSettings struct {
	privilege string
	cooldown  time.Duration
	cost      decimal.Decimal
}

// Policy resolves tiers from privileges and holds the cooldown and cost of
// each tier.
type Policy struct {
	tiers           [3]tierSettings
	exemptPrivilege string
	resolver        PrivilegeResolver
}

func NewPolicy(cfg *config.TiersConfig, resolver PrivilegeResolver) *Policy {
	settings := func(tc config.TierConfig) tierSettings {
		return tierSettings{
			privilege: tc.Privilege,
			cooldown:  tc.Cooldown,
			cost:      decimal.NewFromFloat(tc.Cost),
		}
	}

	return &Policy{
		tiers: [3]tierSettings{
			TierBase:    settings(cfg.Base),
			TierVIP:     settings(cfg.VIP),
			TierVIPPlus: settings(cfg.VIPPlus),
		},
		exemptPrivilege: cfg.ExemptPrivilege,
		resolver:        resolver,
	}
}

// Resolve returns the highest tier the participant holds. Participants
// without any tier privilege fall back to base.
func (p *Policy) Resolve(participantID string) Tier {
	for _, tier := range []Tier{TierVIPPlus, TierVIP} {
		if p.resolver.HasPrivilege(participantID, p.tiers[tier].privilege) {
			return tier
		}
	}
	return TierBase
}

func (p *Policy) Cooldown(tier Tier) time.Duration {
	return p.tiers[tier].cooldown
}

func (p *Policy) Cost(tier Tier) decimal.Decimal {
	return p.tiers[tier].cost
}

func (p *Policy) IsExempt(participantID string) bool {
	return p.exemptPrivilege != "" && p.resolver.HasPrivilege(participantID, p.exemptPrivilege)
}

func (p *Policy) CooldownFor(participantID string) time.Duration {
	return p.Cooldown(p.Resolve(participantID))
}

// CostFor is the tier cost of the participant, zero when exempt.
func (p *Policy) CostFor(participantID string) decimal.Decimal {
	if p.IsExempt(participantID) {
		return decimal.Zero
	}
	return p.Cost(p.Resolve(participantID))
}

// Remaining returns how long the participant still has to wait. A zero
// lastTeleport means the participant never teleported.
func Remaining(cooldown time.Duration, lastTeleport, now time.Time) time.Duration {
	if lastTeleport.IsZero() {
		return 0
	}
	remaining := cooldown - now.Sub(lastTeleport)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Seconds rounds a remaining duration up to whole seconds.
func Seconds(d time.Duration) int64 {
	return int64(math.Ceil(d.Seconds()))
}
