package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/rtpcraft/randomtp/internal/types"
)

var (
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrOffline            = errors.New("participant is offline")
)

// Resistance is a temporary damage-resistance effect.
type Resistance struct {
	Level     int
	ExpiresAt time.Time
}

type participant struct {
	position   types.Location
	online     bool
	alive      bool
	privileges map[string]struct{}
	resistance Resistance
}

// Roster is the in-process view of connected participants: where they are,
// whether they are alive and which privileges they hold.
type Roster struct {
	clock clockwork.Clock

	mu           sync.RWMutex
	participants map[string]*participant
}

func NewRoster(clock clockwork.Clock) *Roster {
	return &Roster{
		clock:        clock,
		participants: make(map[string]*participant),
	}
}

// Join marks id online at pos. Privileges survive a rejoin.
func (r *Roster) Join(id string, pos types.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		p = &participant{privileges: make(map[string]struct{})}
		r.participants[id] = p
	}
	p.position = pos
	p.online = true
	p.alive = true
}

func (r *Roster) Quit(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.participants[id]; ok {
		p.online = false
	}
}

// SetPosition moves id and returns where it was before.
func (r *Roster) SetPosition(id string, pos types.Location) (types.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return types.Location{}, ErrUnknownParticipant
	}
	prev := p.position
	p.position = pos
	return prev, nil
}

func (r *Roster) SetAlive(id string, alive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return ErrUnknownParticipant
	}
	p.alive = alive
	return nil
}

func (r *Roster) Grant(id string, privileges ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		p = &participant{privileges: make(map[string]struct{})}
		r.participants[id] = p
	}
	for _, priv := range privileges {
		p.privileges[priv] = struct{}{}
	}
}

func (r *Roster) Revoke(id string, privileges ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.participants[id]; ok {
		for _, priv := range privileges {
			delete(p.privileges, priv)
		}
	}
}

func (r *Roster) HasPrivilege(id, privilege string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[id]
	if !ok {
		return false
	}
	_, held := p.privileges[privilege]
	return held
}

func (r *Roster) Position(id string) (types.Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[id]
	if !ok {
		return types.Location{}, false
	}
	return p.position, true
}

func (r *Roster) IsOnline(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[id]
	return ok && p.online
}

func (r *Roster) IsAlive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[id]
	return ok && p.alive
}

// Relocate moves an online participant to loc.
func (r *Roster) Relocate(ctx context.Context, id string, loc types.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return ErrUnknownParticipant
	}
	if !p.online {
		return fmt.Errorf("cannot relocate %s: %w", id, ErrOffline)
	}
	p.position = loc

	log.Ctx(ctx).Debug().
		Str("participant_id", id).
		Stringer("destination", loc).
		Msg("Participant relocated")
	return nil
}

func (r *Roster) GrantResistance(id string, duration time.Duration, level int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.participants[id]; ok {
		p.resistance = Resistance{Level: level, ExpiresAt: r.clock.Now().Add(duration)}
	}
}

// ActiveResistance returns the resistance effect of id if it has not expired.
func (r *Roster) ActiveResistance(id string) (Resistance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[id]
	if !ok || p.resistance.Level == 0 || !r.clock.Now().Before(p.resistance.ExpiresAt) {
		return Resistance{}, false
	}
	return p.resistance, true
}
