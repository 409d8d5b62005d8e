package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rtpcraft/randomtp/internal/cooldown"
	"github.com/rtpcraft/randomtp/internal/economy"
	"github.com/rtpcraft/randomtp/internal/types"
)

type RequestOptions struct {
	// Free skips the charge.
	Free bool
	// BypassCooldown skips the cooldown check.
	BypassCooldown bool
}

// Result is the final state of a request.
type Result struct {
	RequestID   string
	Phase       types.Phase
	Err         error
	Cause       types.CancelCause
	Destination *types.Location
	// Charged is what the participant paid in the end, zero after a refund.
	Charged  decimal.Decimal
	Refunded bool
}

// Ticket tracks an accepted request.
type Ticket struct {
	req *teleportRequest
}

func (t *Ticket) RequestID() string {
	return t.req.id
}

// Done is closed once the request reached a terminal phase.
func (t *Ticket) Done() <-chan struct{} {
	return t.req.done
}

// Result returns the final result. Before Done is closed it only carries the
// current phase.
func (t *Ticket) Result() Result {
	t.req.mu.Lock()
	defer t.req.mu.Unlock()

	if t.req.phase.IsTerminal() {
		return t.req.result
	}
	return Result{RequestID: t.req.id, Phase: t.req.phase}
}

// RequestStatus is a snapshot of a pending request.
type RequestStatus struct {
	RequestID     string          `json:"request_id"`
	ParticipantID string          `json:"participant_id"`
	Phase         types.Phase     `json:"phase"`
	ReservedCost  decimal.Decimal `json:"reserved_cost"`
	StartedAt     time.Time       `json:"started_at"`
}

type teleportRequest struct {
	id            string
	participantID string
	opts          RequestOptions
	startedAt     time.Time
	done          chan struct{}

	mu           sync.Mutex
	phase        types.Phase
	reservedCost decimal.Decimal
	receipt      economy.Receipt
	stopSearch   func()
	result       Result
}

func (r *teleportRequest) status() RequestStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RequestStatus{
		RequestID:     r.id,
		ParticipantID: r.participantID,
		Phase:         r.phase,
		ReservedCost:  r.reservedCost,
		StartedAt:     r.startedAt,
	}
}

// advance moves the request from one phase to the next. It fails when the
// request left the expected phase meanwhile.
func (r *teleportRequest) advance(from, to types.Phase) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != from {
		return false
	}
	r.phase = to
	return true
}

// CooldownError carries the wait left before the next teleport.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("teleport on cooldown for %d more seconds", e.Seconds())
}

func (e *CooldownError) Seconds() int64 {
	return cooldown.Seconds(e.Remaining)
}

// FundsError carries the cost the participant could not afford.
type FundsError struct {
	Cost decimal.Decimal
}

func (e *FundsError) Error() string {
	return fmt.Sprintf("insufficient funds for teleport costing %s", e.Cost)
}
