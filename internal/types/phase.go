package types

// Phase is the lifecycle position of a teleport request.
type Phase string

const (
	PhaseIdle          Phase = "IDLE"
	PhaseCooldownCheck Phase = "COOLDOWN_CHECK"
	PhaseFundsCheck    Phase = "FUNDS_CHECK"
	PhaseCounting      Phase = "COUNTING"
	PhaseSearching     Phase = "SEARCHING"
	PhaseRelocating    Phase = "RELOCATING"
	PhaseCompleted     Phase = "COMPLETED"
	PhaseCancelled     Phase = "CANCELLED"
	PhaseFailed        Phase = "FAILED"
)

func (p Phase) String() string {
	return string(p)
}

func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseCompleted, PhaseCancelled, PhaseFailed:
		return true
	default:
		return false
	}
}

// IsCancellable reports whether a cancellation in this phase is honored.
// Once relocation started the request always runs to completion.
func (p Phase) IsCancellable() bool {
	return !p.IsTerminal() && p != PhaseRelocating
}
