package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParticipantRecord is the persistent teleport history of one participant.
type ParticipantRecord struct {
	ID string
	// LastTeleportAt is zero when the participant never teleported.
	LastTeleportAt time.Time
	TeleportCount  int64
	TotalSpent     decimal.Decimal
}

func NewParticipantRecord(id string) ParticipantRecord {
	return ParticipantRecord{
		ID:         id,
		TotalSpent: decimal.Zero,
	}
}

func (r ParticipantRecord) HasTeleported() bool {
	return !r.LastTeleportAt.IsZero()
}
