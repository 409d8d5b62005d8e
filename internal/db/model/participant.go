package model

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rtpcraft/randomtp/internal/types"
)

const ParticipantsCollection = "participants"

type ParticipantDocument struct {
	ID string `bson:"_id"`
	// LastTeleportAt is unix milliseconds, 0 when the participant never teleported.
	LastTeleportAt int64                `bson:"last_teleport_at"`
	TeleportCount  int64                `bson:"teleport_count"`
	TotalSpent     primitive.Decimal128 `bson:"total_spent"`
	UpdatedAt      int64                `bson:"updated_at"`
}

func FromParticipantRecord(r types.ParticipantRecord, now time.Time) (*ParticipantDocument, error) {
	spent, err := primitive.ParseDecimal128(r.TotalSpent.String())
	if err != nil {
		return nil, err
	}

	var last int64
	if !r.LastTeleportAt.IsZero() {
		last = r.LastTeleportAt.UnixMilli()
	}

	return &ParticipantDocument{
		ID:             r.ID,
		LastTeleportAt: last,
		TeleportCount:  r.TeleportCount,
		TotalSpent:     spent,
		UpdatedAt:      now.UnixMilli(),
	}, nil
}

func (d *ParticipantDocument) ToRecord() (types.ParticipantRecord, error) {
	spent, err := decimal.NewFromString(d.TotalSpent.String())
	if err != nil {
		return types.ParticipantRecord{}, err
	}

	r := types.ParticipantRecord{
		ID:            d.ID,
		TeleportCount: d.TeleportCount,
		TotalSpent:    spent,
	}
	if d.LastTeleportAt > 0 {
		r.LastTeleportAt = time.UnixMilli(d.LastTeleportAt).UTC()
	}
	return r, nil
}
