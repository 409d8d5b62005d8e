package db

import (
	"context"

	"github.com/rtpcraft/randomtp/internal/db/model"
)

type DbInterface interface {
	Ping(ctx context.Context) error
	// GetParticipant returns NotFoundError when the participant has no record.
	GetParticipant(ctx context.Context, id string) (*model.ParticipantDocument, error)
	UpsertParticipants(ctx context.Context, docs []*model.ParticipantDocument) error
}
