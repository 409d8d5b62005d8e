package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rtpcraft/randomtp/internal/db/model"
)

func (db *Database) GetParticipant(ctx context.Context, id string) (*model.ParticipantDocument, error) {
	filter := bson.M{"_id": id}
	res := db.collection(model.ParticipantsCollection).FindOne(ctx, filter)

	var doc model.ParticipantDocument
	err := res.Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     id,
				Message: "participant not found",
			}
		}
		return nil, err
	}

	return &doc, nil
}

// UpsertParticipants writes all documents in one unordered bulk operation.
func (db *Database) UpsertParticipants(ctx context.Context, docs []*model.ParticipantDocument) error {
	if len(docs) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}

	_, err := db.collection(model.ParticipantsCollection).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return err
}
