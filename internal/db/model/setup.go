package model

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rtpcraft/randomtp/internal/config"
)

const setupTimeout = 30 * time.Second

type index struct {
	Keys   bson.D
	Unique bool
}

var collections = map[string][]index{
	ParticipantsCollection: {
		{Keys: bson.D{{Key: "last_teleport_at", Value: -1}}},
	},
}

// Setup creates missing collections and their indexes.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	ctx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	credential := options.Credential{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	clientOps := options.Client().ApplyURI(cfg.Address).SetAuth(credential)
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	database := client.Database(cfg.DbName)

	existing, err := database.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	for name, indexes := range collections {
		if !present[name] {
			if err := database.CreateCollection(ctx, name); err != nil {
				return fmt.Errorf("failed to create collection %s: %w", name, err)
			}
			log.Ctx(ctx).Debug().Str("collection", name).Msg("Created collection")
		}

		for _, idx := range indexes {
			model := mongo.IndexModel{
				Keys:    idx.Keys,
				Options: options.Index().SetUnique(idx.Unique),
			}
			if _, err := database.Collection(name).Indexes().CreateOne(ctx, model); err != nil {
				return fmt.Errorf("failed to create index on %s: %w", name, err)
			}
		}
	}

	return nil
}
