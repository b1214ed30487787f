package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// caseInsensitive makes "Alice" and "alice" the same key.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// ApplyMigrations creates the indexes the driver depends on. Creating an
// index that already exists with the same options is a no-op, so this is
// safe on every start.
func (s *Store) ApplyMigrations() error {
	ctx := context.Background()

	plan := map[string][]mongo.IndexModel{
		usersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("uniq_email").SetUnique(true).SetCollation(caseInsensitive),
			},
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetName("uniq_username").SetUnique(true).SetCollation(caseInsensitive),
			},
			{
				Keys: bson.D{{Key: "oauthProvider", Value: 1}, {Key: "oauthId", Value: 1}},
				Options: options.Index().SetName("uniq_oauth").SetUnique(true).
					SetPartialFilterExpression(bson.M{"oauthProvider": bson.M{"$exists": true}}),
			},
			{
				Keys:    bson.D{{Key: "createdAt", Value: 1}},
				Options: options.Index().SetName("created_at"),
			},
		},
		tokensCollection: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "type", Value: 1}, {Key: "deviceId", Value: 1}},
				Options: options.Index().SetName("lookup"),
			},
			{
				// Mongo reaps expired records on its own; DeleteExpiredTokens
				// only covers the gap until the TTL monitor runs.
				Keys:    bson.D{{Key: "expiresAt", Value: 1}},
				Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0),
			},
		},
		otpsCollection: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}},
				Options: options.Index().SetName("uniq_user").SetUnique(true),
			},
		},
	}

	for coll, models := range plan {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: indexes on %s: %w", coll, err)
		}
	}
	return nil
}
