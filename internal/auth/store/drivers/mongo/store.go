package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/store"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	usersCollection  = "users"
	tokensCollection = "tokens"
	otpsCollection   = "otps"
)

// Store is the MongoDB driver. Every collection is keyed by the ULID string
// the application assigns, so ids look the same as with the sqlite driver.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to uri and selects database. The connection is checked
// with a ping before returning.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Users() store.Users   { return &usersRepo{db: s.db} }
func (s *Store) Tokens() store.Tokens { return &tokensRepo{coll: s.db.Collection(tokensCollection)} }
func (s *Store) OTPs() store.OTPs     { return &otpsRepo{coll: s.db.Collection(otpsCollection)} }

// WithTx runs fn directly against the store. Multi-document transactions
// need a replica set, and the one flow that uses WithTx (replacing a user's
// OTP secret) stays correct through the unique user index on otps.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(s)
}

func mapNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func mapDuplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func now() time.Time { return time.Now().UTC() }
