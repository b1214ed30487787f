package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type tokenDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"userId"`
	Fingerprint string    `bson:"fingerprint"`
	Type        string    `bson:"type"`
	DeviceID    string    `bson:"deviceId"`
	ExpiresAt   time.Time `bson:"expiresAt"`
	Blacklisted bool      `bson:"blacklisted"`
	CreatedAt   time.Time `bson:"createdAt"`
}

func (d tokenDoc) toDomain() domain.Token {
	return domain.Token{
		ID: d.ID, UserID: d.UserID, Fingerprint: d.Fingerprint,
		Type: domain.TokenType(d.Type), DeviceID: d.DeviceID,
		ExpiresAt: d.ExpiresAt, Blacklisted: d.Blacklisted, CreatedAt: d.CreatedAt,
	}
}

type tokensRepo struct {
	coll *mongo.Collection
}

var errMissingUser = errors.New("mongo: token filter needs a user id")

func tokenFilter(f domain.TokenFilter) (bson.M, error) {
	if f.UserID == "" {
		return nil, errMissingUser
	}
	m := bson.M{"userId": f.UserID}
	if f.DeviceID != "" {
		m["deviceId"] = f.DeviceID
	}
	if f.Type != "" {
		m["type"] = string(f.Type)
	}
	if f.Blacklisted != nil {
		m["blacklisted"] = *f.Blacklisted
	}
	return m, nil
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	_, err := r.coll.InsertOne(ctx, tokenDoc{
		ID: t.ID, UserID: t.UserID, Fingerprint: t.Fingerprint, Type: string(t.Type),
		DeviceID: t.DeviceID, ExpiresAt: t.ExpiresAt.UTC(), Blacklisted: t.Blacklisted,
		CreatedAt: t.CreatedAt.UTC(),
	})
	return mapDuplicate(err)
}

func (r *tokensRepo) FindToken(ctx context.Context, f domain.TokenFilter) (domain.Token, error) {
	filter, err := tokenFilter(f)
	if err != nil {
		return domain.Token{}, err
	}
	filter["expiresAt"] = bson.M{"$gt": now()}

	var d tokenDoc
	err = r.coll.FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})).Decode(&d)
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	return d.toDomain(), nil
}

func (r *tokensRepo) DeleteToken(ctx context.Context, f domain.TokenFilter) error {
	filter, err := tokenFilter(f)
	if err != nil {
		return err
	}
	_, err = r.coll.DeleteOne(ctx, filter)
	return err
}

func (r *tokensRepo) DeleteTokens(ctx context.Context, f domain.TokenFilter) (int64, error) {
	filter, err := tokenFilter(f)
	if err != nil {
		return 0, err
	}
	res, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, at time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": at.UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
