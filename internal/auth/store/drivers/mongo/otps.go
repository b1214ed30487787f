package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type otpDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	SecretKey string    `bson:"secretKey"`
	Verified  bool      `bson:"verified"`
	Method    string    `bson:"method"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type otpsRepo struct {
	coll *mongo.Collection
}

func (r *otpsRepo) CreateOTP(ctx context.Context, s domain.OTPSecret) error {
	ts := now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = ts
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = ts
	}
	_, err := r.coll.InsertOne(ctx, otpDoc{
		ID: s.ID, UserID: s.UserID, SecretKey: s.SecretKey, Verified: s.Verified,
		Method: string(s.Method), CreatedAt: s.CreatedAt.UTC(), UpdatedAt: s.UpdatedAt.UTC(),
	})
	return mapDuplicate(err)
}

func (r *otpsRepo) get(ctx context.Context, filter bson.M) (domain.OTPSecret, error) {
	var d otpDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		return domain.OTPSecret{}, mapNotFound(err)
	}
	return domain.OTPSecret{
		ID: d.ID, UserID: d.UserID, SecretKey: d.SecretKey, Verified: d.Verified,
		Method: domain.OTPMethod(d.Method), CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}, nil
}

func (r *otpsRepo) GetOTPByID(ctx context.Context, id string) (domain.OTPSecret, error) {
	return r.get(ctx, bson.M{"_id": id})
}

func (r *otpsRepo) GetOTPByUser(ctx context.Context, userID string) (domain.OTPSecret, error) {
	return r.get(ctx, bson.M{"userId": userID})
}

func (r *otpsRepo) MarkOTPVerified(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"verified": true, "updatedAt": now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *otpsRepo) DeleteOTPByUser(ctx context.Context, userID string) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}
