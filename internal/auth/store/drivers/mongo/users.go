package mongo

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type userDoc struct {
	ID                     string    `bson:"_id"`
	Name                   string    `bson:"name"`
	Username               string    `bson:"username"`
	Email                  string    `bson:"email"`
	PasswordHash           string    `bson:"password,omitempty"`
	Role                   string    `bson:"role"`
	PhoneNumber            string    `bson:"phoneNumber,omitempty"`
	ProfilePicture         string    `bson:"profilePicture,omitempty"`
	IsActive               bool      `bson:"isActive"`
	IsEmailVerified        bool      `bson:"isEmailVerified"`
	IsTwoFactorAuthEnabled bool      `bson:"isTwoFactorAuthEnabled"`
	OAuthProvider          string    `bson:"oauthProvider,omitempty"`
	OAuthID                string    `bson:"oauthId,omitempty"`
	CreatedAt              time.Time `bson:"createdAt"`
	UpdatedAt              time.Time `bson:"updatedAt"`
}

func toUserDoc(u domain.User) userDoc {
	return userDoc{
		ID:                     u.ID,
		Name:                   u.Name,
		Username:               u.Username,
		Email:                  u.Email,
		PasswordHash:           u.PasswordHash,
		Role:                   string(u.Role),
		PhoneNumber:            u.PhoneNumber,
		ProfilePicture:         u.ProfilePicture,
		IsActive:               u.IsActive,
		IsEmailVerified:        u.IsEmailVerified,
		IsTwoFactorAuthEnabled: u.IsTwoFactorAuthEnabled,
		OAuthProvider:          u.OAuthProvider,
		OAuthID:                u.OAuthID,
		CreatedAt:              u.CreatedAt.UTC(),
		UpdatedAt:              u.UpdatedAt.UTC(),
	}
}

func (d userDoc) toDomain() domain.User {
	return domain.User{
		ID:                     d.ID,
		Name:                   d.Name,
		Username:               d.Username,
		Email:                  d.Email,
		PasswordHash:           d.PasswordHash,
		Role:                   domain.Role(d.Role),
		PhoneNumber:            d.PhoneNumber,
		ProfilePicture:         d.ProfilePicture,
		IsActive:               d.IsActive,
		IsEmailVerified:        d.IsEmailVerified,
		IsTwoFactorAuthEnabled: d.IsTwoFactorAuthEnabled,
		OAuthProvider:          d.OAuthProvider,
		OAuthID:                d.OAuthID,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
}

type usersRepo struct {
	db *mongo.Database
}

func (r *usersRepo) coll() *mongo.Collection { return r.db.Collection(usersCollection) }

func (r *usersRepo) findOne(ctx context.Context, filter bson.M) (domain.User, error) {
	var d userDoc
	err := r.coll().FindOne(ctx, filter, options.FindOne().SetCollation(caseInsensitive)).Decode(&d)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return d.toDomain(), nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	ts := now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = ts
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = ts
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	_, err := r.coll().InsertOne(ctx, toUserDoc(u))
	return mapDuplicate(err)
}

func (r *usersRepo) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) (domain.User, error) {
	set := bson.M{"updatedAt": now()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.PasswordHash != nil {
		set["password"] = *upd.PasswordHash
	}
	if upd.Role != nil {
		set["role"] = string(*upd.Role)
	}
	if upd.PhoneNumber != nil {
		set["phoneNumber"] = *upd.PhoneNumber
	}
	if upd.ProfilePicture != nil {
		set["profilePicture"] = *upd.ProfilePicture
	}
	if upd.IsActive != nil {
		set["isActive"] = *upd.IsActive
	}
	if upd.IsEmailVerified != nil {
		set["isEmailVerified"] = *upd.IsEmailVerified
	}
	if upd.IsTwoFactorAuthEnabled != nil {
		set["isTwoFactorAuthEnabled"] = *upd.IsTwoFactorAuthEnabled
	}

	var d userDoc
	err := r.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return domain.User{}, mapDuplicate(mapNotFound(err))
	}
	return d.toDomain(), nil
}

// DeleteUser removes the user, then its tokens and OTP secret. There are no
// foreign keys, so the cascade is done by hand.
func (r *usersRepo) DeleteUser(ctx context.Context, id string) error {
	res, err := r.coll().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}

	if _, err := r.db.Collection(tokensCollection).DeleteMany(ctx, bson.M{"userId": id}); err != nil {
		return err
	}
	_, err = r.db.Collection(otpsCollection).DeleteMany(ctx, bson.M{"userId": id})
	return err
}

var sortFields = map[string]string{
	"name":      "name",
	"role":      "role",
	"createdAt": "createdAt",
}

func sortSpec(sortBy string) bson.D {
	dir := 1
	key := strings.TrimSpace(sortBy)
	if strings.HasPrefix(key, "-") {
		dir = -1
		key = key[1:]
	}
	field, ok := sortFields[key]
	if !ok {
		return bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: 1}}
}

func (r *usersRepo) QueryUsers(ctx context.Context, q domain.UserQuery) (domain.Page[domain.User], error) {
	limit, page, offset := domain.Window(q.Limit, q.Page, q.Offset)

	filter := bson.M{}
	if s := strings.TrimSpace(q.Search); s != "" {
		re := bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"email": re},
			bson.M{"role": re},
		}
	}

	total, err := r.coll().CountDocuments(ctx, filter)
	if err != nil {
		return domain.Page[domain.User]{}, err
	}

	cur, err := r.coll().Find(ctx, filter, options.Find().
		SetSort(sortSpec(q.SortBy)).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)))
	if err != nil {
		return domain.Page[domain.User]{}, err
	}
	defer cur.Close(ctx)

	users := make([]domain.User, 0, limit)
	for cur.Next(ctx) {
		var d userDoc
		if err := cur.Decode(&d); err != nil {
			return domain.Page[domain.User]{}, err
		}
		users = append(users, d.toDomain())
	}
	if err := cur.Err(); err != nil {
		return domain.Page[domain.User]{}, err
	}

	return domain.NewPage(users, int(total), limit, page, offset), nil
}
