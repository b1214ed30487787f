package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Repos groups the repositories. Store and Tx both expose them, so code
// written against Repos runs the same inside and outside a transaction.
type Repos interface {
	Users() Users
	Tokens() Tokens
	OTPs() OTPs
}

// Store is implemented by the sqlite and mongo drivers.
type Store interface {
	Repos

	// ApplyMigrations brings the schema (tables, indexes) up to date.
	ApplyMigrations() error

	// WithTx runs fn in a transaction: committed when fn returns nil, rolled
	// back otherwise. Transactions do not nest.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is the view of the store inside WithTx.
type Tx interface {
	Repos
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used by login, password reset and OAuth linking.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByUsername backs the username uniqueness checks.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// A clashing email or username yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser applies upd, bumps updated_at and returns the new row.
	UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) (domain.User, error)

	// DeleteUser removes the user together with its tokens and OTP secret.
	DeleteUser(ctx context.Context, id string) error

	// QueryUsers runs a filtered, sorted, offset-paginated listing.
	QueryUsers(ctx context.Context, q domain.UserQuery) (domain.Page[domain.User], error)
}

type Tokens interface {
	// CreateToken stores a new token record.
	CreateToken(ctx context.Context, t domain.Token) error

	// FindToken returns one unexpired record matching f.
	FindToken(ctx context.Context, f domain.TokenFilter) (domain.Token, error)

	// DeleteToken removes at most one record matching f. Absent is not an error.
	DeleteToken(ctx context.Context, f domain.TokenFilter) error

	// DeleteTokens removes every record matching f and reports how many went.
	DeleteTokens(ctx context.Context, f domain.TokenFilter) (int64, error)

	// DeleteExpiredTokens is housekeeping.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type OTPs interface {
	// CreateOTP stores a secret. A user can hold only one; a second insert
	// yields ErrAlreadyExists.
	CreateOTP(ctx context.Context, s domain.OTPSecret) error

	// GetOTPByID returns a secret by id.
	GetOTPByID(ctx context.Context, id string) (domain.OTPSecret, error)

	// GetOTPByUser returns the user's secret.
	GetOTPByUser(ctx context.Context, userID string) (domain.OTPSecret, error)

	// MarkOTPVerified flips verified and bumps updated_at.
	MarkOTPVerified(ctx context.Context, id string) error

	// DeleteOTPByUser removes the user's secret, if any.
	DeleteOTPByUser(ctx context.Context, userID string) error
}
