package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/store"
	"github.com/aussiebroadwan/authbase/pkg/cryptox"
	"github.com/aussiebroadwan/authbase/pkg/idx"
)

// maxUsernameAttempts bounds the random suffix search in UniqueUsername.
const maxUsernameAttempts = 20

type UserService struct {
	Store  store.Store
	Hasher *cryptox.Hasher

	// AdminEmail is promoted to ADMIN when its account is created.
	AdminEmail string
}

// NewUser is the input for CreateUser. Password is plaintext and is hashed
// before anything is stored; it may be empty for OAuth accounts.
type NewUser struct {
	Name            string
	Username        string
	Email           string
	Password        string
	PhoneNumber     string
	ProfilePicture  string
	Role            domain.Role
	IsEmailVerified bool
	OAuthProvider   string
	OAuthID         string
}

// UserChanges is the input for UpdateUser. Nil fields are left alone.
type UserChanges struct {
	Name     *string
	Email    *string
	Password *string
	Role     *domain.Role
	IsActive *bool
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// CreateUser validates uniqueness, hashes the password and stores the user.
func (s *UserService) CreateUser(ctx context.Context, in NewUser) (domain.User, error) {
	email := normalizeEmail(in.Email)

	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}
	if _, err := s.Store.Users().GetUserByUsername(ctx, in.Username); err == nil {
		return domain.User{}, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	var digest string
	if in.Password != "" {
		var err error
		if digest, err = s.Hasher.Hash(in.Password); err != nil {
			return domain.User{}, err
		}
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if s.AdminEmail != "" && strings.EqualFold(email, s.AdminEmail) {
		role = domain.RoleAdmin
	}

	u := domain.User{
		ID:              idx.New().String(),
		Name:            strings.TrimSpace(in.Name),
		Username:        in.Username,
		Email:           email,
		PasswordHash:    digest,
		Role:            role,
		PhoneNumber:     in.PhoneNumber,
		ProfilePicture:  in.ProfilePicture,
		IsActive:        true,
		IsEmailVerified: in.IsEmailVerified,
		OAuthProvider:   in.OAuthProvider,
		OAuthID:         in.OAuthID,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with a concurrent registration.
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	return s.Store.Users().GetUserByID(ctx, u.ID)
}

// GetUser returns a user by id.
func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *UserService) QueryUsers(ctx context.Context, q domain.UserQuery) (domain.Page[domain.User], error) {
	return s.Store.Users().QueryUsers(ctx, q)
}

// UpdateUser applies ch. A new email must not belong to someone else and a
// new password is hashed first.
func (s *UserService) UpdateUser(ctx context.Context, id string, ch UserChanges) (domain.User, error) {
	var upd domain.UserUpdate

	if ch.Email != nil {
		email := normalizeEmail(*ch.Email)
		other, err := s.Store.Users().GetUserByEmail(ctx, email)
		switch {
		case err == nil && other.ID != id:
			return domain.User{}, ErrEmailTaken
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return domain.User{}, err
		}
		upd.Email = &email
	}
	if ch.Password != nil {
		digest, err := s.Hasher.Hash(*ch.Password)
		if err != nil {
			return domain.User{}, err
		}
		upd.PasswordHash = &digest
	}
	upd.Name = ch.Name
	upd.Role = ch.Role
	upd.IsActive = ch.IsActive

	u, err := s.Store.Users().UpdateUser(ctx, id, upd)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, ErrUserNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return domain.User{}, ErrEmailTaken
	case err != nil:
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// DeleteUser removes the user with its tokens and OTP secret.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	err := s.Store.Users().DeleteUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// UniqueUsername derives a free username from base, appending a random
// 1..100 suffix until nobody holds it.
func (s *UserService) UniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, base)
	if candidate == "" {
		candidate = "user"
	}

	for range maxUsernameAttempts {
		_, err := s.Store.Users().GetUserByUsername(ctx, candidate)
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate += strconv.Itoa(rand.IntN(100) + 1)
	}
	return "", fmt.Errorf("no free username for %q after %d attempts", base, maxUsernameAttempts)
}
