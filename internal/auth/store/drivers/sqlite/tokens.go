package sqlite

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
)

type tokensRepo struct {
	db dbtx
}

var errMissingUser = errors.New("sqlite: token filter needs a user id")

// tokenWhere renders f as a WHERE clause. UserID is mandatory so a zero
// filter can never match every row.
func tokenWhere(f domain.TokenFilter) (string, []any, error) {
	if f.UserID == "" {
		return "", nil, errMissingUser
	}

	clauses := []string{"user_id = ?"}
	args := []any{f.UserID}

	if f.DeviceID != "" {
		clauses = append(clauses, "device_id = ?")
		args = append(args, f.DeviceID)
	}
	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Blacklisted != nil {
		clauses = append(clauses, "blacklisted = ?")
		args = append(args, *f.Blacklisted)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (id, user_id, fingerprint, type, device_id, expires_at, blacklisted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Fingerprint, string(t.Type), t.DeviceID, t.ExpiresAt.UTC(), t.Blacklisted, t.CreatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *tokensRepo) FindToken(ctx context.Context, f domain.TokenFilter) (domain.Token, error) {
	where, args, err := tokenWhere(f)
	if err != nil {
		return domain.Token{}, err
	}

	var (
		t   domain.Token
		typ string
	)
	err = r.db.QueryRowContext(ctx, `
		SELECT id, user_id, fingerprint, type, device_id, expires_at, blacklisted, created_at
		FROM tokens`+where+` AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1`,
		append(args, now())...,
	).Scan(&t.ID, &t.UserID, &t.Fingerprint, &typ, &t.DeviceID, &t.ExpiresAt, &t.Blacklisted, &t.CreatedAt)
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	t.Type = domain.TokenType(typ)
	return t, nil
}

func (r *tokensRepo) DeleteToken(ctx context.Context, f domain.TokenFilter) error {
	where, args, err := tokenWhere(f)
	if err != nil {
		return err
	}
	// An empty subquery yields NULL, which matches nothing.
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE id = (SELECT id FROM tokens`+where+` LIMIT 1)`, args...)
	return err
}

func (r *tokensRepo) DeleteTokens(ctx context.Context, f domain.TokenFilter) (int64, error) {
	where, args, err := tokenWhere(f)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens`+where, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at <= ?`, at.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
