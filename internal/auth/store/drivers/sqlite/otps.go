package sqlite

import (
	"context"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/store"
)

type otpsRepo struct {
	db dbtx
}

const otpColumns = `id, user_id, secret_key, verified, method, created_at, updated_at`

func scanOTP(row rowScanner) (domain.OTPSecret, error) {
	var (
		s      domain.OTPSecret
		method string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.SecretKey, &s.Verified, &method, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return domain.OTPSecret{}, mapNotFound(err)
	}
	s.Method = domain.OTPMethod(method)
	return s, nil
}

func (r *otpsRepo) CreateOTP(ctx context.Context, s domain.OTPSecret) error {
	ts := now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = ts
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = ts
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otp_secrets (`+otpColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.SecretKey, s.Verified, string(s.Method), s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *otpsRepo) GetOTPByID(ctx context.Context, id string) (domain.OTPSecret, error) {
	return scanOTP(r.db.QueryRowContext(ctx, `SELECT `+otpColumns+` FROM otp_secrets WHERE id = ?`, id))
}

func (r *otpsRepo) GetOTPByUser(ctx context.Context, userID string) (domain.OTPSecret, error) {
	return scanOTP(r.db.QueryRowContext(ctx, `SELECT `+otpColumns+` FROM otp_secrets WHERE user_id = ?`, userID))
}

func (r *otpsRepo) MarkOTPVerified(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_secrets SET verified = 1, updated_at = ? WHERE id = ?`, now(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *otpsRepo) DeleteOTPByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_secrets WHERE user_id = ?`, userID)
	return err
}
