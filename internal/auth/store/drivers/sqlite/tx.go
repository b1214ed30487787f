package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/authbase/internal/auth/store"
)

// txRepos binds the repositories to one *sql.Tx.
type txRepos struct {
	tx *sql.Tx
}

func (t txRepos) Users() store.Users   { return &usersRepo{db: t.tx} }
func (t txRepos) Tokens() store.Tokens { return &tokensRepo{db: t.tx} }
func (t txRepos) OTPs() store.OTPs     { return &otpsRepo{db: t.tx} }

// WithTx runs fn in a transaction. A panic in fn rolls back and is re-raised.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("sqlite: rollback: %w", rbErr))
			}
		}
	}()

	if err = fn(txRepos{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}
