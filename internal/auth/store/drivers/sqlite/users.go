package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/authbase/internal/auth/domain"
	"github.com/aussiebroadwan/authbase/internal/auth/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, name, username, email, password_hash, role, phone_number,
	profile_picture, is_active, is_email_verified, is_two_factor_auth_enabled,
	oauth_provider, oauth_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u        domain.User
		role     string
		provider sql.NullString
		oauthID  sql.NullString
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &role, &u.PhoneNumber,
		&u.ProfilePicture, &u.IsActive, &u.IsEmailVerified, &u.IsTwoFactorAuthEnabled,
		&provider, &oauthID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.OAuthProvider = mapNullString(provider)
	u.OAuthID = mapNullString(oauthID)
	return u, nil
}

func (r *usersRepo) getBy(ctx context.Context, column, value string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getBy(ctx, "username", username)
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

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Username, u.Email, u.PasswordHash, string(u.Role), u.PhoneNumber,
		u.ProfilePicture, u.IsActive, u.IsEmailVerified, u.IsTwoFactorAuthEnabled,
		mapStringNull(u.OAuthProvider), mapStringNull(u.OAuthID), u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) (domain.User, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, v any) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}

	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Email != nil {
		set("email", *upd.Email)
	}
	if upd.PasswordHash != nil {
		set("password_hash", *upd.PasswordHash)
	}
	if upd.Role != nil {
		set("role", string(*upd.Role))
	}
	if upd.PhoneNumber != nil {
		set("phone_number", *upd.PhoneNumber)
	}
	if upd.ProfilePicture != nil {
		set("profile_picture", *upd.ProfilePicture)
	}
	if upd.IsActive != nil {
		set("is_active", *upd.IsActive)
	}
	if upd.IsEmailVerified != nil {
		set("is_email_verified", *upd.IsEmailVerified)
	}
	if upd.IsTwoFactorAuthEnabled != nil {
		set("is_two_factor_auth_enabled", *upd.IsTwoFactorAuthEnabled)
	}
	set("updated_at", now())
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return domain.User{}, mapConstraint(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.User{}, store.ErrNotFound
	}

	return r.GetUserByID(ctx, id)
}

// DeleteUser relies on ON DELETE CASCADE for tokens and otp_secrets.
func (r *usersRepo) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// sortColumns maps the public sort keys onto columns.
var sortColumns = map[string]string{
	"name":      "name",
	"role":      "role",
	"createdAt": "created_at",
}

func orderBy(sortBy string) string {
	dir := "ASC"
	key := strings.TrimSpace(sortBy)
	if strings.HasPrefix(key, "-") {
		dir = "DESC"
		key = key[1:]
	}
	col, ok := sortColumns[key]
	if !ok {
		return "created_at ASC, id ASC"
	}
	return fmt.Sprintf("%s %s, id ASC", col, dir)
}

func (r *usersRepo) QueryUsers(ctx context.Context, q domain.UserQuery) (domain.Page[domain.User], error) {
	limit, page, offset := domain.Window(q.Limit, q.Page, q.Offset)

	where := ""
	var args []any
	if s := strings.TrimSpace(q.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		where = ` WHERE name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\' OR role LIKE ? ESCAPE '\'`
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return domain.Page[domain.User]{}, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY `+orderBy(q.SortBy)+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return domain.Page[domain.User]{}, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return domain.Page[domain.User]{}, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.User]{}, err
	}

	return domain.NewPage(users, total, limit, page, offset), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
