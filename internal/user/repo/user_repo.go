package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/user/entity"
)

// UserRepo provides data access for the users table. It runs on either a
// *sqlx.DB or a *sqlx.Tx so callers can compose it into a transaction.
type UserRepo struct {
	db sqlx.ExtContext
}

func NewUserRepo(db sqlx.ExtContext) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, name, picture, is_virtual, owner_id, password_hash, password_algo,
	status, login_failed_attempts, locked_until, last_login_at, version, created_at, updated_at`

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id VARCHAR(32) PRIMARY KEY,
  email VARCHAR(320) UNIQUE,
  name VARCHAR(120) NOT NULL,
  picture TEXT NOT NULL DEFAULT '',
  is_virtual BOOLEAN NOT NULL DEFAULT FALSE,
  owner_id VARCHAR(32),
  password_hash TEXT,
  password_algo TEXT,
  status VARCHAR(16) NOT NULL DEFAULT 'active',
  login_failed_attempts INTEGER NOT NULL DEFAULT 0,
  locked_until TIMESTAMP,
  last_login_at TIMESTAMP,
  version BIGINT NOT NULL DEFAULT 1,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_users_owner_id ON users (owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_name ON users (name)`,
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	q := r.db.Rebind(`INSERT INTO users (id, email, name, picture, is_virtual, owner_id, password_hash, password_algo,
		status, login_failed_attempts, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		u.ID, u.Email, u.Name, u.Picture, u.Virtual, u.OwnerID, u.PasswordHash, u.PasswordAlgo,
		u.Status, u.LoginFailedAttempts, u.Version, u.CreatedAt, u.UpdatedAt)
	return err
}

// GetByID fetches a full user row or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.db, &u, q, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a real user matched by (lower-cased) email or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	if err := sqlx.GetContext(ctx, r.db, &u, q, email); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListByIDs loads the given users; missing ids are silently skipped.
func (r *UserRepo) ListByIDs(ctx context.Context, ids []string) ([]*entity.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var out []*entity.User
	if err := sqlx.SelectContext(ctx, r.db, &out, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchReal returns real users whose name starts with prefix.
func (r *UserRepo) SearchReal(ctx context.Context, prefix string, limit int) ([]*entity.User, error) {
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users
		WHERE is_virtual = FALSE AND status = 'active' AND LOWER(name) LIKE ?
		ORDER BY name, id LIMIT ?`)
	var out []*entity.User
	if err := sqlx.SelectContext(ctx, r.db, &out, q, stripWildcards(prefix)+"%", limit); err != nil {
		return nil, err
	}
	return out, nil
}

// VirtualNameTaken reports whether ownerID already owns a virtual user called name.
func (r *UserRepo) VirtualNameTaken(ctx context.Context, ownerID, name string) (bool, error) {
	q := r.db.Rebind(`SELECT COUNT(1) FROM users WHERE is_virtual = TRUE AND owner_id = ? AND name = ?`)
	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, q, ownerID, name); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a user row.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	return err
}

// IncrementFailedLogin bumps the failure counter.
func (r *UserRepo) IncrementFailedLogin(ctx context.Context, id string) error {
	q := r.db.Rebind(`UPDATE users SET login_failed_attempts = login_failed_attempts + 1, updated_at = ? WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, q, time.Now().UTC(), id)
	return err
}

// LockIfThreshold locks the user until `until` if attempts >= threshold and currently active.
func (r *UserRepo) LockIfThreshold(ctx context.Context, id string, threshold int, until time.Time) (bool, error) {
	q := r.db.Rebind(`UPDATE users SET status = 'locked', locked_until = ?, updated_at = ?
		WHERE id = ? AND status = 'active' AND login_failed_attempts >= ?`)
	res, err := r.db.ExecContext(ctx, q, until, time.Now().UTC(), id, threshold)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ResetLoginSuccess resets failure metrics on successful authentication.
func (r *UserRepo) ResetLoginSuccess(ctx context.Context, id string) error {
	now := time.Now().UTC()
	q := r.db.Rebind(`UPDATE users SET login_failed_attempts = 0, last_login_at = ?, locked_until = NULL, updated_at = ? WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, q, now, now, id)
	return err
}

// Unlock sets a locked user back to active. Callers check expiry first.
func (r *UserRepo) Unlock(ctx context.Context, id string) error {
	q := r.db.Rebind(`UPDATE users SET status = 'active', locked_until = NULL, login_failed_attempts = 0, updated_at = ?
		WHERE id = ? AND status = 'locked'`)
	_, err := r.db.ExecContext(ctx, q, time.Now().UTC(), id)
	return err
}

func stripWildcards(s string) string {
	r := []rune{}
	for _, c := range s {
		if c == '%' || c == '_' {
			continue
		}
		r = append(r, c)
	}
	return string(r)
}
