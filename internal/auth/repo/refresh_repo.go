package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Session is a persisted refresh session. Only the sha256 of the opaque
// token is stored.
type Session struct {
	TokenHash string    `db:"token_hash"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

type RefreshRepo struct {
	db sqlx.ExtContext
}

func NewRefreshRepo(db sqlx.ExtContext) *RefreshRepo {
	return &RefreshRepo{db: db}
}

// EnsureTable creates the refresh_sessions table if not exists.
func (r *RefreshRepo) EnsureTable(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refresh_sessions (
  token_hash VARCHAR(64) PRIMARY KEY,
  user_id VARCHAR(32) NOT NULL,
  expires_at TIMESTAMP NOT NULL,
  created_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_sessions_user_id ON refresh_sessions (user_id)`,
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *RefreshRepo) Save(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	q := r.db.Rebind(`INSERT INTO refresh_sessions (token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q, tokenHash, userID, expiresAt, time.Now().UTC())
	return err
}

// Take deletes the session and returns it. A missing session yields
// sql.ErrNoRows.
func (r *RefreshRepo) Take(ctx context.Context, tokenHash string) (*Session, error) {
	var sess Session
	q := r.db.Rebind(`SELECT token_hash, user_id, expires_at, created_at FROM refresh_sessions WHERE token_hash = ?`)
	if err := sqlx.GetContext(ctx, r.db, &sess, q, tokenHash); err != nil {
		return nil, err
	}
	if err := r.Delete(ctx, tokenHash); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *RefreshRepo) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM refresh_sessions WHERE token_hash = ?`), tokenHash)
	return err
}

// DeleteExpired drops sessions that expired before now.
func (r *RefreshRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM refresh_sessions WHERE expires_at < ?`), now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
