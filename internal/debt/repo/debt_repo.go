package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/debt/entity"
)

// DebtRepo provides data access for the debts table on a *sqlx.DB or *sqlx.Tx.
type DebtRepo struct {
	db sqlx.ExtContext
}

func NewDebtRepo(db sqlx.ExtContext) *DebtRepo { return &DebtRepo{db: db} }

const debtColumns = `id, first_user_id, second_user_id, type, status, status_acceptor,
	summary, money_receiver, created_at, updated_at`

// EnsureTable creates the debts table if not exists (idempotent).
func (r *DebtRepo) EnsureTable(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS debts (
  id VARCHAR(32) PRIMARY KEY,
  first_user_id VARCHAR(32) NOT NULL,
  second_user_id VARCHAR(32) NOT NULL,
  type VARCHAR(16) NOT NULL,
  status VARCHAR(20) NOT NULL,
  status_acceptor VARCHAR(32),
  summary NUMERIC(14,2) NOT NULL DEFAULT 0,
  money_receiver VARCHAR(32),
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_debts_first_user_id ON debts (first_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_debts_second_user_id ON debts (second_user_id)`,
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *DebtRepo) Create(ctx context.Context, d *entity.Debt) error {
	q := r.db.Rebind(`INSERT INTO debts (` + debtColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		d.ID, d.FirstUserID, d.SecondUserID, d.Type, d.Status, d.StatusAcceptor,
		d.Summary, d.MoneyReceiver, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *DebtRepo) GetByID(ctx context.Context, id string) (*entity.Debt, error) {
	var d entity.Debt
	q := r.db.Rebind(`SELECT ` + debtColumns + ` FROM debts WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.db, &d, q, id); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListForUser returns every debt userID belongs to or is invited to resolve,
// most recently changed first.
func (r *DebtRepo) ListForUser(ctx context.Context, userID string) ([]*entity.Debt, error) {
	q := r.db.Rebind(`SELECT ` + debtColumns + ` FROM debts
		WHERE first_user_id = ? OR second_user_id = ? OR status_acceptor = ?
		ORDER BY updated_at DESC, id DESC`)
	var out []*entity.Debt
	if err := sqlx.SelectContext(ctx, r.db, &out, q, userID, userID, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// ExistsBetween reports whether a and b already share a debt, in either order.
func (r *DebtRepo) ExistsBetween(ctx context.Context, a, b string) (bool, error) {
	q := r.db.Rebind(`SELECT COUNT(1) FROM debts
		WHERE (first_user_id = ? AND second_user_id = ?) OR (first_user_id = ? AND second_user_id = ?)`)
	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, q, a, b, b, a); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update writes members, type, status and balance and stamps updated_at.
func (r *DebtRepo) Update(ctx context.Context, d *entity.Debt) error {
	d.UpdatedAt = time.Now().UTC()
	q := r.db.Rebind(`UPDATE debts SET first_user_id = ?, second_user_id = ?, type = ?, status = ?,
		status_acceptor = ?, summary = ?, money_receiver = ?, updated_at = ? WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, q,
		d.FirstUserID, d.SecondUserID, d.Type, d.Status, d.StatusAcceptor,
		d.Summary, d.MoneyReceiver, d.UpdatedAt, d.ID)
	return err
}

func (r *DebtRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM debts WHERE id = ?`), id)
	return err
}
