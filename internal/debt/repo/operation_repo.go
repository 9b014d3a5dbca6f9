package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/debt/entity"
)

// OperationRepo provides data access for the money_operations table.
type OperationRepo struct {
	db sqlx.ExtContext
}

func NewOperationRepo(db sqlx.ExtContext) *OperationRepo { return &OperationRepo{db: db} }

const operationColumns = `id, debt_id, operation_date, money_amount, money_receiver, description,
	status, status_acceptor, created_at`

func (r *OperationRepo) EnsureTable(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS money_operations (
  id VARCHAR(32) PRIMARY KEY,
  debt_id VARCHAR(32) NOT NULL,
  operation_date TIMESTAMP NOT NULL,
  money_amount NUMERIC(14,2) NOT NULL,
  money_receiver VARCHAR(32) NOT NULL,
  description VARCHAR(70) NOT NULL DEFAULT '',
  status VARCHAR(20) NOT NULL,
  status_acceptor VARCHAR(32),
  created_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_money_operations_debt_id ON money_operations (debt_id)`,
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *OperationRepo) Create(ctx context.Context, op *entity.Operation) error {
	q := r.db.Rebind(`INSERT INTO money_operations (` + operationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		op.ID, op.DebtID, op.Date, op.MoneyAmount, op.MoneyReceiver, op.Description,
		op.Status, op.StatusAcceptor, op.CreatedAt)
	return err
}

func (r *OperationRepo) GetByID(ctx context.Context, id string) (*entity.Operation, error) {
	var op entity.Operation
	q := r.db.Rebind(`SELECT ` + operationColumns + ` FROM money_operations WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.db, &op, q, id); err != nil {
		return nil, err
	}
	return &op, nil
}

// ListByDebt returns the operations of a debt in the order they were recorded.
func (r *OperationRepo) ListByDebt(ctx context.Context, debtID string) ([]*entity.Operation, error) {
	q := r.db.Rebind(`SELECT ` + operationColumns + ` FROM money_operations WHERE debt_id = ? ORDER BY created_at, id`)
	var out []*entity.Operation
	if err := sqlx.SelectContext(ctx, r.db, &out, q, debtID); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus writes status and acceptor of one operation.
func (r *OperationRepo) UpdateStatus(ctx context.Context, op *entity.Operation) error {
	q := r.db.Rebind(`UPDATE money_operations SET status = ?, status_acceptor = ? WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, q, op.Status, op.StatusAcceptor, op.ID)
	return err
}

func (r *OperationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM money_operations WHERE id = ?`), id)
	return err
}

func (r *OperationRepo) DeleteByDebt(ctx context.Context, debtID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM money_operations WHERE debt_id = ?`), debtID)
	return err
}

// CountPending counts operations of a debt still awaiting acceptance.
func (r *OperationRepo) CountPending(ctx context.Context, debtID string) (int, error) {
	q := r.db.Rebind(`SELECT COUNT(1) FROM money_operations WHERE debt_id = ? AND status = ?`)
	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, q, debtID, entity.OperationCreationAwaiting); err != nil {
		return 0, err
	}
	return n, nil
}

// ReassignReceiver moves every operation of a debt owed to from over to to.
func (r *OperationRepo) ReassignReceiver(ctx context.Context, debtID, from, to string) (int64, error) {
	q := r.db.Rebind(`UPDATE money_operations SET money_receiver = ? WHERE debt_id = ? AND money_receiver = ?`)
	res, err := r.db.ExecContext(ctx, q, to, debtID, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearAcceptor drops userID as acceptor from every operation of a debt.
func (r *OperationRepo) ClearAcceptor(ctx context.Context, debtID, userID string) (int64, error) {
	q := r.db.Rebind(`UPDATE money_operations SET status_acceptor = NULL WHERE debt_id = ? AND status_acceptor = ?`)
	res, err := r.db.ExecContext(ctx, q, debtID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
