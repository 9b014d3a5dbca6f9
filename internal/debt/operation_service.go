package debt

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/debt/entity"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/utilities"
)

// OperationInput describes a new money movement: MoneyReceiver is owed
// MoneyAmount by the other member of the debt.
type OperationInput struct {
	DebtID        string
	Date          time.Time
	MoneyAmount   decimal.Decimal
	MoneyReceiver string
	Description   string
}

// CreateOperation records a movement. On a multiple user debt it waits for
// the counterparty; on a single user debt it is applied at once.
func (s *Service) CreateOperation(ctx context.Context, actor string, in OperationInput) (*DebtView, error) {
	if !in.MoneyAmount.IsPositive() {
		return nil, ErrAmountNotPositive
	}
	if !entity.HasMoneyScale(in.MoneyAmount) {
		return nil, ErrAmountPrecision
	}
	if !entity.WithinMoneyRange(in.MoneyAmount) {
		return nil, ErrAmountTooLarge
	}
	if utf8.RuneCountInString(in.Description) > entity.MaxDescriptionLength {
		return nil, ErrDescriptionTooLong
	}
	err := s.run(ctx, func(st store, fx *effects) error {
		d, err := loadDebt(ctx, st, in.DebtID, actor, false)
		if err != nil {
			return err
		}
		if !d.IsMember(in.MoneyReceiver) {
			return ErrReceiverNotMember
		}
		if d.Status == entity.DebtConnectUser || d.Status == entity.DebtCreationAwaiting || d.IsAcceptor(actor) {
			return ErrNeedsAcceptance
		}

		now := time.Now().UTC()
		date := in.Date
		if date.IsZero() {
			date = now
		}
		op := &entity.Operation{
			ID:            utilities.NewSnowflakeID(),
			DebtID:        d.ID,
			Date:          date.UTC(),
			MoneyAmount:   in.MoneyAmount,
			MoneyReceiver: in.MoneyReceiver,
			Description:   in.Description,
			CreatedAt:     now,
		}
		switch d.Type {
		case entity.DebtMultipleUsers:
			counterpart := d.Other(actor)
			op.Status = entity.OperationCreationAwaiting
			op.StatusAcceptor = &counterpart
			d.Await(entity.DebtChangeAwaiting, counterpart)
		case entity.DebtSingleUser:
			op.Status = entity.OperationUnchanged
			d.ApplyOperation(op)
			if !entity.WithinMoneyRange(d.Summary) {
				return ErrBalanceTooLarge
			}
		}
		if err := st.ops.Create(ctx, op); err != nil {
			return err
		}
		return st.debts.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, in.DebtID)
}

// loadOperation returns an operation with its debt when actor is a member.
func loadOperation(ctx context.Context, st store, id, actor string) (*entity.Operation, *entity.Debt, error) {
	op, err := st.ops.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrOperationNotFound
		}
		return nil, nil, err
	}
	d, err := loadDebt(ctx, st, op.DebtID, actor, false)
	if err != nil {
		if errors.Is(err, ErrDebtNotFound) {
			return nil, nil, ErrOperationNotFound
		}
		return nil, nil, err
	}
	return op, d, nil
}

// settleIfResolved returns a CHANGE_AWAITING debt to UNCHANGED once none of
// its operations waits for acceptance.
func settleIfResolved(ctx context.Context, st store, d *entity.Debt) error {
	if d.Status != entity.DebtChangeAwaiting {
		return nil
	}
	pending, err := st.ops.CountPending(ctx, d.ID)
	if err != nil {
		return err
	}
	if pending == 0 {
		d.Settle()
	}
	return nil
}

// AcceptOperation applies a pending operation to the balance. An operation
// whose acceptor left the debt can be accepted by the remaining member.
func (s *Service) AcceptOperation(ctx context.Context, actor, id string) (*DebtView, error) {
	var debtID string
	err := s.run(ctx, func(st store, fx *effects) error {
		op, d, err := loadOperation(ctx, st, id, actor)
		if err != nil {
			return err
		}
		debtID = d.ID
		if !op.Pending() {
			return ErrOperationNotPending
		}
		if op.StatusAcceptor == nil {
			if d.Type != entity.DebtSingleUser {
				return ErrNotOperationAcceptor
			}
		} else if *op.StatusAcceptor != actor {
			return ErrNotOperationAcceptor
		}

		op.Status = entity.OperationUnchanged
		op.StatusAcceptor = nil
		if err := st.ops.UpdateStatus(ctx, op); err != nil {
			return err
		}
		d.ApplyOperation(op)
		if !entity.WithinMoneyRange(d.Summary) {
			return ErrBalanceTooLarge
		}
		if err := settleIfResolved(ctx, st, d); err != nil {
			return err
		}
		return st.debts.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, debtID)
}

// DeclineOperation drops a pending operation. Either member may decline.
func (s *Service) DeclineOperation(ctx context.Context, actor, id string) (*DebtView, error) {
	var debtID string
	err := s.run(ctx, func(st store, fx *effects) error {
		op, d, err := loadOperation(ctx, st, id, actor)
		if err != nil {
			return err
		}
		debtID = d.ID
		if !op.Pending() {
			return ErrOperationNotPending
		}
		if err := st.ops.Delete(ctx, op.ID); err != nil {
			return err
		}
		if err := settleIfResolved(ctx, st, d); err != nil {
			return err
		}
		return st.debts.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, debtID)
}

// DeleteOperation removes an applied operation from a single user debt and
// reverts its effect on the balance.
func (s *Service) DeleteOperation(ctx context.Context, actor, id string) (*DebtView, error) {
	var debtID string
	err := s.run(ctx, func(st store, fx *effects) error {
		op, d, err := loadOperation(ctx, st, id, actor)
		if errors.Is(err, ErrOperationNotFound) {
			if _, lookupErr := st.ops.GetByID(ctx, id); lookupErr == nil {
				return ErrNoDeletePermission
			}
		}
		if err != nil {
			return err
		}
		debtID = d.ID
		if d.Type != entity.DebtSingleUser || op.Status != entity.OperationUnchanged ||
			d.Status == entity.DebtConnectUser || d.Status == entity.DebtCreationAwaiting {
			return ErrNoDeletePermission
		}
		d.RevertOperation(op)
		if !entity.WithinMoneyRange(d.Summary) {
			return ErrBalanceTooLarge
		}
		if err := st.ops.Delete(ctx, op.ID); err != nil {
			return err
		}
		return st.debts.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, debtID)
}
