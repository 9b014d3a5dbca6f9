package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Debt is the bilateral balance between two users. Member order is kept for
// display only.
type Debt struct {
	ID             string          `db:"id"`
	FirstUserID    string          `db:"first_user_id"`
	SecondUserID   string          `db:"second_user_id"`
	Type           DebtType        `db:"type"`
	Status         DebtStatus      `db:"status"`
	StatusAcceptor *string         `db:"status_acceptor"`
	Summary        decimal.Decimal `db:"summary"`
	MoneyReceiver  *string         `db:"money_receiver"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (d *Debt) Members() [2]string { return [2]string{d.FirstUserID, d.SecondUserID} }

func (d *Debt) IsMember(userID string) bool {
	return userID != "" && (d.FirstUserID == userID || d.SecondUserID == userID)
}

// Other returns the member opposite userID, or "" when userID is not a member.
func (d *Debt) Other(userID string) string {
	switch userID {
	case d.FirstUserID:
		return d.SecondUserID
	case d.SecondUserID:
		return d.FirstUserID
	}
	return ""
}

// IsAcceptor reports whether userID must resolve the current status.
func (d *Debt) IsAcceptor(userID string) bool {
	return d.StatusAcceptor != nil && *d.StatusAcceptor == userID
}

// Settle clears any pending status.
func (d *Debt) Settle() {
	d.Status = DebtUnchanged
	d.StatusAcceptor = nil
}

// Await puts the debt into a pending status resolved by acceptor.
func (d *Debt) Await(status DebtStatus, acceptor string) {
	d.Status = status
	d.StatusAcceptor = &acceptor
}

func (d *Debt) Balance() Balance {
	b := Balance{Summary: d.Summary}
	if d.MoneyReceiver != nil {
		b.Receiver = *d.MoneyReceiver
	}
	return b
}

func (d *Debt) SetBalance(b Balance) {
	d.Summary = b.Summary
	d.MoneyReceiver = nil
	if b.Receiver != "" {
		r := b.Receiver
		d.MoneyReceiver = &r
	}
}

func (d *Debt) ApplyOperation(op *Operation) {
	d.SetBalance(d.Balance().Apply(op.MoneyReceiver, op.MoneyAmount))
}

// RevertOperation undoes ApplyOperation for op.
func (d *Debt) RevertOperation(op *Operation) {
	d.SetBalance(d.Balance().Revert(d.Other(op.MoneyReceiver), op.MoneyAmount))
}

// ReplaceMember swaps from for to in the member list and balance receiver.
func (d *Debt) ReplaceMember(from, to string) {
	if d.FirstUserID == from {
		d.FirstUserID = to
	}
	if d.SecondUserID == from {
		d.SecondUserID = to
	}
	if d.MoneyReceiver != nil && *d.MoneyReceiver == from {
		d.MoneyReceiver = &to
	}
}
