package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const MaxDescriptionLength = 70

// MoneyScale is the number of decimal places money columns keep.
const MoneyScale = 2

// MaxMoney is the exclusive upper bound of amounts and balances (NUMERIC(14,2)).
var MaxMoney = decimal.New(1, 12)

// HasMoneyScale reports whether v needs no more than MoneyScale decimal places.
func HasMoneyScale(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(MoneyScale))
}

// WithinMoneyRange reports whether |v| fits the money columns.
func WithinMoneyRange(v decimal.Decimal) bool {
	return v.Abs().LessThan(MaxMoney)
}

// Operation is one money movement recorded against a debt: MoneyReceiver is
// owed MoneyAmount by the other member.
type Operation struct {
	ID             string          `db:"id"`
	DebtID         string          `db:"debt_id"`
	Date           time.Time       `db:"operation_date"`
	MoneyAmount    decimal.Decimal `db:"money_amount"`
	MoneyReceiver  string          `db:"money_receiver"`
	Description    string          `db:"description"`
	Status         OperationStatus `db:"status"`
	StatusAcceptor *string         `db:"status_acceptor"`
	CreatedAt      time.Time       `db:"created_at"`
}

func (o *Operation) Pending() bool { return o.Status == OperationCreationAwaiting }
