package entity

import "github.com/shopspring/decimal"

// Balance is the running state of a debt: Receiver is owed Summary by the
// other member. Summary is never negative and Receiver is "" exactly when
// Summary is zero.
type Balance struct {
	Summary  decimal.Decimal
	Receiver string
}

// Apply folds a movement of amount owed to target into the balance.
func (b Balance) Apply(target string, amount decimal.Decimal) Balance {
	delta := amount
	if b.Receiver != "" && b.Receiver != target {
		delta = amount.Neg()
	}
	s := b.Summary.Add(delta)
	switch {
	case s.IsZero():
		return Balance{Summary: decimal.Zero}
	case s.IsNegative():
		return Balance{Summary: s.Neg(), Receiver: target}
	case b.Receiver == "":
		return Balance{Summary: s, Receiver: target}
	default:
		return Balance{Summary: s, Receiver: b.Receiver}
	}
}

// Revert undoes a movement owed to the member opposite counterpart by applying
// the same amount owed to counterpart.
func (b Balance) Revert(counterpart string, amount decimal.Decimal) Balance {
	return b.Apply(counterpart, amount)
}
