package debt

// Error is a rule violation reported to the caller verbatim.
type Error struct{ msg string }

func (e *Error) Error() string { return e.msg }

var (
	ErrDebtNotFound         = &Error{"Debt is not found"}
	ErrDebtAlreadyExists    = &Error{"Such debts object is already created"}
	ErrDebtWithUserExists   = &Error{"You already have Debt with this user"}
	ErrSelfDebt             = &Error{"You cannot create Debts with yourself"}
	ErrUserNotFound         = &Error{"User is not found"}
	ErrVirtualNameTaken     = &Error{"You already have virtual user with such name"}
	ErrConnectionPending    = &Error{"Some user is already waiting for connection to this Debt"}
	ErrUserDeletionPending  = &Error{"You can't connect user to this Debt until you resolve user deletion"}
	ErrNotAcceptor          = &Error{"You are not allowed to accept this Debt"}
	ErrWrongStatus          = &Error{"Debt is not in a status that allows this action"}
	ErrNotSingleDebt        = &Error{"Only single user Debts can be connected to a user"}
	ErrNeedsAcceptance      = &Error{"Cannot modify debts that need acceptance"}
	ErrOperationNotFound    = &Error{"Operation not found"}
	ErrNoDeletePermission   = &Error{"You don't have permissions to delete this operation"}
	ErrOperationNotPending  = &Error{"Operation does not need acceptance"}
	ErrNotOperationAcceptor = &Error{"You are not allowed to accept this operation"}
	ErrAmountNotPositive    = &Error{"Money amount is less then or equal 0"}
	ErrAmountPrecision      = &Error{"Money amount can have at most 2 decimal places"}
	ErrAmountTooLarge       = &Error{"Money amount is too large"}
	ErrBalanceTooLarge      = &Error{"Debt balance would exceed the allowed maximum"}
	ErrReceiverNotMember    = &Error{"Money receiver is not a member of this Debt"}
	ErrDescriptionTooLong   = &Error{"Description must be at most 70 characters"}
)
