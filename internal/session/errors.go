package session

import "errors"

var (
	// ErrAuthFailed reports a PIN that does not match the pending account.
	// Retry is unlimited; the terminal keeps the pending account.
	ErrAuthFailed = errors.New("invalid PIN")

	// ErrInvalidAmount rejects amounts that are not positive multiples of
	// 100 rupees, or that exceed the UPI limit. Cash moves in hundreds
	// only; this is a dispensing rule, not input hygiene.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds rejects a withdrawal beyond the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict reports an operation that is not valid in the current
	// session state, e.g. a deposit while logged out.
	ErrConflict = errors.New("operation not valid in current state")
)
