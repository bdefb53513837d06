package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Error types for consistent error handling across the ledger core.
// All of these are expected, recoverable outcomes for the caller;
// none of them should terminate the process.

// ErrValidation indicates a validation error (malformed input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrDuplicateUsername indicates a username collision on registration.
type ErrDuplicateUsername struct {
	Username string
}

func (e *ErrDuplicateUsername) Error() string {
	return fmt.Sprintf("username already taken: %s", e.Username)
}

// ErrInvalidCredentials indicates a failed login attempt.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid username or password"
}

// ErrPinLocked indicates the user's PIN is locked; no attempt is
// consumed once this state is reached.
type ErrPinLocked struct {
	UserID string
}

func (e *ErrPinLocked) Error() string {
	return fmt.Sprintf("transaction PIN locked for user %s", e.UserID)
}

// ErrPinMismatch indicates a wrong PIN while still unlocked.
// Remaining is the number of attempts left before lockout.
type ErrPinMismatch struct {
	Remaining int
}

func (e *ErrPinMismatch) Error() string {
	return fmt.Sprintf("incorrect PIN: %d attempt(s) remaining", e.Remaining)
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrAccountInactive indicates the account has been closed and rejects
// all further financial operations.
type ErrAccountInactive struct {
	AccountNumber string
}

func (e *ErrAccountInactive) Error() string {
	return fmt.Sprintf("account is closed: %s", e.AccountNumber)
}

// ErrInsufficientFunds indicates the variant's minimum-balance rule
// rejected a debit. Covers both the checking overdraft limit and the
// savings policy.
type ErrInsufficientFunds struct {
	AccountNumber string
	Available     decimal.Decimal
	Required      decimal.Decimal
}

func (e *ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds on %s: available=%s required=%s",
		e.AccountNumber, e.Available.StringFixed(2), e.Required.StringFixed(2))
}

// ErrSelfTransfer indicates source and destination are the same account.
type ErrSelfTransfer struct {
	AccountNumber string
}

func (e *ErrSelfTransfer) Error() string {
	return fmt.Sprintf("cannot transfer to the same account: %s", e.AccountNumber)
}

// ErrUnauthorized indicates an invalid or expired session token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
