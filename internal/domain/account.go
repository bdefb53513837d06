package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType tags the account variant. The variant decides the
// withdrawal floor and any penalty hook; there is no subclassing,
// all dispatch happens on this tag.
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
)

// SavingsPolicy is the pluggable withdrawal rule for savings accounts.
// The zero value means: no overdraft, no penalty.
type SavingsPolicy struct {
	// AllowOverdraft permits a negative balance.
	AllowOverdraft bool `json:"allow_overdraft"`
	// FreeMonthlyWithdrawals is the number of successful withdrawals per
	// calendar month before the penalty applies.
	FreeMonthlyWithdrawals int `json:"free_monthly_withdrawals"`
	// PenaltyRate is the penalty as a percentage of the withdrawn
	// amount, posted as a separate WITHDRAWAL_PENALTY record.
	PenaltyRate decimal.Decimal `json:"penalty_rate"`
}

// Account is the common ledger core shared by both variants.
// AccountNumber is immutable and unique; Balance changes only under the
// transaction service's per-account lock. Closed accounts (Active=false)
// keep their balance and history but reject all financial operations.
type Account struct {
	AccountNumber string          `json:"account_number"`
	OwnerUserID   string          `json:"owner_user_id"`
	Type          AccountType     `json:"type"`
	Balance       decimal.Decimal `json:"balance"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`

	// OverdraftLimit applies to checking accounts: the balance may go
	// as low as -OverdraftLimit.
	OverdraftLimit decimal.Decimal `json:"overdraft_limit"`

	// InterestRate (% per year) and Savings apply to savings accounts.
	InterestRate decimal.Decimal `json:"interest_rate"`
	Savings      SavingsPolicy   `json:"savings_policy"`
}

// MinAllowedBalance returns the lowest balance the variant permits:
// -OverdraftLimit for checking, zero for savings without overdraft.
func (a *Account) MinAllowedBalance() decimal.Decimal {
	if a.Type == AccountTypeChecking {
		return a.OverdraftLimit.Neg()
	}
	return decimal.Zero
}

// AllowsBalance reports whether the variant rule accepts the given
// would-be balance after a debit.
func (a *Account) AllowsBalance(b decimal.Decimal) bool {
	if a.Type == AccountTypeSavings && a.Savings.AllowOverdraft {
		return true
	}
	return b.GreaterThanOrEqual(a.MinAllowedBalance())
}
