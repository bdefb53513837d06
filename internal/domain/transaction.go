package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger record.
type TransactionType string

const (
	TxnDeposit           TransactionType = "DEPOSIT"
	TxnWithdrawal        TransactionType = "WITHDRAWAL"
	TxnTransferOut       TransactionType = "TRANSFER_OUT"
	TxnTransferIn        TransactionType = "TRANSFER_IN"
	TxnInterest          TransactionType = "INTEREST"
	TxnWithdrawalPenalty TransactionType = "WITHDRAWAL_PENALTY"
)

// TransactionStatus records the outcome of the operation that produced
// the record.
type TransactionStatus string

const (
	TxnSuccess TransactionStatus = "SUCCESS"
	TxnFailed  TransactionStatus = "FAILED"
)

// Transaction is one immutable entry in an account's ledger. Amount is
// always the positive magnitude; the Type carries the direction.
// CounterpartAccount is set on TRANSFER_OUT/TRANSFER_IN records and
// names the other side of the transfer.
//
// Records are created once and never mutated or deleted; the per-account
// sequence of records is the authoritative audit trail.
type Transaction struct {
	TransactionID      string            `json:"transaction_id"`
	AccountNumber      string            `json:"account_number"`
	Type               TransactionType   `json:"type"`
	Amount             decimal.Decimal   `json:"amount"`
	Description        string            `json:"description"`
	Timestamp          time.Time         `json:"timestamp"`
	Status             TransactionStatus `json:"status"`
	CounterpartAccount string            `json:"counterpart_account,omitempty"`
}
