package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bankapp/ledger-core-go/internal/domain"
	"github.com/bankapp/ledger-core-go/internal/infra/observability"
	"github.com/bankapp/ledger-core-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var txnTracer = otel.Tracer("service/transactions")

// monthsPerYear converts the annual interest rate to one posting period.
var monthsPerYear = decimal.NewFromInt(12)

var oneHundred = decimal.NewFromInt(100)

// TransactionService executes deposits, withdrawals and transfers and
// appends the immutable ledger records. Every balance mutation and its
// record append happen under the account's mutex; Transfer takes both
// account locks in ascending account-number order so two concurrent
// transfers over the same pair in opposite directions cannot deadlock.
//
// The stores provide no transactional semantics; atomicity is owned here.
type TransactionService struct {
	accounts port.AccountStore
	txns     port.TransactionStore
	ids      port.IDGenerator
	metrics  *observability.Metrics
	logger   *zap.Logger

	locks sync.Map // account number -> *sync.Mutex
}

// NewTransactionService creates a new transaction service.
func NewTransactionService(
	accounts port.AccountStore,
	txns port.TransactionStore,
	ids port.IDGenerator,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		accounts: accounts,
		txns:     txns,
		ids:      ids,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *TransactionService) lockFor(accountNumber string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(accountNumber, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// lockPair acquires both account locks in ascending account-number
// order. Callers unlock in any order once both updates committed.
func (s *TransactionService) lockPair(a, b string) (first, second *sync.Mutex) {
	if a > b {
		a, b = b, a
	}
	first = s.lockFor(a)
	second = s.lockFor(b)
	first.Lock()
	second.Lock()
	return first, second
}

// loadActive resolves an account and rejects missing or closed ones.
func (s *TransactionService) loadActive(ctx context.Context, accountNumber string) (*domain.Account, error) {
	account, err := s.accounts.FindByNumber(ctx, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if account == nil {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountNumber}
	}
	if !account.Active {
		return nil, &domain.ErrAccountInactive{AccountNumber: accountNumber}
	}
	return account, nil
}

// appendRecord persists one ledger record and counts it.
func (s *TransactionService) appendRecord(ctx context.Context, accountNumber string, txnType domain.TransactionType, amount decimal.Decimal, description string, status domain.TransactionStatus, counterpart string) (*domain.Transaction, error) {
	txn := &domain.Transaction{
		TransactionID:      s.ids.NewTransactionID(),
		AccountNumber:      accountNumber,
		Type:               txnType,
		Amount:             amount,
		Description:        description,
		Timestamp:          time.Now(),
		Status:             status,
		CounterpartAccount: counterpart,
	}
	if err := s.txns.Save(ctx, txn); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}
	s.metrics.IncrTransaction(string(txnType), string(status))
	return txn, nil
}

// ============================================================
// Deposit
// ============================================================

func (s *TransactionService) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	ctx, span := txnTracer.Start(ctx, "TransactionService.Deposit")
	defer span.End()
	span.SetAttributes(attribute.String("account.number", accountNumber))

	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("deposit", time.Since(start)) }()

	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if description == "" {
		description = "Deposit"
	}

	mu := s.lockFor(accountNumber)
	mu.Lock()
	defer mu.Unlock()

	account, err := s.loadActive(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	account.Balance = account.Balance.Add(amount)
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	txn, err := s.appendRecord(ctx, accountNumber, domain.TxnDeposit, amount, description, domain.TxnSuccess, "")
	if err != nil {
		return nil, err
	}

	s.logger.Info("deposit",
		zap.String("account_number", accountNumber),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("balance", account.Balance.StringFixed(2)),
	)
	return txn, nil
}

// ============================================================
// Withdraw
// ============================================================

func (s *TransactionService) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	ctx, span := txnTracer.Start(ctx, "TransactionService.Withdraw")
	defer span.End()
	span.SetAttributes(attribute.String("account.number", accountNumber))

	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("withdraw", time.Since(start)) }()

	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if description == "" {
		description = "Withdrawal"
	}

	mu := s.lockFor(accountNumber)
	mu.Lock()
	defer mu.Unlock()

	account, err := s.loadActive(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	penalty, err := s.withdrawalPenalty(ctx, account, amount)
	if err != nil {
		return nil, err
	}
	totalDebit := amount.Add(penalty)

	if !account.AllowsBalance(account.Balance.Sub(totalDebit)) {
		// Rejected by the variant rule: record the attempt, balance untouched.
		if _, recErr := s.appendRecord(ctx, accountNumber, domain.TxnWithdrawal, amount, description, domain.TxnFailed, ""); recErr != nil {
			return nil, recErr
		}
		s.logger.Warn("withdrawal rejected",
			zap.String("account_number", accountNumber),
			zap.String("amount", amount.StringFixed(2)),
			zap.String("balance", account.Balance.StringFixed(2)),
		)
		return nil, &domain.ErrInsufficientFunds{
			AccountNumber: accountNumber,
			Available:     account.Balance.Sub(account.MinAllowedBalance()),
			Required:      totalDebit,
		}
	}

	account.Balance = account.Balance.Sub(totalDebit)
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	txn, err := s.appendRecord(ctx, accountNumber, domain.TxnWithdrawal, amount, description, domain.TxnSuccess, "")
	if err != nil {
		return nil, err
	}
	if penalty.IsPositive() {
		if _, err := s.appendRecord(ctx, accountNumber, domain.TxnWithdrawalPenalty, penalty,
			"Excess withdrawal penalty", domain.TxnSuccess, ""); err != nil {
			return nil, err
		}
	}

	s.logger.Info("withdrawal",
		zap.String("account_number", accountNumber),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("penalty", penalty.StringFixed(2)),
		zap.String("balance", account.Balance.StringFixed(2)),
	)
	return txn, nil
}

// withdrawalPenalty evaluates the savings policy hook: once the month's
// successful withdrawals exceed the free allowance, the penalty is a
// percentage of the withdrawn amount. Checking accounts never pay it.
func (s *TransactionService) withdrawalPenalty(ctx context.Context, account *domain.Account, amount decimal.Decimal) (decimal.Decimal, error) {
	if account.Type != domain.AccountTypeSavings || !account.Savings.PenaltyRate.IsPositive() {
		return decimal.Zero, nil
	}

	history, err := s.txns.ListByAccount(ctx, account.AccountNumber)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load history: %w", err)
	}

	now := time.Now()
	count := 0
	for _, t := range history {
		if t.Type == domain.TxnWithdrawal && t.Status == domain.TxnSuccess &&
			t.Timestamp.Year() == now.Year() && t.Timestamp.Month() == now.Month() {
			count++
		}
	}
	if count < account.Savings.FreeMonthlyWithdrawals {
		return decimal.Zero, nil
	}
	return amount.Mul(account.Savings.PenaltyRate).Div(oneHundred).Round(2), nil
}

// ============================================================
// Transfer
// ============================================================

// Transfer moves amount between two accounts as one atomic unit: both
// balances change and both records (TRANSFER_OUT, TRANSFER_IN) append,
// or nothing does. Destination problems fail fast with no record.
func (s *TransactionService) Transfer(ctx context.Context, fromAccountNumber, toAccountNumber string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	ctx, span := txnTracer.Start(ctx, "TransactionService.Transfer")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.from", fromAccountNumber),
		attribute.String("account.to", toAccountNumber),
	)

	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("transfer", time.Since(start)) }()

	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if fromAccountNumber == toAccountNumber {
		return nil, &domain.ErrSelfTransfer{AccountNumber: fromAccountNumber}
	}
	if description == "" {
		description = "Transfer"
	}

	first, second := s.lockPair(fromAccountNumber, toAccountNumber)
	defer second.Unlock()
	defer first.Unlock()

	source, err := s.loadActive(ctx, fromAccountNumber)
	if err != nil {
		return nil, err
	}
	dest, err := s.loadActive(ctx, toAccountNumber)
	if err != nil {
		return nil, err
	}

	if !source.AllowsBalance(source.Balance.Sub(amount)) {
		if _, recErr := s.appendRecord(ctx, fromAccountNumber, domain.TxnTransferOut, amount, description, domain.TxnFailed, toAccountNumber); recErr != nil {
			return nil, recErr
		}
		s.logger.Warn("transfer rejected",
			zap.String("from", fromAccountNumber),
			zap.String("to", toAccountNumber),
			zap.String("amount", amount.StringFixed(2)),
		)
		return nil, &domain.ErrInsufficientFunds{
			AccountNumber: fromAccountNumber,
			Available:     source.Balance.Sub(source.MinAllowedBalance()),
			Required:      amount,
		}
	}

	source.Balance = source.Balance.Sub(amount)
	dest.Balance = dest.Balance.Add(amount)

	// Both locks are held until both updates and both records commit.
	// A store failure past this point would violate atomicity; it is a
	// bug, not a user error, so it surfaces as a wrapped error.
	if err := s.accounts.Update(ctx, source); err != nil {
		return nil, fmt.Errorf("debit source: %w", err)
	}
	if err := s.accounts.Update(ctx, dest); err != nil {
		return nil, fmt.Errorf("credit destination: %w", err)
	}

	outTxn, err := s.appendRecord(ctx, fromAccountNumber, domain.TxnTransferOut, amount, description, domain.TxnSuccess, toAccountNumber)
	if err != nil {
		return nil, err
	}
	if _, err := s.appendRecord(ctx, toAccountNumber, domain.TxnTransferIn, amount, description, domain.TxnSuccess, fromAccountNumber); err != nil {
		return nil, err
	}

	s.logger.Info("transfer",
		zap.String("from", fromAccountNumber),
		zap.String("to", toAccountNumber),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("source_balance", source.Balance.StringFixed(2)),
		zap.String("dest_balance", dest.Balance.StringFixed(2)),
	)
	return outTxn, nil
}

// ============================================================
// Interest
// ============================================================

// PostInterest posts one month of simple interest to an active savings
// account with a positive balance. When to call it is the caller's
// concern; there is no scheduler here.
func (s *TransactionService) PostInterest(ctx context.Context, accountNumber string) (*domain.Transaction, error) {
	ctx, span := txnTracer.Start(ctx, "TransactionService.PostInterest")
	defer span.End()
	span.SetAttributes(attribute.String("account.number", accountNumber))

	mu := s.lockFor(accountNumber)
	mu.Lock()
	defer mu.Unlock()

	account, err := s.loadActive(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if account.Type != domain.AccountTypeSavings {
		return nil, &domain.ErrValidation{Field: "account_number", Message: "interest applies to savings accounts only"}
	}

	interest := account.Balance.Mul(account.InterestRate).Div(oneHundred).Div(monthsPerYear).Round(2)
	if !interest.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "no interest to post"}
	}

	account.Balance = account.Balance.Add(interest)
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	txn, err := s.appendRecord(ctx, accountNumber, domain.TxnInterest, interest, "Monthly interest", domain.TxnSuccess, "")
	if err != nil {
		return nil, err
	}

	s.logger.Info("interest posted",
		zap.String("account_number", accountNumber),
		zap.String("amount", interest.StringFixed(2)),
		zap.String("balance", account.Balance.StringFixed(2)),
	)
	return txn, nil
}

// ============================================================
// History
// ============================================================

// History returns the account's ledger in creation order. The caller
// may reverse it for display.
func (s *TransactionService) History(ctx context.Context, accountNumber string) ([]domain.Transaction, error) {
	ctx, span := txnTracer.Start(ctx, "TransactionService.History")
	defer span.End()

	exists, err := s.accounts.Exists(ctx, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("check account: %w", err)
	}
	if !exists {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountNumber}
	}
	return s.txns.ListByAccount(ctx, accountNumber)
}
