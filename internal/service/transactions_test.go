package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bankapp/ledger-core-go/internal/domain"
	"github.com/bankapp/ledger-core-go/internal/infra/identity"
	"github.com/bankapp/ledger-core-go/internal/infra/memstore"
	"github.com/bankapp/ledger-core-go/internal/infra/observability"
	"github.com/bankapp/ledger-core-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// --- Fixture ---

type fixture struct {
	accounts *service.AccountService
	txns     *service.TransactionService
	userID   string
}

func newFixture(t *testing.T, savings domain.SavingsPolicy) *fixture {
	t.Helper()

	users := memstore.NewUserStore()
	accountStore := memstore.NewAccountStore()
	txnStore := memstore.NewTransactionStore()
	ids := identity.NewGenerator(100000)
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	owner := &domain.User{
		UserID:    "USR-owner",
		Username:  "owner",
		FullName:  "Account Owner",
		Email:     "owner@example.com",
		CreatedAt: time.Now(),
	}
	if err := users.Save(context.Background(), owner); err != nil {
		t.Fatalf("seed owner: %v", err)
	}

	return &fixture{
		accounts: service.NewAccountService(accountStore, users, ids, savings, metrics, logger),
		txns:     service.NewTransactionService(accountStore, txnStore, ids, metrics, logger),
		userID:   owner.UserID,
	}
}

func (f *fixture) checking(t *testing.T, balance, overdraft int64) *domain.Account {
	t.Helper()
	account, err := f.accounts.CreateCheckingAccount(context.Background(), f.userID,
		decimal.NewFromInt(balance), decimal.NewFromInt(overdraft))
	if err != nil {
		t.Fatalf("create checking account: %v", err)
	}
	return account
}

func (f *fixture) savings(t *testing.T, balance int64, rate float64) *domain.Account {
	t.Helper()
	account, err := f.accounts.CreateSavingsAccount(context.Background(), f.userID,
		decimal.NewFromInt(balance), decimal.NewFromFloat(rate))
	if err != nil {
		t.Fatalf("create savings account: %v", err)
	}
	return account
}

func (f *fixture) balance(t *testing.T, accountNumber string) decimal.Decimal {
	t.Helper()
	account, err := f.accounts.GetAccount(context.Background(), accountNumber)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return account.Balance
}

func (f *fixture) history(t *testing.T, accountNumber string) []domain.Transaction {
	t.Helper()
	list, err := f.txns.History(context.Background(), accountNumber)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	return list
}

func mustEqual(t *testing.T, got decimal.Decimal, want int64, label string) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Errorf("%s: expected %d, got %s", label, want, got)
	}
}

// --- Deposit ---

func TestDeposit_BalanceConservation(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	account := f.checking(t, 100, 0)

	txn, err := f.txns.Deposit(context.Background(), account.AccountNumber, decimal.NewFromInt(25), "payday")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	mustEqual(t, f.balance(t, account.AccountNumber), 125, "balance")

	history := f.history(t, account.AccountNumber)
	if len(history) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(history))
	}
	got := history[0]
	if got.Type != domain.TxnDeposit || got.Status != domain.TxnSuccess {
		t.Errorf("expected SUCCESS DEPOSIT, got %s %s", got.Status, got.Type)
	}
	if got.TransactionID != txn.TransactionID {
		t.Errorf("returned record does not match the ledger entry")
	}
}

func TestDeposit_RejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	account := f.checking(t, 100, 0)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := f.txns.Deposit(context.Background(), account.AccountNumber, amount, "")
		var validation *domain.ErrValidation
		if !errors.As(err, &validation) {
			t.Errorf("amount %s: expected ErrValidation, got %v", amount, err)
		}
	}

	mustEqual(t, f.balance(t, account.AccountNumber), 100, "balance")
	if n := len(f.history(t, account.AccountNumber)); n != 0 {
		t.Errorf("expected no records for rejected amounts, got %d", n)
	}
}

func TestDeposit_ClosedAccountRejected(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	account := f.checking(t, 100, 0)

	if err := f.accounts.CloseAccount(context.Background(), account.AccountNumber); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := f.txns.Deposit(context.Background(), account.AccountNumber, decimal.NewFromInt(10), "")
	var inactive *domain.ErrAccountInactive
	if !errors.As(err, &inactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
	mustEqual(t, f.balance(t, account.AccountNumber), 100, "balance")
}

// --- Withdraw ---

func TestWithdraw_OverdraftBoundary(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	ctx := context.Background()

	// Within the overdraft limit: 50 - 140 = -90 >= -100.
	within := f.checking(t, 50, 100)
	if _, err := f.txns.Withdraw(ctx, within.AccountNumber, decimal.NewFromInt(140), ""); err != nil {
		t.Fatalf("withdraw 140: %v", err)
	}
	mustEqual(t, f.balance(t, within.AccountNumber), -90, "balance after overdraft withdrawal")

	// Past the limit: 50 - 151 = -101 < -100. Balance untouched.
	past := f.checking(t, 50, 100)
	_, err := f.txns.Withdraw(ctx, past.AccountNumber, decimal.NewFromInt(151), "")
	var insufficient *domain.ErrInsufficientFunds
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	mustEqual(t, f.balance(t, past.AccountNumber), 50, "balance after rejected withdrawal")

	for _, rec := range f.history(t, past.AccountNumber) {
		if rec.Status == domain.TxnSuccess {
			t.Errorf("rejected withdrawal must not add a SUCCESS record, found %s", rec.Type)
		}
	}
}

func TestWithdraw_FailedAttemptIsRecorded(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	account := f.checking(t, 10, 0)

	_, err := f.txns.Withdraw(context.Background(), account.AccountNumber, decimal.NewFromInt(20), "")
	if err == nil {
		t.Fatal("expected rejection")
	}

	history := f.history(t, account.AccountNumber)
	if len(history) != 1 {
		t.Fatalf("expected one FAILED record, got %d records", len(history))
	}
	if history[0].Type != domain.TxnWithdrawal || history[0].Status != domain.TxnFailed {
		t.Errorf("expected FAILED WITHDRAWAL, got %s %s", history[0].Status, history[0].Type)
	}
}

func TestWithdraw_SavingsNoOverdraft(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	account := f.savings(t, 50, 3.5)

	_, err := f.txns.Withdraw(context.Background(), account.AccountNumber, decimal.NewFromInt(51), "")
	var insufficient *domain.ErrInsufficientFunds
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected ErrInsufficientFunds for savings overdraft, got %v", err)
	}
	mustEqual(t, f.balance(t, account.AccountNumber), 50, "balance")
}

func TestWithdraw_SavingsPenaltyPastFreeAllowance(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{FreeMonthlyWithdrawals: 1, PenaltyRate: decimal.NewFromInt(10)})
	account := f.savings(t, 100, 3.5)
	ctx := context.Background()

	// First withdrawal of the month is free.
	if _, err := f.txns.Withdraw(ctx, account.AccountNumber, decimal.NewFromInt(10), ""); err != nil {
		t.Fatalf("first withdrawal: %v", err)
	}
	mustEqual(t, f.balance(t, account.AccountNumber), 90, "balance after free withdrawal")

	// Second one pays 10% of the amount as a separate penalty record.
	if _, err := f.txns.Withdraw(ctx, account.AccountNumber, decimal.NewFromInt(10), ""); err != nil {
		t.Fatalf("second withdrawal: %v", err)
	}
	mustEqual(t, f.balance(t, account.AccountNumber), 79, "balance after penalized withdrawal")

	var penalties int
	for _, rec := range f.history(t, account.AccountNumber) {
		if rec.Type == domain.TxnWithdrawalPenalty {
			penalties++
			if !rec.Amount.Equal(decimal.NewFromInt(1)) {
				t.Errorf("expected penalty of 1.00, got %s", rec.Amount)
			}
			if rec.Status != domain.TxnSuccess {
				t.Errorf("penalty record must be SUCCESS, got %s", rec.Status)
			}
		}
	}
	if penalties != 1 {
		t.Errorf("expected exactly one penalty record, got %d", penalties)
	}
}

func TestWithdraw_SavingsPenaltyCoveredByFloorCheck(t *testing.T) {
	// Amount alone fits, amount+penalty does not: reject, no mutation.
	f := newFixture(t, domain.SavingsPolicy{FreeMonthlyWithdrawals: 0, PenaltyRate: decimal.NewFromInt(10)})
	account := f.savings(t, 105, 3.5)

	_, err := f.txns.Withdraw(context.Background(), account.AccountNumber, decimal.NewFromInt(100), "")
	var insufficient *domain.ErrInsufficientFunds
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	mustEqual(t, f.balance(t, account.AccountNumber), 105, "balance")
}

// --- Transfer ---

func TestTransfer_Atomicity(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	a := f.checking(t, 200, 0)
	b := f.checking(t, 50, 0)

	if _, err := f.txns.Transfer(context.Background(), a.AccountNumber, b.AccountNumber, decimal.NewFromInt(100), "rent"); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	mustEqual(t, f.balance(t, a.AccountNumber), 100, "source balance")
	mustEqual(t, f.balance(t, b.AccountNumber), 150, "destination balance")

	aHist := f.history(t, a.AccountNumber)
	bHist := f.history(t, b.AccountNumber)
	if len(aHist) != 1 || len(bHist) != 1 {
		t.Fatalf("expected exactly one record per side, got %d and %d", len(aHist), len(bHist))
	}

	out, in := aHist[0], bHist[0]
	if out.Type != domain.TxnTransferOut || out.CounterpartAccount != b.AccountNumber {
		t.Errorf("source record: expected TRANSFER_OUT referencing %s, got %s %s", b.AccountNumber, out.Type, out.CounterpartAccount)
	}
	if in.Type != domain.TxnTransferIn || in.CounterpartAccount != a.AccountNumber {
		t.Errorf("destination record: expected TRANSFER_IN referencing %s, got %s %s", a.AccountNumber, in.Type, in.CounterpartAccount)
	}
	if !out.Amount.Equal(in.Amount) {
		t.Errorf("amounts must match: %s vs %s", out.Amount, in.Amount)
	}
}

func TestTransfer_MissingDestination(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	a := f.checking(t, 200, 0)

	_, err := f.txns.Transfer(context.Background(), a.AccountNumber, "ACC-999999", decimal.NewFromInt(100), "")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mustEqual(t, f.balance(t, a.AccountNumber), 200, "source balance")
	if n := len(f.history(t, a.AccountNumber)); n != 0 {
		t.Errorf("expected no records after fail-fast transfer, got %d", n)
	}
}

func TestTransfer_InactiveDestination(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	a := f.checking(t, 200, 0)
	b := f.checking(t, 50, 0)
	if err := f.accounts.CloseAccount(context.Background(), b.AccountNumber); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := f.txns.Transfer(context.Background(), a.AccountNumber, b.AccountNumber, decimal.NewFromInt(100), "")
	var inactive *domain.ErrAccountInactive
	if !errors.As(err, &inactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
	mustEqual(t, f.balance(t, a.AccountNumber), 200, "source balance")
	mustEqual(t, f.balance(t, b.AccountNumber), 50, "destination balance")
}

func TestTransfer_SelfRejected(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	a := f.checking(t, 200, 0)

	_, err := f.txns.Transfer(context.Background(), a.AccountNumber, a.AccountNumber, decimal.NewFromInt(10), "")
	var self *domain.ErrSelfTransfer
	if !errors.As(err, &self) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
	mustEqual(t, f.balance(t, a.AccountNumber), 200, "balance")
}

func TestTransfer_InsufficientFundsLeavesBothUntouched(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	a := f.checking(t, 30, 0)
	b := f.checking(t, 50, 0)

	_, err := f.txns.Transfer(context.Background(), a.AccountNumber, b.AccountNumber, decimal.NewFromInt(100), "")
	var insufficient *domain.ErrInsufficientFunds
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	mustEqual(t, f.balance(t, a.AccountNumber), 30, "source balance")
	mustEqual(t, f.balance(t, b.AccountNumber), 50, "destination balance")
	if n := len(f.history(t, b.AccountNumber)); n != 0 {
		t.Errorf("destination must have no records, got %d", n)
	}
}

func TestTransfer_ConcurrentOppositeDirections(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	a := f.checking(t, 1000, 0)
	b := f.checking(t, 1000, 0)
	ctx := context.Background()
	one := decimal.NewFromInt(1)

	// Opposite-direction transfers over the same pair: ordered lock
	// acquisition must neither deadlock nor lose money.
	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			_, err := f.txns.Transfer(ctx, a.AccountNumber, b.AccountNumber, one, "")
			return err
		})
		g.Go(func() error {
			_, err := f.txns.Transfer(ctx, b.AccountNumber, a.AccountNumber, one, "")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent transfers: %v", err)
	}

	balA := f.balance(t, a.AccountNumber)
	balB := f.balance(t, b.AccountNumber)
	if !balA.Add(balB).Equal(decimal.NewFromInt(2000)) {
		t.Errorf("money created or destroyed: %s + %s != 2000", balA, balB)
	}
	mustEqual(t, balA, 1000, "account A")
	mustEqual(t, balB, 1000, "account B")

	if n := len(f.history(t, a.AccountNumber)); n != 100 {
		t.Errorf("expected 100 records on A (50 out, 50 in), got %d", n)
	}
}

// --- Interest ---

func TestPostInterest_Savings(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	account := f.savings(t, 1200, 12)

	txn, err := f.txns.PostInterest(context.Background(), account.AccountNumber)
	if err != nil {
		t.Fatalf("post interest: %v", err)
	}
	// 1200 * 12% / 12 months = 12.00
	if !txn.Amount.Equal(decimal.NewFromInt(12)) {
		t.Errorf("expected interest of 12.00, got %s", txn.Amount)
	}
	if txn.Type != domain.TxnInterest {
		t.Errorf("expected INTEREST record, got %s", txn.Type)
	}
	mustEqual(t, f.balance(t, account.AccountNumber), 1212, "balance")
}

func TestPostInterest_CheckingRejected(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	account := f.checking(t, 1000, 0)

	_, err := f.txns.PostInterest(context.Background(), account.AccountNumber)
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation for checking account, got %v", err)
	}
}

// --- History ---

func TestHistory_IdempotentRead(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})
	account := f.checking(t, 100, 0)
	ctx := context.Background()

	_, _ = f.txns.Deposit(ctx, account.AccountNumber, decimal.NewFromInt(10), "first")
	_, _ = f.txns.Withdraw(ctx, account.AccountNumber, decimal.NewFromInt(5), "second")
	_, _ = f.txns.Deposit(ctx, account.AccountNumber, decimal.NewFromInt(1), "third")

	first := f.history(t, account.AccountNumber)
	second := f.history(t, account.AccountNumber)

	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 records on both reads, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].TransactionID != second[i].TransactionID {
			t.Errorf("record %d differs between reads: %s vs %s", i, first[i].TransactionID, second[i].TransactionID)
		}
	}
	if first[0].Description != "first" || first[2].Description != "third" {
		t.Error("history must be in creation order")
	}
}

func TestHistory_UnknownAccount(t *testing.T) {
	f := newFixture(t, domain.SavingsPolicy{})

	_, err := f.txns.History(context.Background(), "ACC-999999")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
