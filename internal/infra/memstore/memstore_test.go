package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/bankapp/ledger-core-go/internal/domain"
	"github.com/bankapp/ledger-core-go/internal/infra/memstore"

	"github.com/shopspring/decimal"
)

func TestUserStore_SaveAndFind(t *testing.T) {
	s := memstore.NewUserStore()
	ctx := context.Background()

	user := &domain.User{UserID: "USR-1", Username: "Alice", CreatedAt: time.Now()}
	if err := s.Save(ctx, user); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.FindByID(ctx, "USR-1")
	if err != nil || got == nil {
		t.Fatalf("find by id: got=%v err=%v", got, err)
	}

	// Username lookups are case-insensitive.
	got, err = s.FindByUsername(ctx, "alice")
	if err != nil || got == nil || got.UserID != "USR-1" {
		t.Fatalf("find by username: got=%v err=%v", got, err)
	}

	exists, _ := s.UsernameExists(ctx, "ALICE")
	if !exists {
		t.Error("expected username to exist regardless of case")
	}
}

func TestUserStore_DuplicateUsername(t *testing.T) {
	s := memstore.NewUserStore()
	ctx := context.Background()

	_ = s.Save(ctx, &domain.User{UserID: "USR-1", Username: "alice"})
	err := s.Save(ctx, &domain.User{UserID: "USR-2", Username: "Alice"})
	if err == nil {
		t.Fatal("expected duplicate username to be rejected")
	}
}

func TestUserStore_FindMissingReturnsNil(t *testing.T) {
	s := memstore.NewUserStore()

	got, err := s.FindByID(context.Background(), "USR-ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing user, got %v", got)
	}
}

func TestUserStore_UpdateDoesNotAliasCaller(t *testing.T) {
	s := memstore.NewUserStore()
	ctx := context.Background()

	user := &domain.User{UserID: "USR-1", Username: "alice"}
	_ = s.Save(ctx, user)

	// Mutating the caller's copy must not leak into the store.
	user.PinFailCount = 99

	got, _ := s.FindByID(ctx, "USR-1")
	if got.PinFailCount != 0 {
		t.Errorf("store must hold its own copy, got fail count %d", got.PinFailCount)
	}
}

func TestAccountStore_SaveUpdateFind(t *testing.T) {
	s := memstore.NewAccountStore()
	ctx := context.Background()

	account := &domain.Account{
		AccountNumber: "ACC-1",
		OwnerUserID:   "USR-1",
		Type:          domain.AccountTypeChecking,
		Balance:       decimal.NewFromInt(100),
		Active:        true,
	}
	if err := s.Save(ctx, account); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, account); err == nil {
		t.Fatal("expected duplicate account number to be rejected")
	}

	account.Balance = decimal.NewFromInt(75)
	if err := s.Update(ctx, account); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.FindByNumber(ctx, "ACC-1")
	if err != nil || got == nil {
		t.Fatalf("find: got=%v err=%v", got, err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(75)) {
		t.Errorf("expected balance 75, got %s", got.Balance)
	}

	if err := s.Update(ctx, &domain.Account{AccountNumber: "ACC-ghost"}); err == nil {
		t.Error("expected update of missing account to fail")
	}
}

func TestAccountStore_ListByOwnerOrdered(t *testing.T) {
	s := memstore.NewAccountStore()
	ctx := context.Background()

	for _, n := range []string{"ACC-3", "ACC-1", "ACC-2"} {
		_ = s.Save(ctx, &domain.Account{AccountNumber: n, OwnerUserID: "USR-1"})
	}
	_ = s.Save(ctx, &domain.Account{AccountNumber: "ACC-9", OwnerUserID: "USR-2"})

	list, err := s.ListByOwner(ctx, "USR-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(list))
	}
	for i, want := range []string{"ACC-1", "ACC-2", "ACC-3"} {
		if list[i].AccountNumber != want {
			t.Errorf("position %d: expected %s, got %s", i, want, list[i].AccountNumber)
		}
	}
}

func TestTransactionStore_CreationOrder(t *testing.T) {
	s := memstore.NewTransactionStore()
	ctx := context.Background()

	for _, id := range []string{"TXN-a", "TXN-b", "TXN-c"} {
		txn := &domain.Transaction{
			TransactionID: id,
			AccountNumber: "ACC-1",
			Type:          domain.TxnDeposit,
			Amount:        decimal.NewFromInt(1),
			Timestamp:     time.Now(),
			Status:        domain.TxnSuccess,
		}
		if err := s.Save(ctx, txn); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	list, err := s.ListByAccount(ctx, "ACC-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 records, got %d", len(list))
	}
	for i, want := range []string{"TXN-a", "TXN-b", "TXN-c"} {
		if list[i].TransactionID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, list[i].TransactionID)
		}
	}

	got, _ := s.FindByID(ctx, "TXN-b")
	if got == nil || got.TransactionID != "TXN-b" {
		t.Errorf("find by id: got %v", got)
	}
}

func TestTransactionStore_DuplicateIDRejected(t *testing.T) {
	s := memstore.NewTransactionStore()
	ctx := context.Background()

	txn := &domain.Transaction{TransactionID: "TXN-a", AccountNumber: "ACC-1"}
	_ = s.Save(ctx, txn)
	if err := s.Save(ctx, txn); err == nil {
		t.Fatal("expected duplicate transaction ID to be rejected")
	}
}
