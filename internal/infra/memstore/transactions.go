package memstore

import (
	"context"
	"sync"

	"github.com/bankapp/ledger-core-go/internal/domain"
)

// TransactionStore keeps the append-only ledger. Records are stored in
// creation order per account and are never mutated or deleted.
type TransactionStore struct {
	mu        sync.RWMutex
	byID      map[string]domain.Transaction
	byAccount map[string][]string // accountNumber -> transaction IDs in creation order
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		byID:      make(map[string]domain.Transaction),
		byAccount: make(map[string][]string),
	}
}

func (s *TransactionStore) Save(_ context.Context, txn *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[txn.TransactionID]; ok {
		return &domain.ErrValidation{Field: "transaction_id", Message: "already exists"}
	}
	s.byID[txn.TransactionID] = *txn
	s.byAccount[txn.AccountNumber] = append(s.byAccount[txn.AccountNumber], txn.TransactionID)
	return nil
}

func (s *TransactionStore) FindByID(_ context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[transactionID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *TransactionStore) ListByAccount(_ context.Context, accountNumber string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byAccount[accountNumber]
	out := make([]domain.Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out, nil
}
