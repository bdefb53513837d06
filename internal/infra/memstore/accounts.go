package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/bankapp/ledger-core-go/internal/domain"
)

// AccountStore keeps accounts in a mutex-guarded map keyed by account
// number. Reads return copies so callers get a consistent snapshot;
// mutations go through Update under the service's per-account lock.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]domain.Account)}
}

func (s *AccountStore) Save(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.AccountNumber]; ok {
		return &domain.ErrValidation{Field: "account_number", Message: "already exists"}
	}
	s.accounts[account.AccountNumber] = *account
	return nil
}

func (s *AccountStore) Update(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.AccountNumber]; !ok {
		return &domain.ErrNotFound{Resource: "account", ID: account.AccountNumber}
	}
	s.accounts[account.AccountNumber] = *account
	return nil
}

func (s *AccountStore) FindByNumber(_ context.Context, accountNumber string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountNumber]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *AccountStore) ListByOwner(_ context.Context, ownerUserID string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Account
	for _, a := range s.accounts {
		if a.OwnerUserID == ownerUserID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AccountNumber < out[j].AccountNumber
	})
	return out, nil
}

func (s *AccountStore) Exists(_ context.Context, accountNumber string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.accounts[accountNumber]
	return ok, nil
}
