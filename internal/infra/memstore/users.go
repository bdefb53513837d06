// Package memstore provides thread-safe in-memory implementations of
// the store ports. Instances are constructed once at process start and
// injected into services; there is no global singleton. In production
// these could be backed by a database adapter behind the same ports.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/bankapp/ledger-core-go/internal/domain"
)

// UserStore keeps users in a mutex-guarded map keyed by user ID, with a
// username index for login lookups. Usernames are case-insensitive.
type UserStore struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	byUsername map[string]string // lowercase username -> userID
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:      make(map[string]domain.User),
		byUsername: make(map[string]string),
	}
}

func (s *UserStore) Save(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.UserID]; ok {
		return &domain.ErrValidation{Field: "user_id", Message: "already exists"}
	}
	key := strings.ToLower(user.Username)
	if _, ok := s.byUsername[key]; ok {
		return &domain.ErrDuplicateUsername{Username: user.Username}
	}

	s.users[user.UserID] = *user
	s.byUsername[key] = user.UserID
	return nil
}

func (s *UserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.UserID]; !ok {
		return &domain.ErrNotFound{Resource: "user", ID: user.UserID}
	}
	s.users[user.UserID] = *user
	return nil
}

func (s *UserStore) FindByID(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, nil
	}
	u := s.users[id]
	return &u, nil
}

func (s *UserStore) UsernameExists(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byUsername[strings.ToLower(username)]
	return ok, nil
}
