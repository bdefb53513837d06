// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/bankapp/ledger-core-go/internal/domain"
)

// UserStore persists users. FindByID/FindByUsername return (nil, nil)
// when no user matches; not-found is not an error at the store level.
type UserStore interface {
	Save(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// AccountStore persists accounts. No transactional semantics are
// assumed from the store; the transaction service guarantees its own
// atomicity under per-account locks.
type AccountStore interface {
	Save(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	FindByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]domain.Account, error)
	Exists(ctx context.Context, accountNumber string) (bool, error)
}

// TransactionStore persists immutable ledger records. ListByAccount
// returns records in creation order; there is no update or delete.
type TransactionStore interface {
	Save(ctx context.Context, txn *domain.Transaction) error
	FindByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountNumber string) ([]domain.Transaction, error)
}

// CredentialVerifier is the opaque one-way digest capability used for
// both passwords and transaction PINs. Plaintext is never recoverable.
type CredentialVerifier interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// IDGenerator allocates identifiers guaranteed unique within the
// process lifetime.
type IDGenerator interface {
	NewUserID() string
	NewAccountNumber() string
	NewTransactionID() string
}
