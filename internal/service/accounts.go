package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bankapp/ledger-core-go/internal/domain"
	"github.com/bankapp/ledger-core-go/internal/infra/observability"
	"github.com/bankapp/ledger-core-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var accountTracer = otel.Tracer("service/accounts")

// AccountService handles the account lifecycle: opening checking and
// savings accounts and closing them. Closing is terminal; the account
// keeps its balance and ledger but rejects all financial operations.
type AccountService struct {
	accounts port.AccountStore
	users    port.UserStore
	ids      port.IDGenerator
	metrics  *observability.Metrics
	logger   *zap.Logger

	// savingsDefaults is applied to every new savings account; the
	// stored policy on the account is what the withdrawal rule reads,
	// so individual accounts can diverge later.
	savingsDefaults domain.SavingsPolicy
}

// NewAccountService creates a new account lifecycle service.
func NewAccountService(
	accounts port.AccountStore,
	users port.UserStore,
	ids port.IDGenerator,
	savingsDefaults domain.SavingsPolicy,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		accounts:        accounts,
		users:           users,
		ids:             ids,
		savingsDefaults: savingsDefaults,
		metrics:         metrics,
		logger:          logger,
	}
}

func (s *AccountService) CreateCheckingAccount(ctx context.Context, userID string, initialBalance, overdraftLimit decimal.Decimal) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.CreateCheckingAccount")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if initialBalance.IsNegative() {
		return nil, &domain.ErrValidation{Field: "initial_balance", Message: "must not be negative"}
	}
	if overdraftLimit.IsNegative() {
		return nil, &domain.ErrValidation{Field: "overdraft_limit", Message: "must not be negative"}
	}

	account := &domain.Account{
		Type:           domain.AccountTypeChecking,
		Balance:        initialBalance,
		OverdraftLimit: overdraftLimit,
	}
	return s.create(ctx, userID, account)
}

func (s *AccountService) CreateSavingsAccount(ctx context.Context, userID string, initialBalance, interestRate decimal.Decimal) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.CreateSavingsAccount")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if initialBalance.IsNegative() {
		return nil, &domain.ErrValidation{Field: "initial_balance", Message: "must not be negative"}
	}
	if interestRate.IsNegative() {
		return nil, &domain.ErrValidation{Field: "interest_rate", Message: "must not be negative"}
	}

	account := &domain.Account{
		Type:         domain.AccountTypeSavings,
		Balance:      initialBalance,
		InterestRate: interestRate,
		Savings:      s.savingsDefaults,
	}
	return s.create(ctx, userID, account)
}

func (s *AccountService) create(ctx context.Context, userID string, account *domain.Account) (*domain.Account, error) {
	owner, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find owner: %w", err)
	}
	if owner == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}

	account.AccountNumber = s.ids.NewAccountNumber()
	account.OwnerUserID = userID
	account.Active = true
	account.CreatedAt = time.Now()

	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}

	s.metrics.IncrAccountCreated(string(account.Type))
	s.logger.Info("account created",
		zap.String("account_number", account.AccountNumber),
		zap.String("owner_user_id", userID),
		zap.String("type", string(account.Type)),
		zap.String("balance", account.Balance.StringFixed(2)),
	)

	return account, nil
}

// CloseAccount deactivates the account. The transition is irreversible
// and does not require a zero balance.
func (s *AccountService) CloseAccount(ctx context.Context, accountNumber string) error {
	ctx, span := accountTracer.Start(ctx, "AccountService.CloseAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.number", accountNumber))

	account, err := s.accounts.FindByNumber(ctx, accountNumber)
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	if account == nil {
		return &domain.ErrNotFound{Resource: "account", ID: accountNumber}
	}
	if !account.Active {
		return &domain.ErrAccountInactive{AccountNumber: accountNumber}
	}

	account.Active = false
	if err := s.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	s.logger.Info("account closed",
		zap.String("account_number", accountNumber),
		zap.String("remaining_balance", account.Balance.StringFixed(2)),
	)
	return nil
}

// GetAccount returns the account or *ErrNotFound.
func (s *AccountService) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	account, err := s.accounts.FindByNumber(ctx, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if account == nil {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountNumber}
	}
	return account, nil
}

// ListAccounts returns all accounts owned by the user, ordered by
// account number.
func (s *AccountService) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	return s.accounts.ListByOwner(ctx, userID)
}
