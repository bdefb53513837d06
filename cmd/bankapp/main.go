// Command bankapp is the interactive console front end for the ledger
// core. It captures input and renders results; all business rules live
// in the service layer.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bankapp/ledger-core-go/internal/config"
	"github.com/bankapp/ledger-core-go/internal/domain"
	"github.com/bankapp/ledger-core-go/internal/infra/crypto"
	"github.com/bankapp/ledger-core-go/internal/infra/identity"
	"github.com/bankapp/ledger-core-go/internal/infra/memstore"
	"github.com/bankapp/ledger-core-go/internal/infra/observability"
	"github.com/bankapp/ledger-core-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("log_level", cfg.LogLevel),
		zap.Int("pin_max_attempts", cfg.PinMaxAttempts),
		zap.Int("bcrypt_cost", cfg.BcryptCost),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Bool("traces_enabled", cfg.TracesEnabled),
	)

	// --- Tracing ---
	if cfg.TracesEnabled {
		shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "bankapp-core")
		if err != nil {
			logger.Fatal("failed to init tracer", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Stores (injected, no global singletons) ---
	users := memstore.NewUserStore()
	accounts := memstore.NewAccountStore()
	txns := memstore.NewTransactionStore()

	// --- Infra ---
	verifier := crypto.NewBcryptVerifier(cfg.BcryptCost)
	ids := identity.NewGenerator(cfg.AccountNumberSeed)

	// --- Services ---
	authSvc := service.NewAuthService(users, verifier, ids,
		cfg.PinMaxAttempts, cfg.JWTSecret, cfg.JWTAccessTTL, metrics, logger)
	savingsDefaults := domain.SavingsPolicy{
		FreeMonthlyWithdrawals: cfg.SavingsFreeWithdrawals,
		PenaltyRate:            decimal.NewFromFloat(cfg.SavingsPenaltyRate),
	}
	accountSvc := service.NewAccountService(accounts, users, ids, savingsDefaults, metrics, logger)
	txnSvc := service.NewTransactionService(accounts, txns, ids, metrics, logger)

	app := &console{
		in:       bufio.NewScanner(os.Stdin),
		auth:     authSvc,
		accounts: accountSvc,
		txns:     txnSvc,
		metrics:  metrics,
	}
	app.run(context.Background())
}

// console drives the interactive session. It holds the logged-in user
// between commands but never touches PIN or balance state directly.
type console struct {
	in       *bufio.Scanner
	auth     *service.AuthService
	accounts *service.AccountService
	txns     *service.TransactionService
	metrics  *observability.Metrics

	user *domain.User
}

func (c *console) run(ctx context.Context) {
	fmt.Println("=== BankApp ===")
	for {
		if c.user == nil {
			if !c.anonMenu(ctx) {
				break
			}
			continue
		}
		if !c.userMenu(ctx) {
			break
		}
	}

	snap := c.metrics.GetSnapshot()
	fmt.Printf("Session summary: %.0f successful, %.0f failed transactions\n",
		snap.SuccessfulTransactions, snap.FailedTransactions)
	fmt.Println("Goodbye.")
}

func (c *console) anonMenu(ctx context.Context) bool {
	fmt.Println("\n1) Register  2) Login  0) Exit")
	switch c.prompt("> ") {
	case "1":
		c.register(ctx)
	case "2":
		c.login(ctx)
	case "0":
		return false
	}
	return true
}

func (c *console) userMenu(ctx context.Context) bool {
	fmt.Printf("\n[%s] 1) Accounts  2) Open checking  3) Open savings  4) Deposit  5) Withdraw  6) Transfer  7) History  8) Post interest  9) Close account  10) Logout  0) Exit\n", c.user.Username)
	switch c.prompt("> ") {
	case "1":
		c.listAccounts(ctx)
	case "2":
		c.openChecking(ctx)
	case "3":
		c.openSavings(ctx)
	case "4":
		c.deposit(ctx)
	case "5":
		c.withdraw(ctx)
	case "6":
		c.transfer(ctx)
	case "7":
		c.history(ctx)
	case "8":
		c.postInterest(ctx)
	case "9":
		c.closeAccount(ctx)
	case "10":
		c.user = nil
	case "0":
		return false
	}
	return true
}

func (c *console) register(ctx context.Context) {
	req := &service.RegisterRequest{
		Username: c.prompt("Username: "),
		Password: c.prompt("Password: "),
		PIN:      c.prompt("Transaction PIN (4-6 digits): "),
		FullName: c.prompt("Full name: "),
		Email:    c.prompt("Email: "),
	}
	user, err := c.auth.Register(ctx, req)
	if err != nil {
		fmt.Println("Registration failed:", err)
		return
	}
	fmt.Println("Registered:", user.UserID)
}

func (c *console) login(ctx context.Context) {
	username := c.prompt("Username: ")
	password := c.prompt("Password: ")
	result, err := c.auth.Login(ctx, username, password)
	if err != nil {
		fmt.Println("Login failed:", err)
		return
	}
	c.user = result.User
	fmt.Printf("Welcome, %s (session valid %ds)\n", result.User.FullName, result.ExpiresIn)
}

// verifyPin gates every money movement with a PIN prompt. Returns
// false when the attempt fails or the PIN is locked.
func (c *console) verifyPin(ctx context.Context) bool {
	locked, err := c.auth.IsPinLocked(ctx, c.user.UserID)
	if err != nil {
		fmt.Println("Error:", err)
		return false
	}
	if locked {
		fmt.Println("PIN locked. Contact support to reset.")
		return false
	}

	pin := c.prompt("Enter transaction PIN: ")
	if err := c.auth.VerifyPin(ctx, c.user.UserID, pin); err != nil {
		fmt.Println(err)
		return false
	}
	return true
}

func (c *console) listAccounts(ctx context.Context) {
	list, err := c.accounts.ListAccounts(ctx, c.user.UserID)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(list) == 0 {
		fmt.Println("No accounts yet.")
		return
	}
	for _, a := range list {
		status := "active"
		if !a.Active {
			status = "closed"
		}
		fmt.Printf("  %s  %-8s  balance=%s  (%s)\n",
			a.AccountNumber, a.Type, a.Balance.StringFixed(2), status)
	}
}

func (c *console) openChecking(ctx context.Context) {
	balance, ok := c.promptAmount("Initial balance: ")
	if !ok {
		return
	}
	limit, ok := c.promptAmount("Overdraft limit: ")
	if !ok {
		return
	}
	account, err := c.accounts.CreateCheckingAccount(ctx, c.user.UserID, balance, limit)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Opened checking account", account.AccountNumber)
}

func (c *console) openSavings(ctx context.Context) {
	balance, ok := c.promptAmount("Initial balance: ")
	if !ok {
		return
	}
	rate, ok := c.promptAmount("Interest rate (%/year): ")
	if !ok {
		return
	}
	account, err := c.accounts.CreateSavingsAccount(ctx, c.user.UserID, balance, rate)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Opened savings account", account.AccountNumber)
}

func (c *console) deposit(ctx context.Context) {
	number := c.prompt("Account number: ")
	amount, ok := c.promptAmount("Amount: ")
	if !ok || !c.verifyPin(ctx) {
		return
	}
	txn, err := c.txns.Deposit(ctx, number, amount, c.prompt("Description (optional): "))
	if err != nil {
		fmt.Println("Deposit failed:", err)
		return
	}
	fmt.Println("Deposit recorded:", txn.TransactionID)
}

func (c *console) withdraw(ctx context.Context) {
	number := c.prompt("Account number: ")
	amount, ok := c.promptAmount("Amount: ")
	if !ok || !c.verifyPin(ctx) {
		return
	}
	txn, err := c.txns.Withdraw(ctx, number, amount, c.prompt("Description (optional): "))
	if err != nil {
		var insufficient *domain.ErrInsufficientFunds
		if errors.As(err, &insufficient) {
			fmt.Println("Rejected:", err)
		} else {
			fmt.Println("Withdrawal failed:", err)
		}
		return
	}
	fmt.Println("Withdrawal recorded:", txn.TransactionID)
}

func (c *console) transfer(ctx context.Context) {
	from := c.prompt("From account: ")
	to := c.prompt("To account: ")
	amount, ok := c.promptAmount("Amount: ")
	if !ok || !c.verifyPin(ctx) {
		return
	}
	txn, err := c.txns.Transfer(ctx, from, to, amount, c.prompt("Description (optional): "))
	if err != nil {
		fmt.Println("Transfer failed:", err)
		return
	}
	fmt.Println("Transfer recorded:", txn.TransactionID)
}

func (c *console) history(ctx context.Context) {
	number := c.prompt("Account number: ")
	list, err := c.txns.History(ctx, number)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(list) == 0 {
		fmt.Println("No transactions found.")
		return
	}
	// Newest first for display; the service keeps creation order.
	for i := len(list) - 1; i >= 0; i-- {
		t := list[i]
		line := fmt.Sprintf("  %s  %-18s  %-7s  %s",
			t.Timestamp.Format("2006-01-02 15:04:05"), t.Type, t.Status, t.Amount.StringFixed(2))
		if t.CounterpartAccount != "" {
			line += "  ↔ " + t.CounterpartAccount
		}
		if t.Description != "" {
			line += "  " + t.Description
		}
		fmt.Println(line)
	}
}

func (c *console) postInterest(ctx context.Context) {
	number := c.prompt("Savings account number: ")
	txn, err := c.txns.PostInterest(ctx, number)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Interest posted:", txn.Amount.StringFixed(2))
}

func (c *console) closeAccount(ctx context.Context) {
	number := c.prompt("Account number: ")
	if err := c.accounts.CloseAccount(ctx, number); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Account closed.")
}

func (c *console) prompt(label string) string {
	fmt.Print(label)
	if !c.in.Scan() {
		return ""
	}
	return strings.TrimSpace(c.in.Text())
}

func (c *console) promptAmount(label string) (decimal.Decimal, bool) {
	raw := c.prompt(label)
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		fmt.Println("Invalid amount:", raw)
		return decimal.Zero, false
	}
	return amount, true
}
