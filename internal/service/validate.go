package service

import (
	"regexp"

	"github.com/bankapp/ledger-core-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Field-level format validation for registration input and amounts.
// Business rules (duplicate usernames, balance floors) live in the
// services; only string/number shapes are checked here.

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	pinRe      = regexp.MustCompile(`^[0-9]{4,6}$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func validateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return &domain.ErrValidation{Field: "username", Message: "must be 3-20 letters, digits or underscores"}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return &domain.ErrValidation{Field: "password", Message: "must be at least 6 characters"}
	}
	return nil
}

func validatePin(pin string) error {
	if !pinRe.MatchString(pin) {
		return &domain.ErrValidation{Field: "pin", Message: "must be 4-6 digits"}
	}
	return nil
}

func validateFullName(fullName string) error {
	if len(fullName) < 2 {
		return &domain.ErrValidation{Field: "full_name", Message: "required"}
	}
	return nil
}

func validateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return &domain.ErrValidation{Field: "email", Message: "invalid email address"}
	}
	return nil
}

// validateAmount rejects non-positive amounts. Decimal parsing upstream
// already excludes NaN/infinite values.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &domain.ErrValidation{Field: "amount", Message: "must be strictly positive"}
	}
	return nil
}
