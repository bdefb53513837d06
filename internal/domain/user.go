// Package domain defines the core business entities of the ledger:
// users, accounts and the immutable transaction records that form the
// audit trail. These models are independent of storage and presentation.
package domain

import "time"

// User represents a registered user who may own one or more accounts.
// Password and PIN are stored as one-way digests, never in plaintext.
//
// PinFailCount and PinLocked are written exclusively by the auth
// service's PIN verification path; other code treats them as read-only.
type User struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	PINHash      string    `json:"-"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PinFailCount int       `json:"pin_fail_count"`
	PinLocked    bool      `json:"pin_locked"`
	CreatedAt    time.Time `json:"created_at"`
}
