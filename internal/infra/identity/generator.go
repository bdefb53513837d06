// Package identity implements the ID generator port.
package identity

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator allocates user, account and transaction identifiers.
// User and transaction IDs are UUID-backed; account numbers come from
// an atomic counter so they stay short, ordered and human-readable.
// All three are unique within the process lifetime.
type Generator struct {
	nextAccount atomic.Uint64
}

// NewGenerator creates a generator whose account numbers start at the
// given seed (e.g. 100000).
func NewGenerator(accountSeed uint64) *Generator {
	g := &Generator{}
	g.nextAccount.Store(accountSeed)
	return g
}

func (g *Generator) NewUserID() string {
	return "USR-" + uuid.NewString()
}

func (g *Generator) NewAccountNumber() string {
	return fmt.Sprintf("ACC-%d", g.nextAccount.Add(1))
}

func (g *Generator) NewTransactionID() string {
	return "TXN-" + uuid.NewString()
}
