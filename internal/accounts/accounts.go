// Package accounts holds the user economy records (balance, partner link)
// that accepted proposals mutate. The workflow engine never touches these
// directly; outcome appliers do, through the Store interface.
package accounts

import (
	"context"
	"errors"
)

// ErrInsufficientFunds is returned when a debit would overdraw an account.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrAlreadyPartnered is returned when a marriage targets a linked account.
var ErrAlreadyPartnered = errors.New("account already has a partner")

// ErrNotPartnered is returned when a divorce targets unlinked accounts.
var ErrNotPartnered = errors.New("accounts are not partners")

// Account is one participant's economy record.
type Account struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
	Partner string `json:"partner,omitempty"`

	// LastApplied is the ID of the last proposal whose outcome touched this
	// account. Guards appliers against double-applying after a crash.
	LastApplied string `json:"last_applied,omitempty"`
}

// Store provides atomic access to account records. Each mutation is a single
// transactional step per backend: an applier must never be able to leave a
// debit without the matching link.
type Store interface {
	// Get returns the account, creating a zero-balance record if missing.
	Get(ctx context.Context, id string) (*Account, error)

	// Credit adds funds to an account.
	Credit(ctx context.Context, id string, amount int64) error

	// Marry debits cost from the initiator and links both accounts as
	// partners, all-or-nothing. Re-running with the same proposalID is a
	// no-op, which makes the marriage outcome idempotent.
	Marry(ctx context.Context, initiatorID, responderID string, cost int64, proposalID string) error

	// Divorce unlinks two partnered accounts. Idempotent via proposalID.
	Divorce(ctx context.Context, initiatorID, responderID, proposalID string) error
}
