package accounts

import (
	"context"
	"sync"
)

// MemoryStore implements Store in memory. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*Account
}

// NewMemoryStore creates an empty in-memory account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]*Account)}
}

func (s *MemoryStore) get(id string) *Account {
	acc, ok := s.data[id]
	if !ok {
		acc = &Account{ID: id}
		s.data[id] = acc
	}
	return acc
}

// Get returns a copy of the account, creating it if missing.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.get(id)
	return &cp, nil
}

// Credit adds funds to an account.
func (s *MemoryStore) Credit(ctx context.Context, id string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).Balance += amount
	return nil
}

// Marry debits the initiator and links both accounts under one lock.
func (s *MemoryStore) Marry(ctx context.Context, initiatorID, responderID string, cost int64, proposalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	init := s.get(initiatorID)
	resp := s.get(responderID)

	if init.LastApplied == proposalID {
		return nil // already applied
	}
	if init.Partner != "" || resp.Partner != "" {
		return ErrAlreadyPartnered
	}
	if init.Balance < cost {
		return ErrInsufficientFunds
	}

	init.Balance -= cost
	init.Partner = responderID
	resp.Partner = initiatorID
	init.LastApplied = proposalID
	resp.LastApplied = proposalID
	return nil
}

// Divorce unlinks two partnered accounts under one lock.
func (s *MemoryStore) Divorce(ctx context.Context, initiatorID, responderID, proposalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	init := s.get(initiatorID)
	resp := s.get(responderID)

	if init.LastApplied == proposalID {
		return nil
	}
	if init.Partner != responderID || resp.Partner != initiatorID {
		return ErrNotPartnered
	}

	init.Partner = ""
	resp.Partner = ""
	init.LastApplied = proposalID
	resp.LastApplied = proposalID
	return nil
}
