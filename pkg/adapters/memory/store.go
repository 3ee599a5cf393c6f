// Package memory provides an in-memory ProposalStore.
// Safe for concurrent use; suitable for tests and single-process bots.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/pledge/pkg/domain"
)

// Store implements ports.ProposalStore in memory.
// A single mutex covers both indexes, which is what makes Put and Transition
// atomic against concurrent callers.
type Store struct {
	mu        sync.RWMutex
	byID      map[string]*domain.Proposal
	pendingBy map[string]string // responderID -> proposal ID while Pending
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		byID:      make(map[string]*domain.Proposal),
		pendingBy: make(map[string]string),
	}
}

// Put inserts a Pending proposal, rejecting a second one for the same responder.
func (s *Store) Put(ctx context.Context, p *domain.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.pendingBy[p.ResponderID]; busy {
		return domain.ErrConflict
	}

	cp := p.Clone()
	s.byID[cp.ID] = cp
	s.pendingBy[cp.ResponderID] = cp.ID
	return nil
}

// GetByResponder returns the Pending proposal targeting a responder.
func (s *Store) GetByResponder(ctx context.Context, responderID string) (*domain.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.pendingBy[responderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

// GetByID returns a proposal in any state.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

// Transition performs the compare-and-set status change.
func (s *Store) Transition(ctx context.Context, id string, from, to domain.Status) (*domain.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Status != from {
		return nil, domain.ErrStaleState
	}

	p.Status = to
	if to.Terminal() {
		p.ResolvedAt = time.Now().UTC()
		if s.pendingBy[p.ResponderID] == id {
			delete(s.pendingBy, p.ResponderID)
		}
	}
	return p.Clone(), nil
}

// LastResolved returns the most recently resolved proposal between the pair.
func (s *Store) LastResolved(ctx context.Context, responderID, initiatorID string) (*domain.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Proposal
	for _, p := range s.byID {
		if p.ResponderID != responderID || p.InitiatorID != initiatorID || !p.Status.Terminal() {
			continue
		}
		if latest == nil || p.ResolvedAt.After(latest.ResolvedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest.Clone(), nil
}

// SweepExpired returns Pending proposals whose deadline has passed.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) ([]*domain.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*domain.Proposal
	for _, id := range s.pendingBy {
		p := s.byID[id]
		if !p.ExpiresAt.After(now) {
			due = append(due, p.Clone())
		}
	}
	return due, nil
}

// PruneResolved drops terminal proposals resolved before the cutoff.
func (s *Store) PruneResolved(ctx context.Context, olderThan time.Time) ([]*domain.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned []*domain.Proposal
	for id, p := range s.byID {
		if p.Status.Terminal() && p.ResolvedAt.Before(olderThan) {
			pruned = append(pruned, p.Clone())
			delete(s.byID, id)
		}
	}
	return pruned, nil
}
