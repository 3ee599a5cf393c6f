package ports

import (
	"context"
	"time"

	"github.com/aretw0/pledge/pkg/domain"
)

// ProposalStore defines the interface for persisting proposals.
//
// Put and Transition are the only mutation paths and must be atomic with
// respect to whatever concurrency exists: a mutex-guarded map, a Lua script,
// or a single-row conditional UPDATE all qualify. This atomicity is the one
// correctness-critical property of the whole module.
type ProposalStore interface {
	// Put inserts a new Pending proposal. Returns domain.ErrConflict if a
	// Pending proposal already exists for the responder; no side effect on
	// failure.
	Put(ctx context.Context, p *domain.Proposal) error

	// GetByResponder returns the current Pending proposal for a responder.
	// Returns domain.ErrNotFound if there is none.
	GetByResponder(ctx context.Context, responderID string) (*domain.Proposal, error)

	// GetByID returns a proposal in any state, or domain.ErrNotFound.
	// Used for idempotent re-resolution checks after a lost CAS race.
	GetByID(ctx context.Context, id string) (*domain.Proposal, error)

	// Transition atomically moves a proposal from one status to another.
	// Returns domain.ErrStaleState if the current status is not `from`,
	// and the updated proposal on success.
	Transition(ctx context.Context, id string, from, to domain.Status) (*domain.Proposal, error)

	// LastResolved returns the most recently resolved proposal between the
	// pair, or domain.ErrNotFound. Lets a duplicate accept after resolution
	// be answered with the state that actually won instead of a blind
	// "not found"; only spans the retention window.
	LastResolved(ctx context.Context, responderID, initiatorID string) (*domain.Proposal, error)

	// SweepExpired returns Pending proposals whose deadline is at or before
	// now. Callers are expected to attempt Transition(Pending, Expired) for
	// each; losing that race is harmless.
	SweepExpired(ctx context.Context, now time.Time) ([]*domain.Proposal, error)

	// PruneResolved removes terminal proposals resolved before the cutoff
	// and returns the removed records so callers can archive them.
	PruneResolved(ctx context.Context, olderThan time.Time) ([]*domain.Proposal, error)
}
