package ports

import (
	"context"

	"github.com/aretw0/pledge/pkg/domain"
)

// OutcomeApplier performs the domain action behind an accepted proposal:
// debit and link accounts for a marriage, enqueue a mass-send job for a
// broadcast. The engine invokes it exactly once per acceptance, after the
// Pending -> Accepted transition wins.
//
// An applier must be idempotent or guarded (e.g. by recording the proposal
// ID it last applied) so a retried call after a crash does not double-apply.
// It is responsible for its own atomicity; the engine treats it as fallible
// and non-cancelable once started.
type OutcomeApplier interface {
	Apply(ctx context.Context, p *domain.Proposal) error
}

// ApplierFunc adapts a plain function to the OutcomeApplier interface.
type ApplierFunc func(ctx context.Context, p *domain.Proposal) error

// Apply implements OutcomeApplier.
func (f ApplierFunc) Apply(ctx context.Context, p *domain.Proposal) error {
	return f(ctx, p)
}
