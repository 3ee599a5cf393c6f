// Package outcomes wires proposal kinds to their side effects: what actually
// happens when a responder accepts. Each applier is registered with the
// engine per kind and must be idempotent, since the engine may legitimately
// re-run it after a crash between the Accepted transition and the effect.
package outcomes

import (
	"context"
	"fmt"

	"github.com/aretw0/pledge/internal/accounts"
	"github.com/aretw0/pledge/internal/broadcast"
	"github.com/aretw0/pledge/pkg/domain"
)

// Marriage debits the initiator and links both accounts. The balance is
// re-checked at acceptance time: funds present at propose time may be gone
// by the time the responder answers.
type Marriage struct {
	Accounts accounts.Store
}

// Apply implements ports.OutcomeApplier.
func (m *Marriage) Apply(ctx context.Context, p *domain.Proposal) error {
	var payload domain.MarriagePayload
	if err := domain.DecodePayload(p, &payload); err != nil {
		return err
	}
	return m.Accounts.Marry(ctx, p.InitiatorID, p.ResponderID, payload.Cost, p.ID)
}

// Divorce unlinks the two partnered accounts named by the proposal.
type Divorce struct {
	Accounts accounts.Store
}

// Apply implements ports.OutcomeApplier.
func (d *Divorce) Apply(ctx context.Context, p *domain.Proposal) error {
	var payload domain.ActionPayload
	if err := domain.DecodePayload(p, &payload); err != nil {
		return err
	}
	if payload.Action != "divorce" {
		return fmt.Errorf("unsupported confirm-action %q", payload.Action)
	}
	return d.Accounts.Divorce(ctx, p.InitiatorID, p.ResponderID, p.ID)
}

// JobPublisher is the broadcast transport; satisfied by *broadcast.Publisher.
type JobPublisher interface {
	Publish(ctx context.Context, job broadcast.Job) error
}

// Broadcast hands an approved mass-send job to the publisher. Duplicate
// publishes collapse downstream: the job is keyed by proposal ID.
type Broadcast struct {
	Publisher JobPublisher
}

// Apply implements ports.OutcomeApplier.
func (b *Broadcast) Apply(ctx context.Context, p *domain.Proposal) error {
	var payload domain.BroadcastPayload
	if err := domain.DecodePayload(p, &payload); err != nil {
		return err
	}
	return b.Publisher.Publish(ctx, broadcast.Job{
		ProposalID: p.ID,
		Body:       payload.Body,
		Audience:   payload.Audience,
		ApprovedBy: p.ResponderID,
		ApprovedAt: p.ResolvedAt,
	})
}
