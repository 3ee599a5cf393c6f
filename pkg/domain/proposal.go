package domain

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes which downstream action fires when a proposal is accepted.
type Kind string

const (
	// KindMarriage links two accounts and debits the initiator on accept.
	KindMarriage Kind = "marriage"
	// KindBroadcast triggers a mass-send job on accept.
	KindBroadcast Kind = "broadcast"
	// KindConfirmAction gates a destructive account action (e.g. divorce)
	// behind an explicit confirmation from the affected party.
	KindConfirmAction Kind = "confirm-action"
)

// Status defines the lifecycle state of a proposal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Decision is the responder's answer to a pending proposal.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Proposal represents one outstanding offer from an initiator to a responder
// requiring an explicit accept or reject before a deadline.
//
// Payload is immutable after creation. Status transitions exactly once out of
// StatusPending, and only through a store's compare-and-set Transition.
type Proposal struct {
	ID          string         `json:"id"`
	InitiatorID string         `json:"initiator_id"`
	ResponderID string         `json:"responder_id"`
	Kind        Kind           `json:"kind"`
	Payload     map[string]any `json:"payload,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Status      Status         `json:"status"`

	// ResolvedAt records when the proposal left StatusPending. Zero while
	// pending. Used by retention pruning.
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
}

// NewProposal constructs a Pending proposal expiring ttl from now.
func NewProposal(initiatorID, responderID string, kind Kind, payload map[string]any, now time.Time, ttl time.Duration) *Proposal {
	return &Proposal{
		ID:          uuid.NewString(),
		InitiatorID: initiatorID,
		ResponderID: responderID,
		Kind:        kind,
		Payload:     payload,
		CreatedAt:   now.UTC(),
		ExpiresAt:   now.UTC().Add(ttl),
		Status:      StatusPending,
	}
}

// Expired reports whether the deadline has passed at the given instant.
func (p *Proposal) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Clone returns a deep copy so callers cannot mutate stored state by pointer.
func (p *Proposal) Clone() *Proposal {
	cp := *p
	if p.Payload != nil {
		cp.Payload = make(map[string]any, len(p.Payload))
		for k, v := range p.Payload {
			cp.Payload[k] = v
		}
	}
	return &cp
}
