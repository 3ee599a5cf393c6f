package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventProposed EventType = "proposed"
	EventResolved EventType = "resolved"
	EventSwept    EventType = "swept"
)

// ProposalEvent describes a lifecycle change of a single proposal.
type ProposalEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Proposal  *Proposal `json:"proposal"`
	Code      ResultCode `json:"code"`
}

// SweepEvent summarizes one pass of the expiry sweep.
type SweepEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Expired   int       `json:"expired"`
	Pruned    int       `json:"pruned"`
}

// LifecycleHooks defines callbacks for engine observability. Hosts wire
// loggers and metrics here; all hooks are optional.
type LifecycleHooks struct {
	OnProposed func(context.Context, *ProposalEvent)
	OnResolved func(context.Context, *ProposalEvent)
	OnSweep    func(context.Context, *SweepEvent)
}
