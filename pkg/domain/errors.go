package domain

import "errors"

// ErrConflict is returned when a responder already has a pending proposal.
var ErrConflict = errors.New("responder already has a pending proposal")

// ErrNotFound is returned when no matching proposal exists.
var ErrNotFound = errors.New("proposal not found")

// ErrExpired is returned when a response arrives past the proposal deadline.
var ErrExpired = errors.New("proposal expired")

// ErrStaleState is returned when a compare-and-set transition loses a race:
// the proposal's current status no longer matches the expected one.
var ErrStaleState = errors.New("proposal status changed concurrently")

// ErrSelfProposal is returned when initiator and responder are the same.
var ErrSelfProposal = errors.New("cannot propose to yourself")

// ErrInvalidTTL is returned when a proposal is created with a non-positive TTL.
var ErrInvalidTTL = errors.New("proposal ttl must be positive")

// ErrUnknownKind is returned when no outcome applier is registered for a kind.
var ErrUnknownKind = errors.New("unknown proposal kind")
