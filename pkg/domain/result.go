package domain

// ResultCode identifies the structural outcome of an engine call.
// Adapters pattern-match on the code to choose user-facing text; the engine
// never returns display strings.
type ResultCode string

const (
	// ResultCreated: a new proposal was stored and its expiry scheduled.
	ResultCreated ResultCode = "created"
	// ResultAlreadyPending: the responder already has an open proposal.
	ResultAlreadyPending ResultCode = "already_pending"
	// ResultAccepted: the proposal was accepted and its outcome applied.
	ResultAccepted ResultCode = "accepted"
	// ResultRejected: the responder declined.
	ResultRejected ResultCode = "rejected"
	// ResultCancelled: the initiator withdrew the offer.
	ResultCancelled ResultCode = "cancelled"
	// ResultAlreadyResolved: the proposal reached a terminal state before
	// this call; Proposal carries the state that actually won.
	ResultAlreadyResolved ResultCode = "already_resolved"
	// ResultExpired: the deadline passed before the response arrived.
	ResultExpired ResultCode = "expired"
	// ResultNotFound: no matching pending proposal for the participants.
	ResultNotFound ResultCode = "not_found"
	// ResultApplyFailed: the proposal is Accepted but the outcome callback
	// failed; ApplyErr carries the cause. Not retried automatically.
	ResultApplyFailed ResultCode = "apply_failed"
)

// Result is the typed outcome of Propose, Respond, or Cancel.
type Result struct {
	Code ResultCode

	// Proposal is a snapshot of the proposal the call resolved against.
	// For ResultNotFound it is nil. For ResultAlreadyPending it is the
	// blocking proposal, not the attempted one.
	Proposal *Proposal

	// ApplyErr is set only for ResultApplyFailed.
	ApplyErr error
}
