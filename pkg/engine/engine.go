// Package engine implements the confirmation workflow core: a store-backed
// state machine for time-bounded proposals. All business rules about
// proposing, accepting, rejecting, cancelling, and expiring live here; all
// state lives in the injected ProposalStore.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/pledge/internal/logging"
	"github.com/aretw0/pledge/pkg/domain"
	"github.com/aretw0/pledge/pkg/ports"
)

// Engine is the confirmation workflow core. It is stateless apart from the
// best-effort expiry timers; safety never depends on them, only on the
// store's compare-and-set and the periodic sweep.
type Engine struct {
	store    ports.ProposalStore
	timer    ports.TimerSource
	appliers map[domain.Kind]ports.OutcomeApplier
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]ports.CancelFunc // proposal ID -> expiry timer
}

// Option configures the Engine.
type Option func(*Engine)

// WithApplier registers the outcome side effect for a proposal kind.
// Proposals of unregistered kinds are refused at Propose time.
func WithApplier(kind domain.Kind, applier ports.OutcomeApplier) Option {
	return func(e *Engine) {
		e.appliers[kind] = applier
	}
}

// WithLogger configures a logger for internal events (lost races, timer
// cleanups). Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks wires observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// New creates an Engine on top of a proposal store and a timer source.
func New(store ports.ProposalStore, timer ports.TimerSource, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		timer:    timer,
		appliers: make(map[domain.Kind]ports.OutcomeApplier),
		logger:   logging.NewNop(),
		timers:   make(map[string]ports.CancelFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Propose creates a Pending proposal from initiator to responder, expiring
// after ttl. A responder with an open proposal yields an AlreadyPending
// result carrying the blocking proposal. Validation failures (self-proposal,
// bad ttl, unknown kind) are returned as errors since they are caller bugs,
// not workflow outcomes.
func (e *Engine) Propose(ctx context.Context, initiatorID, responderID string, kind domain.Kind, payload map[string]any, ttl time.Duration) (*domain.Result, error) {
	if initiatorID == responderID {
		return nil, domain.ErrSelfProposal
	}
	if ttl <= 0 {
		return nil, domain.ErrInvalidTTL
	}
	if _, ok := e.appliers[kind]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownKind, kind)
	}

	p := domain.NewProposal(initiatorID, responderID, kind, payload, e.timer.Now(), ttl)

	if err := e.store.Put(ctx, p); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			blocking, lookupErr := e.store.GetByResponder(ctx, responderID)
			if lookupErr != nil && !errors.Is(lookupErr, domain.ErrNotFound) {
				return nil, lookupErr
			}
			return &domain.Result{Code: domain.ResultAlreadyPending, Proposal: blocking}, nil
		}
		return nil, err
	}

	e.scheduleExpiry(p)
	e.fireProposed(ctx, p)
	return &domain.Result{Code: domain.ResultCreated, Proposal: p}, nil
}

// Respond resolves the responder's pending proposal with an accept or reject.
// The initiator must match the stored one, guarding against answering the
// wrong offer. A response past the deadline yields Expired even if no sweep
// has run yet.
func (e *Engine) Respond(ctx context.Context, responderID, initiatorID string, decision domain.Decision) (*domain.Result, error) {
	p, err := e.store.GetByResponder(ctx, responderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return e.alreadyResolvedOrMissing(ctx, responderID, initiatorID)
		}
		return nil, err
	}
	if p.InitiatorID != initiatorID {
		return &domain.Result{Code: domain.ResultNotFound}, nil
	}

	if p.Expired(e.timer.Now()) {
		// Opportunistic expiry; the sweep would catch it eventually.
		return e.resolve(ctx, p.ID, domain.StatusExpired)
	}

	switch decision {
	case domain.DecisionAccept:
		res, err := e.resolve(ctx, p.ID, domain.StatusAccepted)
		if err != nil || res.Code != domain.ResultAccepted {
			return res, err
		}
		if applyErr := e.apply(ctx, res.Proposal); applyErr != nil {
			// The proposal stays Accepted: the cause (e.g. insufficient
			// funds) will not resolve itself, so the failure is reported
			// rather than retried.
			return &domain.Result{Code: domain.ResultApplyFailed, Proposal: res.Proposal, ApplyErr: applyErr}, nil
		}
		return res, nil
	case domain.DecisionReject:
		return e.resolve(ctx, p.ID, domain.StatusRejected)
	default:
		return nil, fmt.Errorf("unknown decision %q", decision)
	}
}

// alreadyResolvedOrMissing distinguishes a duplicate response to a freshly
// resolved proposal from a response to one that never existed. The duplicate
// gets the state that actually won, per the idempotence guarantee. When time
// won, the caller sees Expired, the same answer a live past-deadline response
// gets.
func (e *Engine) alreadyResolvedOrMissing(ctx context.Context, responderID, initiatorID string) (*domain.Result, error) {
	last, err := e.store.LastResolved(ctx, responderID, initiatorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.Result{Code: domain.ResultNotFound}, nil
		}
		return nil, err
	}
	if last.Status == domain.StatusExpired {
		return &domain.Result{Code: domain.ResultExpired, Proposal: last}, nil
	}
	return &domain.Result{Code: domain.ResultAlreadyResolved, Proposal: last}, nil
}

// Cancel withdraws a pending proposal. Only the stored initiator may cancel.
func (e *Engine) Cancel(ctx context.Context, initiatorID, responderID string) (*domain.Result, error) {
	p, err := e.store.GetByResponder(ctx, responderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return e.alreadyResolvedOrMissing(ctx, responderID, initiatorID)
		}
		return nil, err
	}
	if p.InitiatorID != initiatorID {
		return &domain.Result{Code: domain.ResultNotFound}, nil
	}
	return e.resolve(ctx, p.ID, domain.StatusCancelled)
}

// Pending returns the open proposal targeting a responder, if any.
func (e *Engine) Pending(ctx context.Context, responderID string) (*domain.Proposal, error) {
	return e.store.GetByResponder(ctx, responderID)
}

// Get returns a proposal in any state by ID.
func (e *Engine) Get(ctx context.Context, id string) (*domain.Proposal, error) {
	return e.store.GetByID(ctx, id)
}

// resolve attempts the Pending -> to transition. Losing the CAS race is not
// an error: the actual terminal state is re-read and reported, so callers
// never assume their own intended outcome won.
func (e *Engine) resolve(ctx context.Context, id string, to domain.Status) (*domain.Result, error) {
	resolved, err := e.store.Transition(ctx, id, domain.StatusPending, to)
	if err != nil {
		if errors.Is(err, domain.ErrStaleState) {
			actual, readErr := e.store.GetByID(ctx, id)
			if readErr != nil {
				return nil, readErr
			}
			if actual.Status == domain.StatusExpired {
				// Time won the race; same answer a live past-deadline
				// response gets.
				return &domain.Result{Code: domain.ResultExpired, Proposal: actual}, nil
			}
			return &domain.Result{Code: domain.ResultAlreadyResolved, Proposal: actual}, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.Result{Code: domain.ResultNotFound}, nil
		}
		return nil, err
	}

	e.cancelExpiry(id)
	e.fireResolved(ctx, resolved, codeFor(to))
	return &domain.Result{Code: codeFor(to), Proposal: resolved}, nil
}

func (e *Engine) apply(ctx context.Context, p *domain.Proposal) error {
	applier, ok := e.appliers[p.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownKind, p.Kind)
	}
	return applier.Apply(ctx, p)
}

// scheduleExpiry arms the one-shot timer that expires the proposal at its
// deadline. This is a latency optimization on top of the sweep, not a
// correctness requirement: a lost timer (process restart) is covered by the
// next sweep tick.
func (e *Engine) scheduleExpiry(p *domain.Proposal) {
	id := p.ID
	cancel := e.timer.AfterFunc(p.ExpiresAt, func() {
		ctx := context.Background()
		res, err := e.resolve(ctx, id, domain.StatusExpired)
		if err != nil {
			e.logger.Warn("expiry timer failed, sweep will retry",
				"proposal_id", id,
				"err", err,
			)
			return
		}
		if res.Code != domain.ResultExpired {
			e.logger.Debug("expiry timer lost the race",
				"proposal_id", id,
				"code", string(res.Code),
			)
		}
	})

	e.mu.Lock()
	e.timers[id] = cancel
	e.mu.Unlock()
}

func (e *Engine) cancelExpiry(id string) {
	e.mu.Lock()
	cancel, ok := e.timers[id]
	delete(e.timers, id)
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

func (e *Engine) fireProposed(ctx context.Context, p *domain.Proposal) {
	if e.hooks.OnProposed != nil {
		e.hooks.OnProposed(ctx, &domain.ProposalEvent{
			Timestamp: e.timer.Now(),
			Type:      domain.EventProposed,
			Proposal:  p,
			Code:      domain.ResultCreated,
		})
	}
}

func (e *Engine) fireResolved(ctx context.Context, p *domain.Proposal, code domain.ResultCode) {
	if e.hooks.OnResolved != nil {
		e.hooks.OnResolved(ctx, &domain.ProposalEvent{
			Timestamp: e.timer.Now(),
			Type:      domain.EventResolved,
			Proposal:  p,
			Code:      code,
		})
	}
}

func codeFor(s domain.Status) domain.ResultCode {
	switch s {
	case domain.StatusAccepted:
		return domain.ResultAccepted
	case domain.StatusRejected:
		return domain.ResultRejected
	case domain.StatusExpired:
		return domain.ResultExpired
	case domain.StatusCancelled:
		return domain.ResultCancelled
	default:
		return domain.ResultAlreadyResolved
	}
}
