package pledge

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/pledge/internal/logging"
	"github.com/aretw0/pledge/pkg/adapters/memory"
	"github.com/aretw0/pledge/pkg/clock"
	"github.com/aretw0/pledge/pkg/domain"
	"github.com/aretw0/pledge/pkg/engine"
	"github.com/aretw0/pledge/pkg/ports"
)

// Version is the library version, reported by the CLI.
const Version = "0.1.0"

// Service is the high-level entry point for embedding the workflow engine.
// It wires a store, a timer source, and a sweeper behind one constructor so
// hosts don't assemble the pieces by hand.
type Service struct {
	engine  *engine.Engine
	sweeper *engine.Sweeper
	store   ports.ProposalStore
	timer   ports.TimerSource
	logger  *slog.Logger

	appliers      map[domain.Kind]ports.OutcomeApplier
	hooks         domain.LifecycleHooks
	sweepInterval time.Duration
	retention     time.Duration
	archiver      engine.Archiver
}

// Option configures the Service.
type Option func(*Service)

// WithStore injects a proposal store backend (default: in-memory).
func WithStore(store ports.ProposalStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithTimerSource injects a timer source (default: system clock).
func WithTimerSource(timer ports.TimerSource) Option {
	return func(s *Service) {
		s.timer = timer
	}
}

// WithLogger sets the structured logger shared by the engine and sweeper.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithApplier registers the outcome applier for a proposal kind.
func WithApplier(kind domain.Kind, applier ports.OutcomeApplier) Option {
	return func(s *Service) {
		s.appliers[kind] = applier
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithSweepInterval sets how often the background sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		s.sweepInterval = d
	}
}

// WithRetention sets how long resolved proposals are kept before pruning.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		s.retention = d
	}
}

// WithArchiver sets where pruned proposals are archived.
func WithArchiver(a engine.Archiver) Option {
	return func(s *Service) {
		s.archiver = a
	}
}

// New assembles a Service. With no options it runs fully in memory, which is
// the configuration the interactive demo and most tests use.
func New(opts ...Option) *Service {
	s := &Service{
		logger:        logging.NewNop(),
		appliers:      make(map[domain.Kind]ports.OutcomeApplier),
		sweepInterval: 30 * time.Second,
		retention:     24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}
	if s.timer == nil {
		s.timer = clock.NewSystem()
	}

	engOpts := []engine.Option{
		engine.WithLogger(s.logger),
		engine.WithLifecycleHooks(s.hooks),
	}
	for kind, applier := range s.appliers {
		engOpts = append(engOpts, engine.WithApplier(kind, applier))
	}
	s.engine = engine.New(s.store, s.timer, engOpts...)

	sweepOpts := []engine.SweeperOption{
		engine.WithInterval(s.sweepInterval),
		engine.WithRetention(s.retention),
		engine.WithSweepLogger(s.logger),
		engine.WithSweepHooks(s.hooks),
	}
	if s.archiver != nil {
		sweepOpts = append(sweepOpts, engine.WithArchiver(s.archiver))
	}
	s.sweeper = engine.NewSweeper(s.store, s.timer, sweepOpts...)

	return s
}

// Engine exposes the underlying workflow engine for adapters that take the
// narrower interface.
func (s *Service) Engine() *engine.Engine {
	return s.engine
}

// Propose opens a proposal from initiator to responder, expiring after ttl.
func (s *Service) Propose(ctx context.Context, initiatorID, responderID string, kind domain.Kind, payload map[string]any, ttl time.Duration) (*domain.Result, error) {
	return s.engine.Propose(ctx, initiatorID, responderID, kind, payload, ttl)
}

// Respond records the responder's accept or reject decision.
func (s *Service) Respond(ctx context.Context, responderID, initiatorID string, decision domain.Decision) (*domain.Result, error) {
	return s.engine.Respond(ctx, responderID, initiatorID, decision)
}

// Cancel withdraws a pending proposal on behalf of its initiator.
func (s *Service) Cancel(ctx context.Context, initiatorID, responderID string) (*domain.Result, error) {
	return s.engine.Cancel(ctx, initiatorID, responderID)
}

// Pending returns the open proposal targeting a responder, if any.
func (s *Service) Pending(ctx context.Context, responderID string) (*domain.Proposal, error) {
	return s.engine.Pending(ctx, responderID)
}

// Get returns a proposal in any state by ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.Proposal, error) {
	return s.engine.Get(ctx, id)
}

// RunSweeper blocks, running the periodic expiry sweep and retention prune
// until the context is cancelled. Typically started as a goroutine next to
// the serving loop.
func (s *Service) RunSweeper(ctx context.Context) {
	s.sweeper.Run(ctx)
}

// SweepOnce runs a single sweep pass. Used by the one-shot CLI command and
// by cron-style deployments.
func (s *Service) SweepOnce(ctx context.Context) error {
	return s.sweeper.RunOnce(ctx)
}
