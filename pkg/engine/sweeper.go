package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/pledge/internal/logging"
	"github.com/aretw0/pledge/pkg/domain"
	"github.com/aretw0/pledge/pkg/ports"
)

// Archiver receives terminal proposals before they are pruned, e.g. to
// upload them to object storage for duplicate-click forensics.
type Archiver interface {
	Archive(ctx context.Context, p *domain.Proposal) error
}

// Sweeper is the durable safety net behind per-proposal expiry timers: it
// periodically force-expires proposals past their deadline and prunes
// terminal proposals past the retention window. Timers are lost on process
// restart; the sweep is not.
type Sweeper struct {
	store     ports.ProposalStore
	timer     ports.TimerSource
	interval  time.Duration
	retention time.Duration
	archiver  Archiver
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// SweeperOption configures the Sweeper.
type SweeperOption func(*Sweeper)

// WithInterval sets the sweep period. Default 30s.
func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.interval = d
	}
}

// WithRetention sets how long terminal proposals are kept before pruning.
// Default 24h. Retention only needs to cover duplicate-click detection.
func WithRetention(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.retention = d
	}
}

// WithArchiver stores pruned proposals before dropping them.
func WithArchiver(a Archiver) SweeperOption {
	return func(s *Sweeper) {
		s.archiver = a
	}
}

// WithSweepLogger configures the sweep logger.
func WithSweepLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

// WithSweepHooks wires observability callbacks for sweep passes.
func WithSweepHooks(hooks domain.LifecycleHooks) SweeperOption {
	return func(s *Sweeper) {
		s.hooks = hooks
	}
}

// NewSweeper creates a Sweeper over the same store the engine uses.
func NewSweeper(store ports.ProposalStore, timer ports.TimerSource, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		store:     store,
		timer:     timer,
		interval:  30 * time.Second,
		retention: 24 * time.Hour,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps until the context is cancelled. Sweep failures are logged and
// retried on the next tick; they never stop the loop.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Warn("sweep failed, retrying next tick", "err", err)
			}
		}
	}
}

// RunOnce performs a single expiry-and-prune pass.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	now := s.timer.Now()

	expired, err := s.expire(ctx, now)
	if err != nil {
		return err
	}

	pruned, err := s.prune(ctx, now)
	if err != nil {
		return err
	}

	if s.hooks.OnSweep != nil {
		s.hooks.OnSweep(ctx, &domain.SweepEvent{
			Timestamp: now,
			Expired:   expired,
			Pruned:    pruned,
		})
	}
	return nil
}

func (s *Sweeper) expire(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.SweepExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, p := range due {
		_, err := s.store.Transition(ctx, p.ID, domain.StatusPending, domain.StatusExpired)
		if err != nil {
			// Losing the race to an accept, reject, or timer is fine.
			if errors.Is(err, domain.ErrStaleState) || errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return expired, err
		}
		expired++
		s.logger.Debug("proposal expired by sweep",
			"proposal_id", p.ID,
			"responder_id", p.ResponderID,
		)
	}
	return expired, nil
}

func (s *Sweeper) prune(ctx context.Context, now time.Time) (int, error) {
	pruned, err := s.store.PruneResolved(ctx, now.Add(-s.retention))
	if err != nil {
		return 0, err
	}

	if s.archiver != nil {
		for _, p := range pruned {
			if err := s.archiver.Archive(ctx, p); err != nil {
				// The record is already gone from the store; archiving is
				// best-effort and the failure is only logged.
				s.logger.Warn("failed to archive pruned proposal",
					"proposal_id", p.ID,
					"err", err,
				)
			}
		}
	}
	return len(pruned), nil
}
