package engine

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/pledge/pkg/adapters/memory"
	"github.com/aretw0/pledge/pkg/clock"
	"github.com/aretw0/pledge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingArchiver struct {
	archived []*domain.Proposal
}

func (a *capturingArchiver) Archive(ctx context.Context, p *domain.Proposal) error {
	a.archived = append(a.archived, p)
	return nil
}

func TestSweepExpiresDueProposals(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fake := clock.NewFake(testBase)

	short := domain.NewProposal("alice", "bob", domain.KindMarriage, nil, testBase, time.Minute)
	long := domain.NewProposal("alice", "carol", domain.KindMarriage, nil, testBase, time.Hour)
	require.NoError(t, store.Put(ctx, short))
	require.NoError(t, store.Put(ctx, long))

	var events []*domain.SweepEvent
	sweeper := NewSweeper(store, fake, WithSweepHooks(domain.LifecycleHooks{
		OnSweep: func(_ context.Context, e *domain.SweepEvent) {
			events = append(events, e)
		},
	}))

	fake.Advance(2 * time.Minute)
	require.NoError(t, sweeper.RunOnce(ctx))

	got, err := store.GetByID(ctx, short.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)

	got, err = store.GetByID(ctx, long.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].Expired)
}

func TestSweepToleratesLostRaces(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fake := clock.NewFake(testBase)

	p := domain.NewProposal("alice", "bob", domain.KindMarriage, nil, testBase, time.Minute)
	require.NoError(t, store.Put(ctx, p))

	// Someone accepts between the scan and the sweep's transition attempt.
	// Simulate by resolving before the sweep runs; the ID is still in the
	// deadline scan window.
	fake.Advance(2 * time.Minute)
	_, err := store.Transition(ctx, p.ID, domain.StatusPending, domain.StatusAccepted)
	require.NoError(t, err)

	require.NoError(t, NewSweeper(store, fake).RunOnce(ctx))

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, got.Status, "sweep must not clobber a resolution")
}

func TestSweepPrunesAndArchivesPastRetention(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fake := clock.NewFake(testBase)
	arch := &capturingArchiver{}

	p := domain.NewProposal("alice", "bob", domain.KindMarriage, nil, testBase, time.Minute)
	require.NoError(t, store.Put(ctx, p))
	_, err := store.Transition(ctx, p.ID, domain.StatusPending, domain.StatusRejected)
	require.NoError(t, err)

	sweeper := NewSweeper(store, fake,
		WithRetention(time.Hour),
		WithArchiver(arch),
	)

	// Within retention: nothing pruned. The memory store stamps ResolvedAt
	// with wall-clock time, so anchor the fake clock against that.
	require.NoError(t, sweeper.RunOnce(ctx))
	assert.Empty(t, arch.archived)

	resolved, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	fake.Advance(resolved.ResolvedAt.Sub(fake.Now()) + 2*time.Hour)

	require.NoError(t, sweeper.RunOnce(ctx))
	require.Len(t, arch.archived, 1)
	assert.Equal(t, p.ID, arch.archived[0].ID)

	_, err = store.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
