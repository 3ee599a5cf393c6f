package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/pledge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunProposalStoreContract runs a suite of tests to verify that a
// ProposalStore implementation adheres to the defined interface contract.
// Backend test files call it with a freshly initialized store.
func RunProposalStoreContract(t *testing.T, store ProposalStore) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	newProposal := func(initiator, responder string, ttl time.Duration) *domain.Proposal {
		return domain.NewProposal(initiator, responder, domain.KindMarriage,
			map[string]any{"cost": int64(1000)}, base, ttl)
	}

	t.Run("Put and GetByResponder", func(t *testing.T) {
		p := newProposal("alice", "bob", 5*time.Minute)
		require.NoError(t, store.Put(ctx, p))

		got, err := store.GetByResponder(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, "alice", got.InitiatorID)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.NotNil(t, got.Payload)
	})

	t.Run("Put conflict on pending responder", func(t *testing.T) {
		second := newProposal("carol", "bob", 5*time.Minute)
		err := store.Put(ctx, second)
		assert.ErrorIs(t, err, domain.ErrConflict)

		// The original proposal must be untouched.
		got, err := store.GetByResponder(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.InitiatorID)
	})

	t.Run("GetByID any state", func(t *testing.T) {
		p, err := store.GetByResponder(ctx, "bob")
		require.NoError(t, err)

		got, err := store.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)

		_, err = store.GetByID(ctx, "no-such-id")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Transition CAS", func(t *testing.T) {
		p, err := store.GetByResponder(ctx, "bob")
		require.NoError(t, err)

		resolved, err := store.Transition(ctx, p.ID, domain.StatusPending, domain.StatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAccepted, resolved.Status)
		assert.False(t, resolved.ResolvedAt.IsZero(), "terminal transition should stamp ResolvedAt")

		// Second transition out of a terminal state must lose.
		_, err = store.Transition(ctx, p.ID, domain.StatusPending, domain.StatusRejected)
		assert.ErrorIs(t, err, domain.ErrStaleState)

		// The responder slot is free again.
		_, err = store.GetByResponder(ctx, "bob")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Transition unknown id", func(t *testing.T) {
		_, err := store.Transition(ctx, "no-such-id", domain.StatusPending, domain.StatusExpired)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("LastResolved", func(t *testing.T) {
		got, err := store.LastResolved(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAccepted, got.Status)
		assert.Equal(t, "alice", got.InitiatorID)

		_, err = store.LastResolved(ctx, "bob", "nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SweepExpired", func(t *testing.T) {
		short := newProposal("alice", "dave", 1*time.Minute)
		long := newProposal("alice", "erin", 1*time.Hour)
		require.NoError(t, store.Put(ctx, short))
		require.NoError(t, store.Put(ctx, long))

		due, err := store.SweepExpired(ctx, base.Add(2*time.Minute))
		require.NoError(t, err)

		ids := make(map[string]bool)
		for _, p := range due {
			ids[p.ID] = true
		}
		assert.True(t, ids[short.ID], "short-lived proposal should be due")
		assert.False(t, ids[long.ID], "long-lived proposal should not be due")

		// Resolve them so later subtests start clean.
		_, err = store.Transition(ctx, short.ID, domain.StatusPending, domain.StatusExpired)
		require.NoError(t, err)
		_, err = store.Transition(ctx, long.ID, domain.StatusPending, domain.StatusCancelled)
		require.NoError(t, err)
	})

	t.Run("PruneResolved", func(t *testing.T) {
		// Everything resolved so far was stamped with wall-clock time, so a
		// far-future cutoff captures all of it.
		pruned, err := store.PruneResolved(ctx, time.Now().Add(24*time.Hour))
		require.NoError(t, err)
		assert.NotEmpty(t, pruned)
		for _, p := range pruned {
			assert.True(t, p.Status.Terminal(), "pruned proposal %s should be terminal", p.ID)
		}

		// Pruned records are gone.
		for _, p := range pruned {
			_, err := store.GetByID(ctx, p.ID)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		}

		// Pending proposals must never be pruned.
		keep := newProposal("frank", "grace", time.Hour)
		require.NoError(t, store.Put(ctx, keep))
		pruned, err = store.PruneResolved(ctx, time.Now().Add(24*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, pruned)
		_, err = store.GetByID(ctx, keep.ID)
		assert.NoError(t, err)
	})
}
