package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisadapter "github.com/aretw0/pledge/pkg/adapters/redis"
	"github.com/aretw0/pledge/pkg/domain"
	"github.com/aretw0/pledge/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *redisadapter.Store {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return redisadapter.NewFromClient(client)
}

func TestRedisStore_Contract(t *testing.T) {
	ports.RunProposalStoreContract(t, newTestStore(t))
}

// TestRedisStore_PutLeavesNoTraceOnConflict verifies that a rejected insert
// does not overwrite the blocking proposal or register a deadline.
func TestRedisStore_PutLeavesNoTraceOnConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	now := time.Now().UTC()
	first := domain.NewProposal("alice", "bob", domain.KindMarriage, nil, now, time.Minute)
	require.NoError(t, store.Put(ctx, first))

	second := domain.NewProposal("carol", "bob", domain.KindBroadcast, nil, now, time.Second)
	require.ErrorIs(t, store.Put(ctx, second), domain.ErrConflict)

	// The losing proposal must not exist under its own ID either.
	_, err := store.GetByID(ctx, second.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// And it must not show up in a sweep after its shorter deadline.
	due, err := store.SweepExpired(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, first.ID, due[0].ID)
}

func TestRedisStore_TransitionClearsPendingIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	now := time.Now().UTC()
	p := domain.NewProposal("alice", "bob", domain.KindMarriage, nil, now, time.Minute)
	require.NoError(t, store.Put(ctx, p))

	_, err := store.Transition(ctx, p.ID, domain.StatusPending, domain.StatusRejected)
	require.NoError(t, err)

	// Responder slot is free, so re-proposing works immediately.
	next := domain.NewProposal("carol", "bob", domain.KindMarriage, nil, now, time.Minute)
	assert.NoError(t, store.Put(ctx, next))
}
