package accounts_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/pledge/internal/accounts"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreSuite exercises the Store semantics shared by both backends.
func runStoreSuite(t *testing.T, store accounts.Store) {
	ctx := context.Background()

	t.Run("Get creates zero account", func(t *testing.T) {
		acc, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		assert.EqualValues(t, 0, acc.Balance)
		assert.Empty(t, acc.Partner)
	})

	t.Run("Marry debits and links", func(t *testing.T) {
		require.NoError(t, store.Credit(ctx, "alice", 5000))
		require.NoError(t, store.Marry(ctx, "alice", "bob", 1000, "prop-1"))

		alice, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		assert.EqualValues(t, 4000, alice.Balance)
		assert.Equal(t, "bob", alice.Partner)

		bob, err := store.Get(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "alice", bob.Partner)
	})

	t.Run("Marry is idempotent per proposal", func(t *testing.T) {
		require.NoError(t, store.Marry(ctx, "alice", "bob", 1000, "prop-1"))

		alice, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		assert.EqualValues(t, 4000, alice.Balance, "replay must not debit twice")
	})

	t.Run("Marry rejects linked accounts", func(t *testing.T) {
		require.NoError(t, store.Credit(ctx, "carol", 5000))
		err := store.Marry(ctx, "carol", "bob", 100, "prop-2")
		assert.ErrorIs(t, err, accounts.ErrAlreadyPartnered)
	})

	t.Run("Marry rejects overdraw", func(t *testing.T) {
		err := store.Marry(ctx, "dave", "erin", 100, "prop-3")
		assert.ErrorIs(t, err, accounts.ErrInsufficientFunds)
	})

	t.Run("Divorce unlinks", func(t *testing.T) {
		require.NoError(t, store.Divorce(ctx, "alice", "bob", "prop-4"))

		alice, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, alice.Partner)
		assert.EqualValues(t, 4000, alice.Balance, "divorce carries no fee")
	})

	t.Run("Divorce requires partnership", func(t *testing.T) {
		err := store.Divorce(ctx, "alice", "bob", "prop-5")
		assert.ErrorIs(t, err, accounts.ErrNotPartnered)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, accounts.NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	runStoreSuite(t, accounts.NewRedisStore(client, ""))
}
