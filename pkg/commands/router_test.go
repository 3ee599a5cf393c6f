package commands

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pledge/internal/accounts"
	"github.com/aretw0/pledge/internal/outcomes"
	"github.com/aretw0/pledge/pkg/adapters/memory"
	"github.com/aretw0/pledge/pkg/clock"
	"github.com/aretw0/pledge/pkg/domain"
	"github.com/aretw0/pledge/pkg/engine"
	"github.com/aretw0/pledge/pkg/ports"
)

// fakeChat records outbound messages and resolves a fixed name table.
type fakeChat struct {
	mu    sync.Mutex
	sent  []sentMessage
	names map[string]string
}

type sentMessage struct {
	To   string
	Text string
}

func (c *fakeChat) SendMessage(_ context.Context, recipientID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{To: recipientID, Text: text})
	return nil
}

func (c *fakeChat) GetUserInfo(_ context.Context, id string) (ports.UserInfo, error) {
	if name, ok := c.names[id]; ok {
		return ports.UserInfo{ID: id, Name: name}, nil
	}
	return ports.UserInfo{ID: id}, nil
}

func (c *fakeChat) last(t *testing.T) sentMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent)
	return c.sent[len(c.sent)-1]
}

func newTestRouter(t *testing.T, opts ...RouterOption) (*Router, *fakeChat, accounts.Store, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	accts := accounts.NewMemoryStore()
	eng := engine.New(memory.NewStore(), fake,
		engine.WithApplier(domain.KindMarriage, &outcomes.Marriage{Accounts: accts}),
		engine.WithApplier(domain.KindConfirmAction, &outcomes.Divorce{Accounts: accts}),
	)
	chat := &fakeChat{names: map[string]string{
		"alice": "Alice",
		"bob":   "Bob",
		"mod":   "The Moderator",
	}}
	router := NewRouter(eng, chat, accts, append([]RouterOption{WithApprover("mod")}, opts...)...)
	return router, chat, accts, fake
}

func handle(t *testing.T, r *Router, sender, text string) {
	t.Helper()
	require.NoError(t, r.Handle(context.Background(), Message{SenderID: sender, Text: text}))
}

func TestIgnoresUnprefixedAndForeignKeywords(t *testing.T) {
	router, chat, _, _ := newTestRouter(t)

	handle(t, router, "alice", "hello there")
	handle(t, router, "alice", "/weather tomorrow")
	handle(t, router, "alice", "/")

	assert.Empty(t, chat.sent)
}

func TestMarryAcceptFlow(t *testing.T) {
	router, chat, accts, _ := newTestRouter(t)
	ctx := context.Background()
	require.NoError(t, accts.Credit(ctx, "alice", 500))

	handle(t, router, "alice", "/marry @bob 200")
	assert.Contains(t, chat.last(t).Text, "Proposal sent to Bob")
	assert.Contains(t, chat.last(t).Text, "200")

	handle(t, router, "bob", "/accept")
	assert.Contains(t, chat.last(t).Text, "married")
	assert.Contains(t, chat.last(t).Text, "Alice")

	acct, err := accts.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "bob", acct.Partner)
	assert.Equal(t, int64(300), acct.Balance)
}

func TestMarryRejectedByResponder(t *testing.T) {
	router, chat, _, _ := newTestRouter(t)

	handle(t, router, "alice", "/marry @bob")
	handle(t, router, "bob", "/reject")
	assert.Contains(t, chat.last(t).Text, "turned down Alice")
}

func TestMarryGuards(t *testing.T) {
	router, chat, accts, _ := newTestRouter(t)
	ctx := context.Background()

	handle(t, router, "alice", "/marry")
	assert.Contains(t, chat.last(t).Text, "Usage:")

	handle(t, router, "alice", "/marry @bob ten")
	assert.Contains(t, chat.last(t).Text, "whole, non-negative")

	handle(t, router, "alice", "/marry @bob 100")
	assert.Contains(t, chat.last(t).Text, "cannot afford")

	handle(t, router, "alice", "/marry @alice")
	assert.Contains(t, chat.last(t).Text, "yourself")

	// second offer to a responder with one already pending
	require.NoError(t, accts.Credit(ctx, "carol", 10))
	handle(t, router, "alice", "/marry @bob")
	handle(t, router, "carol", "/marry @bob")
	assert.Contains(t, chat.last(t).Text, "already has an offer waiting")
}

func TestAcceptWithNothingPending(t *testing.T) {
	router, chat, _, _ := newTestRouter(t)

	handle(t, router, "bob", "/accept")
	assert.Contains(t, chat.last(t).Text, "nothing waiting")
}

func TestAcceptAfterExpiry(t *testing.T) {
	router, chat, _, fake := newTestRouter(t)

	handle(t, router, "alice", "/marry @bob")
	fake.Advance(10 * time.Minute)

	handle(t, router, "bob", "/accept @alice")
	assert.Contains(t, chat.last(t).Text, "expired")
}

func TestDivorceRoundTrip(t *testing.T) {
	router, chat, accts, _ := newTestRouter(t)
	ctx := context.Background()

	handle(t, router, "alice", "/marry @bob")
	handle(t, router, "bob", "/accept")

	handle(t, router, "alice", "/divorce")
	assert.Contains(t, chat.last(t).Text, "confirm")

	handle(t, router, "bob", "/confirm")
	assert.Contains(t, chat.last(t).Text, "divorce from Alice")

	acct, err := accts.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, acct.Partner)
}

func TestDivorceWithoutPartner(t *testing.T) {
	router, chat, _, _ := newTestRouter(t)

	handle(t, router, "alice", "/divorce")
	assert.Contains(t, chat.last(t).Text, "not married")
}

func TestBroadcastNeedsApproval(t *testing.T) {
	router, chat, _, _ := newTestRouter(t)

	handle(t, router, "alice", "/broadcast big news for everyone")
	assert.Contains(t, chat.last(t).Text, "approval by The Moderator")

	handle(t, router, "mod", "/reject")
	assert.Contains(t, chat.last(t).Text, "turned down Alice")
}

func TestBroadcastDisabledWithoutApprover(t *testing.T) {
	router, chat, _, _ := newTestRouter(t, WithApprover(""))

	handle(t, router, "alice", "/broadcast hi")
	assert.Contains(t, chat.last(t).Text, "not enabled")
}

func TestCancelOwnOffer(t *testing.T) {
	router, chat, _, _ := newTestRouter(t)

	handle(t, router, "alice", "/marry @bob")
	handle(t, router, "alice", "/cancel @bob")
	assert.Contains(t, chat.last(t).Text, "withdrawn")

	handle(t, router, "bob", "/accept")
	assert.Contains(t, chat.last(t).Text, "nothing waiting")
}

func TestCancelOnlyByInitiator(t *testing.T) {
	router, chat, _, _ := newTestRouter(t)

	handle(t, router, "alice", "/marry @bob")
	handle(t, router, "carol", "/cancel @bob")
	assert.Contains(t, chat.last(t).Text, "no open offer")
}

func TestRepliesGoToThreadWhenSet(t *testing.T) {
	router, chat, _, _ := newTestRouter(t)

	require.NoError(t, router.Handle(context.Background(), Message{
		SenderID: "alice",
		ThreadID: "thread-9",
		Text:     "/marry @bob",
	}))
	assert.Equal(t, "thread-9", chat.last(t).To)
}

func TestCustomPrefix(t *testing.T) {
	router, chat, _, _ := newTestRouter(t, WithPrefix("!"))

	handle(t, router, "alice", "/marry @bob")
	assert.Empty(t, chat.sent)

	handle(t, router, "alice", "!marry @bob")
	assert.True(t, strings.HasPrefix(chat.last(t).Text, "Proposal sent"))
}
