// Package commands adapts prefix-triggered chat messages into workflow engine
// calls and engine results into reply text. This is the bot-facing layer: the
// engine itself never sees a chat message or produces a display string.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/pledge/internal/accounts"
	"github.com/aretw0/pledge/internal/logging"
	"github.com/aretw0/pledge/pkg/domain"
	"github.com/aretw0/pledge/pkg/ports"
)

// Workflow is the engine surface the router needs. Kept local so tests can
// substitute a fake without standing up stores.
type Workflow interface {
	Propose(ctx context.Context, initiatorID, responderID string, kind domain.Kind, payload map[string]any, ttl time.Duration) (*domain.Result, error)
	Respond(ctx context.Context, responderID, initiatorID string, decision domain.Decision) (*domain.Result, error)
	Cancel(ctx context.Context, initiatorID, responderID string) (*domain.Result, error)
	Pending(ctx context.Context, responderID string) (*domain.Proposal, error)
}

// Message is one inbound chat message.
type Message struct {
	SenderID string
	ThreadID string
	Text     string
}

// Router parses commands and dispatches them to the workflow engine.
type Router struct {
	engine   Workflow
	chat     ports.ChatClient
	accounts accounts.Store
	logger   *slog.Logger

	prefix     string
	ttl        time.Duration
	approverID string
}

// RouterOption configures the Router.
type RouterOption func(*Router)

// WithPrefix sets the command prefix (default "/").
func WithPrefix(prefix string) RouterOption {
	return func(r *Router) {
		r.prefix = prefix
	}
}

// WithTTL sets how long proposals stay open (default 5m).
func WithTTL(ttl time.Duration) RouterOption {
	return func(r *Router) {
		r.ttl = ttl
	}
}

// WithApprover sets who must confirm broadcast requests.
func WithApprover(id string) RouterOption {
	return func(r *Router) {
		r.approverID = id
	}
}

// WithRouterLogger configures the router logger.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a command router over the engine and chat client.
func NewRouter(engine Workflow, chat ports.ChatClient, accts accounts.Store, opts ...RouterOption) *Router {
	r := &Router{
		engine:   engine,
		chat:     chat,
		accounts: accts,
		logger:   logging.NewNop(),
		prefix:   "/",
		ttl:      5 * time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle parses one message. Text without the prefix is ignored. Replies go
// to the thread the message came from, falling back to the sender.
func (r *Router) Handle(ctx context.Context, msg Message) error {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, r.prefix) {
		return nil
	}

	fields := strings.Fields(strings.TrimPrefix(text, r.prefix))
	if len(fields) == 0 {
		return nil
	}
	keyword, args := strings.ToLower(fields[0]), fields[1:]

	var (
		reply string
		err   error
	)
	switch keyword {
	case "marry":
		reply, err = r.marry(ctx, msg.SenderID, args)
	case "accept", "confirm":
		reply, err = r.respond(ctx, msg.SenderID, args, domain.DecisionAccept)
	case "reject":
		reply, err = r.respond(ctx, msg.SenderID, args, domain.DecisionReject)
	case "divorce":
		reply, err = r.divorce(ctx, msg.SenderID)
	case "broadcast":
		reply, err = r.broadcast(ctx, msg.SenderID, args)
	case "cancel":
		reply, err = r.cancel(ctx, msg.SenderID, args)
	default:
		return nil // not ours; other bot modules may own the keyword
	}
	if err != nil {
		r.logger.Error("command failed",
			"keyword", keyword,
			"sender_id", msg.SenderID,
			"err", err,
		)
		reply = "Something went wrong on our side, try again in a bit."
	}
	if reply == "" {
		return nil
	}

	target := msg.ThreadID
	if target == "" {
		target = msg.SenderID
	}
	return r.chat.SendMessage(ctx, target, reply)
}

// mention strips the leading @ from a participant reference.
func mention(arg string) string {
	return strings.TrimPrefix(arg, "@")
}

// pendingInitiator finds who the sender's open proposal came from, either
// from an explicit mention or from the store.
func (r *Router) pendingInitiator(ctx context.Context, senderID string, args []string) (string, error) {
	if len(args) > 0 {
		return mention(args[0]), nil
	}
	p, err := r.engine.Pending(ctx, senderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return p.InitiatorID, nil
}
