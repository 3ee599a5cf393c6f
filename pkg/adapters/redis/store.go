// Package redis provides a Redis-backed ProposalStore.
//
// Atomicity of Put and Transition is guaranteed by Lua scripts: Redis runs a
// script as a single unit, so the check-and-write cannot interleave with a
// concurrent caller. Deadlines and resolution times are kept in ZSET indexes
// so sweeps and pruning are range scans rather than full key scans.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/pledge/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.ProposalStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix for all proposal keys.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "pledge:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) proposalKey(id string) string {
	return s.prefix + "proposal:" + id
}

func (s *Store) pendingKey(responderID string) string {
	return s.prefix + "pending:" + responderID
}

func (s *Store) deadlineKey() string {
	return s.prefix + "deadlines"
}

func (s *Store) resolvedKey() string {
	return s.prefix + "resolved"
}

func (s *Store) lastKey(responderID, initiatorID string) string {
	return s.prefix + "last:" + responderID + ":" + initiatorID
}

// putScript inserts the proposal only if the responder has no pending one.
// Returns 1 on success, 0 on conflict.
var putScript = backend.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 1 then
		return 0
	end
	redis.call("HSET", KEYS[2], "data", ARGV[2], "status", ARGV[3])
	redis.call("SET", KEYS[1], ARGV[1])
	redis.call("ZADD", KEYS[3], ARGV[4], ARGV[1])
	return 1
`)

// transitionScript is the compare-and-set. Returns 1 on success, 0 if the
// proposal does not exist, -1 if the current status does not match.
var transitionScript = backend.NewScript(`
	local cur = redis.call("HGET", KEYS[1], "status")
	if not cur then
		return 0
	end
	if cur ~= ARGV[1] then
		return -1
	end
	redis.call("HSET", KEYS[1], "status", ARGV[2], "resolved_at", ARGV[3])
	if redis.call("GET", KEYS[2]) == ARGV[4] then
		redis.call("DEL", KEYS[2])
	end
	redis.call("ZREM", KEYS[3], ARGV[4])
	redis.call("ZADD", KEYS[4], ARGV[3], ARGV[4])
	redis.call("SET", KEYS[5], ARGV[4])
	return 1
`)

// Put inserts a Pending proposal atomically against concurrent proposers.
func (s *Store) Put(ctx context.Context, p *domain.Proposal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal proposal: %w", err)
	}

	keys := []string{s.pendingKey(p.ResponderID), s.proposalKey(p.ID), s.deadlineKey()}
	res, err := putScript.Run(ctx, s.client, keys,
		p.ID, string(data), string(p.Status), p.ExpiresAt.Unix()).Int()
	if err != nil {
		return fmt.Errorf("failed to put proposal: %w", err)
	}
	if res == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (s *Store) load(ctx context.Context, id string) (*domain.Proposal, error) {
	fields, err := s.client.HGetAll(ctx, s.proposalKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}

	var p domain.Proposal
	if err := json.Unmarshal([]byte(fields["data"]), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal proposal: %w", err)
	}

	// Status and resolution time live in their own hash fields so Lua can
	// mutate them without parsing JSON.
	p.Status = domain.Status(fields["status"])
	if raw, ok := fields["resolved_at"]; ok && raw != "" {
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse resolved_at: %w", err)
		}
		p.ResolvedAt = time.Unix(sec, 0).UTC()
	}
	return &p, nil
}

// GetByResponder returns the Pending proposal targeting a responder.
func (s *Store) GetByResponder(ctx context.Context, responderID string) (*domain.Proposal, error) {
	id, err := s.client.Get(ctx, s.pendingKey(responderID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve pending index: %w", err)
	}
	return s.load(ctx, id)
}

// GetByID returns a proposal in any state.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Proposal, error) {
	return s.load(ctx, id)
}

// Transition performs the compare-and-set status change.
func (s *Store) Transition(ctx context.Context, id string, from, to domain.Status) (*domain.Proposal, error) {
	// The pending-index key depends on the responder, so read it first.
	// The script re-checks the status, so this read is not a race window.
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	resolvedAt := time.Now().UTC()
	keys := []string{
		s.proposalKey(id),
		s.pendingKey(p.ResponderID),
		s.deadlineKey(),
		s.resolvedKey(),
		s.lastKey(p.ResponderID, p.InitiatorID),
	}
	res, err := transitionScript.Run(ctx, s.client, keys,
		string(from), string(to), resolvedAt.Unix(), id).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to transition proposal: %w", err)
	}
	switch res {
	case 0:
		return nil, domain.ErrNotFound
	case -1:
		return nil, domain.ErrStaleState
	}
	return s.load(ctx, id)
}

// LastResolved returns the most recently resolved proposal between the pair.
func (s *Store) LastResolved(ctx context.Context, responderID, initiatorID string) (*domain.Proposal, error) {
	id, err := s.client.Get(ctx, s.lastKey(responderID, initiatorID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve last-resolved index: %w", err)
	}
	return s.load(ctx, id)
}

// SweepExpired returns Pending proposals whose deadline is at or before now.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) ([]*domain.Proposal, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.deadlineKey(), &backend.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan deadline index: %w", err)
	}

	var due []*domain.Proposal
	for _, id := range ids {
		p, err := s.load(ctx, id)
		if err != nil {
			if err == domain.ErrNotFound {
				// Index entry outlived its proposal; drop it lazily.
				s.client.ZRem(ctx, s.deadlineKey(), id)
				continue
			}
			return nil, err
		}
		if p.Status == domain.StatusPending {
			due = append(due, p)
		}
	}
	return due, nil
}

// PruneResolved removes terminal proposals resolved before the cutoff.
func (s *Store) PruneResolved(ctx context.Context, olderThan time.Time) ([]*domain.Proposal, error) {
	cutoff := strconv.FormatInt(olderThan.Unix(), 10)
	ids, err := s.client.ZRangeByScore(ctx, s.resolvedKey(), &backend.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan resolved index: %w", err)
	}

	var pruned []*domain.Proposal
	for _, id := range ids {
		p, err := s.load(ctx, id)
		if err != nil {
			if err == domain.ErrNotFound {
				s.client.ZRem(ctx, s.resolvedKey(), id)
				continue
			}
			return nil, err
		}

		pipe := s.client.Pipeline()
		pipe.Del(ctx, s.proposalKey(id))
		pipe.ZRem(ctx, s.resolvedKey(), id)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to prune proposal %s: %w", id, err)
		}
		// Drop the pair pointer unless a newer resolution overwrote it.
		last := s.lastKey(p.ResponderID, p.InitiatorID)
		if cur, err := s.client.Get(ctx, last).Result(); err == nil && cur == id {
			s.client.Del(ctx, last)
		}
		pruned = append(pruned, p)
	}
	return pruned, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
