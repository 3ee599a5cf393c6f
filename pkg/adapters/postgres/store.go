// Package postgres provides a Postgres-backed ProposalStore.
//
// The compare-and-set lives in a single conditional UPDATE, and the
// one-pending-per-responder invariant in a partial unique index, so both
// correctness-critical properties are enforced by the database rather than
// by application code.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/pledge/pkg/domain"
	"github.com/lib/pq"
)

// Schema is the DDL for the proposals table. Applied by the operator (or a
// migration tool); exported so the serve command can print it.
const Schema = `
CREATE TABLE IF NOT EXISTS proposals (
	id           TEXT PRIMARY KEY,
	initiator_id TEXT NOT NULL,
	responder_id TEXT NOT NULL,
	kind         TEXT NOT NULL,
	payload      JSONB,
	created_at   TIMESTAMPTZ NOT NULL,
	expires_at   TIMESTAMPTZ NOT NULL,
	status       TEXT NOT NULL,
	resolved_at  TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS proposals_one_pending_per_responder
	ON proposals (responder_id) WHERE status = 'pending';

CREATE INDEX IF NOT EXISTS proposals_deadline
	ON proposals (expires_at) WHERE status = 'pending';
`

// Store implements ports.ProposalStore on Postgres.
type Store struct {
	db *sql.DB
}

// NewStore constructs a Postgres-backed store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres with the lib/pq driver and verifies connectivity.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewStore(db), nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const proposalColumns = `id, initiator_id, responder_id, kind, payload, created_at, expires_at, status, resolved_at`

func scanProposal(row interface{ Scan(...any) error }) (*domain.Proposal, error) {
	var (
		p          domain.Proposal
		payload    []byte
		resolvedAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.InitiatorID, &p.ResponderID, &p.Kind, &payload,
		&p.CreatedAt, &p.ExpiresAt, &p.Status, &resolvedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan proposal: %w", err)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if resolvedAt.Valid {
		p.ResolvedAt = resolvedAt.Time.UTC()
	}
	return &p, nil
}

// Put inserts a Pending proposal. The partial unique index turns a concurrent
// duplicate into a constraint violation, which is mapped to ErrConflict.
func (s *Store) Put(ctx context.Context, p *domain.Proposal) error {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	q := `
		INSERT INTO proposals (` + proposalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL)
	`
	_, err = s.db.ExecContext(ctx, q, p.ID, p.InitiatorID, p.ResponderID,
		p.Kind, payload, p.CreatedAt, p.ExpiresAt, p.Status)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

// GetByResponder returns the Pending proposal targeting a responder.
func (s *Store) GetByResponder(ctx context.Context, responderID string) (*domain.Proposal, error) {
	q := `SELECT ` + proposalColumns + ` FROM proposals WHERE responder_id = $1 AND status = 'pending'`
	return scanProposal(s.db.QueryRowContext(ctx, q, responderID))
}

// GetByID returns a proposal in any state.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Proposal, error) {
	q := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`
	return scanProposal(s.db.QueryRowContext(ctx, q, id))
}

// Transition performs the compare-and-set as a single conditional UPDATE.
func (s *Store) Transition(ctx context.Context, id string, from, to domain.Status) (*domain.Proposal, error) {
	q := `
		UPDATE proposals
		SET status = $1, resolved_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + proposalColumns + `
	`
	resolved, err := scanProposal(s.db.QueryRowContext(ctx, q, to, time.Now().UTC(), id, from))
	if err == nil {
		return resolved, nil
	}
	if err != domain.ErrNotFound {
		return nil, err
	}

	// Zero rows updated: distinguish a missing proposal from a lost race.
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrStaleState
}

// LastResolved returns the most recently resolved proposal between the pair.
func (s *Store) LastResolved(ctx context.Context, responderID, initiatorID string) (*domain.Proposal, error) {
	q := `
		SELECT ` + proposalColumns + ` FROM proposals
		WHERE responder_id = $1 AND initiator_id = $2 AND status <> 'pending'
		ORDER BY resolved_at DESC
		LIMIT 1
	`
	return scanProposal(s.db.QueryRowContext(ctx, q, responderID, initiatorID))
}

// SweepExpired returns Pending proposals whose deadline is at or before now.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) ([]*domain.Proposal, error) {
	q := `SELECT ` + proposalColumns + ` FROM proposals WHERE status = 'pending' AND expires_at <= $1`
	rows, err := s.db.QueryContext(ctx, q, now)
	if err != nil {
		return nil, fmt.Errorf("query expired proposals: %w", err)
	}
	defer rows.Close()

	var due []*domain.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, p)
	}
	return due, rows.Err()
}

// PruneResolved deletes terminal proposals resolved before the cutoff and
// returns the removed rows for archiving.
func (s *Store) PruneResolved(ctx context.Context, olderThan time.Time) ([]*domain.Proposal, error) {
	q := `
		DELETE FROM proposals
		WHERE status <> 'pending' AND resolved_at < $1
		RETURNING ` + proposalColumns + `
	`
	rows, err := s.db.QueryContext(ctx, q, olderThan)
	if err != nil {
		return nil, fmt.Errorf("prune resolved proposals: %w", err)
	}
	defer rows.Close()

	var pruned []*domain.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		pruned = append(pruned, p)
	}
	return pruned, rows.Err()
}
