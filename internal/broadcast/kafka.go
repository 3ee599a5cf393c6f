// Package broadcast publishes approved mass-send jobs to Kafka. The bot's
// send workers consume the topic; keying messages by proposal ID keeps
// duplicates on one partition where consumers can collapse them.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Job is the wire format of an approved broadcast.
type Job struct {
	ProposalID string    `json:"proposal_id"`
	Body       string    `json:"body"`
	Audience   string    `json:"audience"`
	ApprovedBy string    `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
}

// PublisherConfig contains configurable parameters for the Kafka publisher.
type PublisherConfig struct {
	// Brokers is the list of Kafka broker addresses (host:port).
	Brokers []string

	// Topic is the topic broadcast jobs are written to.
	Topic string

	// MaxAttempts is how many times a publish is retried on transient
	// error. Defaults to 3 if <= 0.
	MaxAttempts int

	// WriteTimeout is the per-attempt timeout. Defaults to 10s if zero.
	WriteTimeout time.Duration
}

// Publisher is a thin wrapper over segmentio/kafka-go Writer with
// publish-with-retries behavior.
type Publisher struct {
	writer      *kafka.Writer
	maxAttempts int
}

// NewPublisher constructs a Publisher. Returns an error if required
// parameters are missing.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := &kafka.Writer{
		Addr:  kafka.TCP(cfg.Brokers...),
		Topic: cfg.Topic,
		// Key-hash balancing pins a proposal's duplicates to one partition.
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		Async:        false,
	}

	return &Publisher{writer: w, maxAttempts: cfg.MaxAttempts}, nil
}

// Publish writes one job, retrying with exponential backoff on failure.
func (p *Publisher) Publish(ctx context.Context, job Job) error {
	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal broadcast job: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(job.ProposalID),
		Value: value,
		Time:  time.Now().UTC(),
	}

	var lastErr error
	backoff := 100 * time.Millisecond
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := p.writer.WriteMessages(ctx, msg); err == nil {
			return nil
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	return fmt.Errorf("publish failed after %d attempts: %w", p.maxAttempts, lastErr)
}

// Close shuts down the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
