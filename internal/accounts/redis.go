package accounts

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Mutations run inside WATCH/MULTI
// optimistic transactions over the affected account keys, so a debit and its
// matching partner link land together or not at all.
type RedisStore struct {
	client *backend.Client
	prefix string
}

// NewRedisStore creates a Redis account store from an existing client.
func NewRedisStore(client *backend.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "pledge:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + "account:" + id
}

func (s *RedisStore) load(ctx context.Context, tx *backend.Tx, id string) (*Account, error) {
	val, err := tx.Get(ctx, s.key(id)).Result()
	if err != nil {
		if err == backend.Nil {
			return &Account{ID: id}, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	var acc Account
	if err := json.Unmarshal([]byte(val), &acc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &acc, nil
}

func (s *RedisStore) save(ctx context.Context, pipe backend.Pipeliner, acc *Account) error {
	data, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	pipe.Set(ctx, s.key(acc.ID), data, 0)
	return nil
}

// Get returns the account, or a zero-balance record if missing.
func (s *RedisStore) Get(ctx context.Context, id string) (*Account, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if err == backend.Nil {
			return &Account{ID: id}, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	var acc Account
	if err := json.Unmarshal([]byte(val), &acc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &acc, nil
}

// Credit adds funds inside a WATCH transaction on the account key.
func (s *RedisStore) Credit(ctx context.Context, id string, amount int64) error {
	return s.client.Watch(ctx, func(tx *backend.Tx) error {
		acc, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		acc.Balance += amount

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			return s.save(ctx, pipe, acc)
		})
		return err
	}, s.key(id))
}

// Marry debits the initiator and links both accounts in one transaction.
func (s *RedisStore) Marry(ctx context.Context, initiatorID, responderID string, cost int64, proposalID string) error {
	return s.client.Watch(ctx, func(tx *backend.Tx) error {
		init, err := s.load(ctx, tx, initiatorID)
		if err != nil {
			return err
		}
		resp, err := s.load(ctx, tx, responderID)
		if err != nil {
			return err
		}

		if init.LastApplied == proposalID {
			return nil // already applied
		}
		if init.Partner != "" || resp.Partner != "" {
			return ErrAlreadyPartnered
		}
		if init.Balance < cost {
			return ErrInsufficientFunds
		}

		init.Balance -= cost
		init.Partner = responderID
		resp.Partner = initiatorID
		init.LastApplied = proposalID
		resp.LastApplied = proposalID

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			if err := s.save(ctx, pipe, init); err != nil {
				return err
			}
			return s.save(ctx, pipe, resp)
		})
		return err
	}, s.key(initiatorID), s.key(responderID))
}

// Divorce unlinks two partnered accounts in one transaction.
func (s *RedisStore) Divorce(ctx context.Context, initiatorID, responderID, proposalID string) error {
	return s.client.Watch(ctx, func(tx *backend.Tx) error {
		init, err := s.load(ctx, tx, initiatorID)
		if err != nil {
			return err
		}
		resp, err := s.load(ctx, tx, responderID)
		if err != nil {
			return err
		}

		if init.LastApplied == proposalID {
			return nil
		}
		if init.Partner != responderID || resp.Partner != initiatorID {
			return ErrNotPartnered
		}

		init.Partner = ""
		resp.Partner = ""
		init.LastApplied = proposalID
		resp.LastApplied = proposalID

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			if err := s.save(ctx, pipe, init); err != nil {
				return err
			}
			return s.save(ctx, pipe, resp)
		})
		return err
	}, s.key(initiatorID), s.key(responderID))
}
