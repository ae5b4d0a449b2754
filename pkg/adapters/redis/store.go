// Package redis persists models in Redis: one key per model holding the
// canonical JSON, plus a ZSET index for listing with lazy expiry cleanup.
package redis

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/espalier/pkg/codec"
	"github.com/aretw0/espalier/pkg/domain"
)

// Store implements ports.ModelStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration for stored models.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for models.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with its own client.
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
		prefix: "espalier:model:",
		ttl:    0, // no expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(modelID string) string {
	return s.prefix + modelID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the model as canonical JSON and registers it in the
// index. Both writes go through one pipeline.
func (s *Store) Save(ctx context.Context, modelID string, m *domain.Model) error {
	data, err := codec.Encode(m)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(modelID), data, s.ttl)

	// Index score is the expiry instant; without TTL, far enough out to
	// never be pruned.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: modelID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the model. Drafts are accepted: only the schema and the
// global invariants are re-checked on the way in.
func (s *Store) Load(ctx context.Context, modelID string) (*domain.Model, error) {
	val, err := s.client.Get(ctx, s.key(modelID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrModelNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	m, err := codec.DecodeDraft([]byte(val))
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored model: %w", err)
	}
	return m, nil
}

// Delete removes the model and its index entry.
func (s *Store) Delete(ctx context.Context, modelID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(modelID))
	pipe.ZRem(ctx, s.indexKey(), modelID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns stored model ids, lazily pruning expired index entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired models: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return ids, nil
}

// Client exposes the underlying redis client, e.g. to share it with a
// Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
