// Package cache stores finished run payloads for fast re-delivery.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spherical/lecturecast/internal/domain"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client defines the cache interface.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// Key generates a cache key from components.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// ResultKeyPrefix scopes result keys to a namespace.
func ResultKeyPrefix(namespace string) string {
	return Key("result", namespace) + ":"
}

// ResultKey is the key of one run's payload.
func ResultKey(namespace, runID string) string {
	return ResultKeyPrefix(namespace) + runID
}

// ResultStore caches ResultPayloads as JSON.
type ResultStore struct {
	client Client
	ttl    time.Duration
}

// NewResultStore wraps client with payload encoding.
func NewResultStore(client Client, ttl time.Duration) *ResultStore {
	return &ResultStore{client: client, ttl: ttl}
}

// Put caches payload and drops every older payload of the same namespace,
// since a new run overwrites the namespace's audio files.
func (s *ResultStore) Put(ctx context.Context, payload domain.ResultPayload) error {
	if err := s.client.DeleteByPrefix(ctx, ResultKeyPrefix(payload.Namespace)); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return s.client.Set(ctx, ResultKey(payload.Namespace, payload.RunID), data, s.ttl)
}

// Get returns the cached payload or ErrCacheMiss.
func (s *ResultStore) Get(ctx context.Context, namespace, runID string) (*domain.ResultPayload, error) {
	data, err := s.client.Get(ctx, ResultKey(namespace, runID))
	if err != nil {
		return nil, err
	}
	var payload domain.ResultPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}
