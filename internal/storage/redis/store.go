package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const keyPrefix = "storefront:visitor:"

// Store implements storage.Store using Redis. Every write refreshes the
// blob's TTL, so idle visitors age out.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a new Redis-backed blob store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
	}
}

func blobKey(visitorID, key string) string {
	return keyPrefix + visitorID + ":" + key
}

// Get retrieves a blob from Redis.
func (s *Store) Get(ctx context.Context, visitorID, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, blobKey(visitorID, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("blob", key)
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set stores a blob with the configured TTL.
func (s *Store) Set(ctx context.Context, visitorID, key string, value []byte) error {
	if err := s.client.Set(ctx, blobKey(visitorID, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (s *Store) Delete(ctx context.Context, visitorID, key string) error {
	if err := s.client.Del(ctx, blobKey(visitorID, key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Ping checks connectivity, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
