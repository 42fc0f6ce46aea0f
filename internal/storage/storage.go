// Package storage models the visitor's client storage: small named blobs
// kept per visitor, such as the anonymous cart and the auth tokens.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Well-known blob keys.
const (
	KeyGuestCart  = "guest_cart"
	KeyAuthTokens = "auth_tokens"
)

// Store holds blobs grouped by visitor. Get returns an error matching
// apperrors.ErrNotFound when the blob is absent.
type Store interface {
	Get(ctx context.Context, visitorID, key string) ([]byte, error)
	Set(ctx context.Context, visitorID, key string, value []byte) error
	Delete(ctx context.Context, visitorID, key string) error
}

// Bucket is the blob namespace of a single visitor.
type Bucket interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type scoped struct {
	store     Store
	visitorID string
}

// ForVisitor scopes store to one visitor.
func ForVisitor(store Store, visitorID string) Bucket {
	return &scoped{store: store, visitorID: visitorID}
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.store.Get(ctx, s.visitorID, key)
}

func (s *scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.store.Set(ctx, s.visitorID, key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.visitorID, key)
}

// IsNotFound reports whether err means the blob does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

// GetJSON decodes the blob under key into dst. It returns false when the
// blob is absent.
func GetJSON(ctx context.Context, b Bucket, key string, dst any) (bool, error) {
	data, err := b.Get(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, b Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return b.Set(ctx, key, data)
}
