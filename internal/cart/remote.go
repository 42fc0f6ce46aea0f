package cart

import (
	"context"
	"fmt"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/domain"
)

// RemoteStore proxies every operation to the backend and refetches the
// cart after each mutation.
type RemoteStore struct {
	backend Backend
}

// NewRemoteStore creates a backend-backed cart store.
func NewRemoteStore(b Backend) *RemoteStore {
	return &RemoteStore{backend: b}
}

func (s *RemoteStore) Mode() domain.CartMode { return domain.CartModeRemote }

func (s *RemoteStore) Get(ctx context.Context) (*domain.Cart, error) {
	cart, err := s.backend.GetCart(ctx)
	if err != nil {
		return nil, fmt.Errorf("get remote cart: %w", err)
	}
	return cart, nil
}

func (s *RemoteStore) AddItem(ctx context.Context, in AddItemInput) (*domain.Cart, error) {
	err := s.backend.AddCartItem(ctx, backend.AddCartItemInput{
		ProductID: in.ProductID,
		VariantID: in.VariantID,
		Quantity:  in.Quantity,
	})
	if err != nil {
		return nil, fmt.Errorf("add remote cart item: %w", err)
	}
	return s.Get(ctx)
}

func (s *RemoteStore) UpdateItem(ctx context.Context, itemID string, quantity int) (*domain.Cart, error) {
	if err := s.backend.UpdateCartItem(ctx, itemID, quantity); err != nil {
		return nil, fmt.Errorf("update remote cart item: %w", err)
	}
	return s.Get(ctx)
}

func (s *RemoteStore) RemoveItem(ctx context.Context, itemID string) (*domain.Cart, error) {
	if err := s.backend.RemoveCartItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("remove remote cart item: %w", err)
	}
	return s.Get(ctx)
}

func (s *RemoteStore) Clear(ctx context.Context) (*domain.Cart, error) {
	if err := s.backend.ClearCart(ctx); err != nil {
		return nil, fmt.Errorf("clear remote cart: %w", err)
	}
	return s.Get(ctx)
}
