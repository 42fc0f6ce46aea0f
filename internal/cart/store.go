// Package cart keeps a visitor's cart either in client storage (anonymous)
// or on the backend (authenticated), and moves it across on login.
package cart

import (
	"context"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/domain"
)

// MaxQuantityPerItem is the maximum quantity allowed for a single line.
const MaxQuantityPerItem = 100

// AddItemInput holds the parameters for adding an item to the cart.
// Product is an optional snapshot kept on local lines until enrichment.
type AddItemInput struct {
	ProductID string                  `json:"product_id" validate:"required"`
	VariantID string                  `json:"variant_id,omitempty"`
	Quantity  int                     `json:"quantity" validate:"gte=1,lte=100"`
	Product   *domain.ProductSnapshot `json:"product,omitempty"`
}

// UpdateItemInput holds the parameters for changing a line quantity. Zero is
// rejected; removal is a separate operation.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"gte=1,lte=100"`
}

// Store is one cart strategy. Every mutation returns the cart as it stands
// afterwards.
type Store interface {
	Mode() domain.CartMode
	Get(ctx context.Context) (*domain.Cart, error)
	AddItem(ctx context.Context, in AddItemInput) (*domain.Cart, error)
	UpdateItem(ctx context.Context, itemID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, itemID string) (*domain.Cart, error)
	Clear(ctx context.Context) (*domain.Cart, error)
}

// Backend is the slice of the REST backend the cart needs.
type Backend interface {
	GetCart(ctx context.Context) (*domain.Cart, error)
	AddCartItem(ctx context.Context, in backend.AddCartItemInput) error
	UpdateCartItem(ctx context.Context, itemID string, quantity int) error
	RemoveCartItem(ctx context.Context, itemID string) error
	ClearCart(ctx context.Context) error
}

// ProductSource looks up product snapshots for local-line enrichment.
type ProductSource interface {
	GetProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error)
}
