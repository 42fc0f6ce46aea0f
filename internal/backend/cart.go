package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/utafrali/storefront/internal/domain"
)

// AddCartItemInput is the body of POST /cart/items.
type AddCartItemInput struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// GetCart fetches the authenticated user's cart.
func (c *Client) GetCart(ctx context.Context) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.send(ctx, call{method: http.MethodGet, path: "/cart", resource: "cart", out: &cart}); err != nil {
		return nil, err
	}
	cart.Mode = domain.CartModeRemote
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

// AddCartItem adds a line; the backend merges quantities for a product
// already in the cart.
func (c *Client) AddCartItem(ctx context.Context, in AddCartItemInput) error {
	return c.send(ctx, call{method: http.MethodPost, path: "/cart/items", resource: "cart", body: in})
}

// UpdateCartItem sets the quantity of a line.
func (c *Client) UpdateCartItem(ctx context.Context, itemID string, quantity int) error {
	return c.send(ctx, call{
		method:   http.MethodPut,
		path:     "/cart/items/" + url.PathEscape(itemID),
		resource: "cart item",
		body:     map[string]int{"quantity": quantity},
	})
}

// RemoveCartItem deletes a line.
func (c *Client) RemoveCartItem(ctx context.Context, itemID string) error {
	return c.send(ctx, call{method: http.MethodDelete, path: "/cart/items/" + url.PathEscape(itemID), resource: "cart item"})
}

// ClearCart empties the cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.send(ctx, call{method: http.MethodDelete, path: "/cart", resource: "cart"})
}

// GetProduct fetches a product snapshot. Products are public.
func (c *Client) GetProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	var product domain.ProductSnapshot
	err := c.send(ctx, call{
		method:   http.MethodGet,
		path:     "/products/" + url.PathEscape(productID),
		resource: "product",
		out:      &product,
		public:   true,
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}
