package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/utafrali/storefront/internal/domain"
)

// CreateOrderInput is the body of POST /orders.
type CreateOrderInput struct {
	ShippingAddressID string             `json:"shipping_address_id"`
	Items             []domain.OrderItem `json:"items"`
}

// CreateOrder creates an order. It is never retried.
func (c *Client) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	var order domain.Order
	if err := c.send(ctx, call{method: http.MethodPost, path: "/orders", resource: "order", body: in, out: &order}); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches an order.
func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	if err := c.send(ctx, call{method: http.MethodGet, path: "/orders/" + url.PathEscape(id), resource: "order", out: &order}); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels a pending order.
func (c *Client) CancelOrder(ctx context.Context, id string) error {
	return c.send(ctx, call{method: http.MethodPut, path: "/orders/" + url.PathEscape(id) + "/cancel", resource: "order"})
}
