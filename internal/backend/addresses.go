package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/utafrali/storefront/internal/domain"
)

const addressesPath = "/users/me/addresses"

// ListAddresses returns the user's addresses, optionally filtered by type.
func (c *Client) ListAddresses(ctx context.Context, addressType domain.AddressType) ([]domain.Address, error) {
	path := addressesPath
	if addressType != "" {
		path += "?" + url.Values{"address_type": {string(addressType)}}.Encode()
	}
	var addresses []domain.Address
	if err := c.send(ctx, call{method: http.MethodGet, path: path, resource: "address", out: &addresses}); err != nil {
		return nil, err
	}
	if addresses == nil {
		addresses = []domain.Address{}
	}
	return addresses, nil
}

// CreateAddress saves a new address.
func (c *Client) CreateAddress(ctx context.Context, in domain.AddressInput) (*domain.Address, error) {
	var addr domain.Address
	if err := c.send(ctx, call{method: http.MethodPost, path: addressesPath, resource: "address", body: in, out: &addr}); err != nil {
		return nil, err
	}
	return &addr, nil
}

// UpdateAddress replaces an address.
func (c *Client) UpdateAddress(ctx context.Context, id string, in domain.AddressInput) (*domain.Address, error) {
	var addr domain.Address
	err := c.send(ctx, call{
		method:   http.MethodPut,
		path:     addressesPath + "/" + url.PathEscape(id),
		resource: "address",
		body:     in,
		out:      &addr,
	})
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// DeleteAddress removes an address.
func (c *Client) DeleteAddress(ctx context.Context, id string) error {
	return c.send(ctx, call{method: http.MethodDelete, path: addressesPath + "/" + url.PathEscape(id), resource: "address"})
}

// SetDefaultAddress flags an address as the default for its type.
func (c *Client) SetDefaultAddress(ctx context.Context, id string) error {
	return c.send(ctx, call{method: http.MethodPost, path: addressesPath + "/" + url.PathEscape(id) + "/set-default", resource: "address"})
}
