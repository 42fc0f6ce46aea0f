package domain

import "time"

// Order status values reported by the backend.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "payment_failed"
	OrderStatusCancelled = "cancelled"
)

// OrderItem is a line submitted when an order is created.
type OrderItem struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// Order is created server-side from a shipping address and line items and
// is never mutated by the storefront afterwards.
type Order struct {
	ID                string      `json:"id"`
	OrderNumber       string      `json:"order_number"`
	Status            string      `json:"status"`
	TotalAmount       int64       `json:"total_amount"`
	Currency          string      `json:"currency"`
	ShippingAddressID string      `json:"shipping_address_id,omitempty"`
	Items             []OrderItem `json:"items,omitempty"`
	CreatedAt         time.Time   `json:"created_at,omitempty"`
}

// OrderItemsFromCart converts cart lines into order lines.
func OrderItemsFromCart(cart *Cart) []OrderItem {
	if cart == nil {
		return nil
	}
	items := make([]OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, OrderItem{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			Price:     line.Product.Price,
		})
	}
	return items
}
