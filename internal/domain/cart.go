package domain

// CartMode tells where the authoritative copy of a cart lives.
type CartMode string

const (
	// CartModeLocal carts live in the visitor's client storage and are keyed
	// by product ID.
	CartModeLocal CartMode = "local"
	// CartModeRemote carts are owned by the backend and keyed by the
	// backend-assigned line ID.
	CartModeRemote CartMode = "remote"
)

// ProductSnapshot is the product data carried on a cart line. Price is in
// minor units and may be zero on local lines that have not been enriched.
type ProductSnapshot struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    int64   `json:"price"`
	ImageURL string  `json:"image_url,omitempty"`
	WeightKg float64 `json:"weight_kg,omitempty"`
}

// CartItem is a single line of a cart.
type CartItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
}

// LineTotal returns price times quantity.
func (i CartItem) LineTotal() int64 {
	return i.Product.Price * int64(i.Quantity)
}

// Cart is either a local or a remote cart, never both.
type Cart struct {
	Mode  CartMode   `json:"mode"`
	Items []CartItem `json:"items"`
}

// NewCart returns an empty cart in the given mode.
func NewCart(mode CartMode) *Cart {
	return &Cart{Mode: mode, Items: []CartItem{}}
}

// Subtotal sums the line totals in minor units.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.LineTotal()
	}
	return total
}

// ItemCount returns the total quantity across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// FindByProduct returns the index of the line for productID, or -1.
func (c *Cart) FindByProduct(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// FindByID returns the index of the line with the given line ID, or -1.
func (c *Cart) FindByID(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return &Cart{Mode: c.Mode, Items: items}
}
