package checkout

import (
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// PricingConfig holds the storefront's price rules.
type PricingConfig struct {
	// TaxBasisPoints is the flat tax rate applied to the discounted
	// subtotal; 800 is 8%.
	TaxBasisPoints int64
	// FreeShippingThreshold waives shipping when the discounted subtotal
	// reaches it. Zero disables the rule.
	FreeShippingThreshold int64
	// Promos maps an upper-case promo code to its percentage discount.
	Promos map[string]int64
}

// DefaultPricingConfig returns the storefront's standard price rules.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		TaxBasisPoints: 800,
		Promos:         map[string]int64{"WELCOME10": 10},
	}
}

// Pricing is the order summary shown alongside every checkout step. All
// amounts are in minor units.
type Pricing struct {
	Subtotal     int64  `json:"subtotal"`
	Discount     int64  `json:"discount"`
	PromoCode    string `json:"promo_code,omitempty"`
	Shipping     int64  `json:"shipping"`
	FreeShipping bool   `json:"free_shipping"`
	Tax          int64  `json:"tax"`
	Total        int64  `json:"total"`
}

// NormalizePromo canonicalises a promo code and checks it is known.
func (c PricingConfig) NormalizePromo(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", apperrors.InvalidInput("promo code is required")
	}
	if _, ok := c.Promos[code]; !ok {
		return "", apperrors.InvalidInput("promo code " + code + " is not valid")
	}
	return code, nil
}

// Price computes the summary for a subtotal, a shipping charge and an
// optional, already normalised promo code.
func (c PricingConfig) Price(subtotal, shipping int64, promo string) Pricing {
	p := Pricing{Subtotal: subtotal, Shipping: shipping}
	if pct, ok := c.Promos[promo]; ok && promo != "" {
		p.PromoCode = promo
		p.Discount = subtotal * pct / 100
	}
	taxable := subtotal - p.Discount
	if c.FreeShippingThreshold > 0 && taxable >= c.FreeShippingThreshold {
		p.Shipping = 0
		p.FreeShipping = true
	}
	p.Tax = (taxable*c.TaxBasisPoints + 5000) / 10000
	p.Total = taxable + p.Shipping + p.Tax
	return p
}
