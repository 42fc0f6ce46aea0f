package domain

// AddressType distinguishes shipping from billing addresses.
type AddressType string

const (
	AddressTypeShipping AddressType = "shipping"
	AddressTypeBilling  AddressType = "billing"
)

// IsValid reports whether t is a known address type.
func (t AddressType) IsValid() bool {
	return t == AddressTypeShipping || t == AddressTypeBilling
}

// Address is a saved user address. The backend keeps at most one default
// per user and type.
type Address struct {
	ID            string      `json:"id"`
	StreetAddress string      `json:"street_address"`
	Apartment     string      `json:"apartment,omitempty"`
	City          string      `json:"city"`
	State         string      `json:"state"`
	PostalCode    string      `json:"postal_code"`
	Country       string      `json:"country"`
	AddressType   AddressType `json:"address_type"`
	IsDefault     bool        `json:"is_default"`
}

// AddressInput is the payload for creating or updating an address.
type AddressInput struct {
	StreetAddress string      `json:"street_address" validate:"required,min=5,max=255"`
	Apartment     string      `json:"apartment,omitempty" validate:"max=100"`
	City          string      `json:"city" validate:"required,max=100"`
	State         string      `json:"state" validate:"required,max=100"`
	PostalCode    string      `json:"postal_code" validate:"required,max=20"`
	Country       string      `json:"country" validate:"required,len=2"`
	AddressType   AddressType `json:"address_type" validate:"required,oneof=shipping billing"`
	IsDefault     bool        `json:"is_default"`
}
