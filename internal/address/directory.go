// Package address manages the visitor's saved addresses and which one is
// selected for checkout.
package address

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	pkgvalidator "github.com/utafrali/storefront/pkg/validator"
)

// PostalCountry is the country whose postal codes are checked against
// postalPattern before submission.
const PostalCountry = "IN"

var postalPattern = regexp.MustCompile(`^[0-9]{6}$`)

func init() {
	pkgvalidator.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(domain.AddressInput)
		if in.Country == PostalCountry && in.PostalCode != "" && !postalPattern.MatchString(in.PostalCode) {
			sl.ReportError(in.PostalCode, "postal_code", "PostalCode", "postal_code", PostalCountry)
		}
	}, domain.AddressInput{})
}

// Validate runs the pre-submission checks on an address.
func Validate(in domain.AddressInput) error {
	return pkgvalidator.Validate(in)
}

// Backend is the slice of the REST backend the directory needs.
type Backend interface {
	ListAddresses(ctx context.Context, addressType domain.AddressType) ([]domain.Address, error)
	CreateAddress(ctx context.Context, in domain.AddressInput) (*domain.Address, error)
	UpdateAddress(ctx context.Context, id string, in domain.AddressInput) (*domain.Address, error)
	DeleteAddress(ctx context.Context, id string) error
	SetDefaultAddress(ctx context.Context, id string) error
}

// Config controls the directory.
type Config struct {
	// RefetchDelay is waited after a mutation before the list is reloaded,
	// so a lagging read replica has caught up.
	RefetchDelay time.Duration
}

// DefaultConfig returns the default directory configuration.
func DefaultConfig() Config {
	return Config{RefetchDelay: 500 * time.Millisecond}
}

// State is what the UI renders for the address book.
type State struct {
	Addresses  []domain.Address `json:"addresses"`
	SelectedID string           `json:"selected_address_id,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Directory is one visitor's address book.
type Directory struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error

	mu         sync.Mutex
	filter     domain.AddressType
	addresses  []domain.Address
	selectedID string
	err        string
}

// NewDirectory creates an address directory.
func NewDirectory(b Backend, cfg Config, logger *slog.Logger) *Directory {
	return &Directory{
		backend:   b,
		cfg:       cfg,
		logger:    logger,
		sleep:     sleepContext,
		addresses: []domain.Address{},
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a snapshot.
func (d *Directory) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		Addresses:  append([]domain.Address{}, d.addresses...),
		SelectedID: d.selectedID,
		Error:      d.err,
	}
}

// SelectedID returns the selected address id, or "".
func (d *Directory) SelectedID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectedID
}

// Selected returns the selected address, or nil.
func (d *Directory) Selected() *domain.Address {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.addresses {
		if d.addresses[i].ID == d.selectedID {
			addr := d.addresses[i]
			return &addr
		}
	}
	return nil
}

// Select makes id the selected address. It must be in the loaded list.
func (d *Directory) Select(id string) apperrors.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.addresses {
		if a.ID == id {
			d.selectedID = id
			d.err = ""
			return apperrors.ResultOf(nil)
		}
	}
	err := apperrors.NotFound("address", id)
	d.err = apperrors.Message(err)
	return apperrors.ResultOf(err)
}

// List loads addresses of the given type ("" for all) and applies the
// selection rule.
func (d *Directory) List(ctx context.Context, addressType domain.AddressType) apperrors.Result {
	if addressType != "" && !addressType.IsValid() {
		return d.fail(ctx, "list", apperrors.InvalidInput("address_type must be shipping or billing"))
	}
	d.mu.Lock()
	d.filter = addressType
	d.mu.Unlock()
	return d.refetch(ctx)
}

// Create validates and saves a new address.
func (d *Directory) Create(ctx context.Context, in domain.AddressInput) apperrors.Result {
	if err := Validate(in); err != nil {
		return d.fail(ctx, "create", err)
	}
	addr, err := d.backend.CreateAddress(ctx, in)
	if err != nil {
		return d.fail(ctx, "create", err)
	}
	d.logger.InfoContext(ctx, "address created", slog.String("address_id", addr.ID))
	return d.afterMutation(ctx)
}

// Update validates and replaces an address.
func (d *Directory) Update(ctx context.Context, id string, in domain.AddressInput) apperrors.Result {
	if err := Validate(in); err != nil {
		return d.fail(ctx, "update", err)
	}
	if _, err := d.backend.UpdateAddress(ctx, id, in); err != nil {
		return d.fail(ctx, "update", err)
	}
	return d.afterMutation(ctx)
}

// Delete removes an address.
func (d *Directory) Delete(ctx context.Context, id string) apperrors.Result {
	if err := d.backend.DeleteAddress(ctx, id); err != nil {
		return d.fail(ctx, "delete", err)
	}
	return d.afterMutation(ctx)
}

// SetDefault flags an address as the default for its type.
func (d *Directory) SetDefault(ctx context.Context, id string) apperrors.Result {
	if err := d.backend.SetDefaultAddress(ctx, id); err != nil {
		return d.fail(ctx, "set_default", err)
	}
	return d.afterMutation(ctx)
}

func (d *Directory) afterMutation(ctx context.Context) apperrors.Result {
	if err := d.sleep(ctx, d.cfg.RefetchDelay); err != nil {
		return d.fail(ctx, "refetch", err)
	}
	return d.refetch(ctx)
}

func (d *Directory) refetch(ctx context.Context) apperrors.Result {
	d.mu.Lock()
	filter := d.filter
	d.mu.Unlock()

	addresses, err := d.backend.ListAddresses(ctx, filter)
	if err != nil {
		return d.fail(ctx, "list", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.addresses = addresses
	d.selectedID = selectFrom(addresses, d.selectedID)
	d.err = ""
	return apperrors.ResultOf(nil)
}

func (d *Directory) fail(ctx context.Context, op string, err error) apperrors.Result {
	d.mu.Lock()
	d.err = apperrors.Message(err)
	d.mu.Unlock()
	d.logger.WarnContext(ctx, "address operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperrors.ResultOf(err)
}

// selectFrom keeps current if it is still listed, else picks the default
// address, else the first one, else nothing.
func selectFrom(addresses []domain.Address, current string) string {
	if current != "" {
		for _, a := range addresses {
			if a.ID == current {
				return current
			}
		}
	}
	for _, a := range addresses {
		if a.IsDefault {
			return a.ID
		}
	}
	if len(addresses) > 0 {
		return addresses[0].ID
	}
	return ""
}
