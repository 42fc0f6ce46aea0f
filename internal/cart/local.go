package cart

import (
	"context"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type localBlob struct {
	Items []domain.CartItem `json:"items"`
}

// LocalStore keeps an anonymous cart as one JSON blob in client storage.
// Lines are keyed by product ID.
type LocalStore struct {
	bucket storage.Bucket
	logger *slog.Logger
}

// NewLocalStore creates a local cart store over the visitor's bucket.
func NewLocalStore(bucket storage.Bucket, logger *slog.Logger) *LocalStore {
	return &LocalStore{bucket: bucket, logger: logger}
}

func (s *LocalStore) Mode() domain.CartMode { return domain.CartModeLocal }

// Get reads the blob. A missing blob is an empty cart.
func (s *LocalStore) Get(ctx context.Context) (*domain.Cart, error) {
	var blob localBlob
	if _, err := storage.GetJSON(ctx, s.bucket, storage.KeyGuestCart, &blob); err != nil {
		return nil, apperrors.Backend("could not read your cart", err)
	}
	cart := domain.NewCart(domain.CartModeLocal)
	if blob.Items != nil {
		cart.Items = blob.Items
	}
	return cart, nil
}

func (s *LocalStore) save(ctx context.Context, cart *domain.Cart) error {
	if err := storage.SetJSON(ctx, s.bucket, storage.KeyGuestCart, localBlob{Items: cart.Items}); err != nil {
		return apperrors.Backend("could not save your cart", err)
	}
	return nil
}

// AddItem merges the quantity into an existing line for the same product,
// or appends a new line.
func (s *LocalStore) AddItem(ctx context.Context, in AddItemInput) (*domain.Cart, error) {
	cart, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if i := cart.FindByProduct(in.ProductID); i >= 0 {
		merged := cart.Items[i].Quantity + in.Quantity
		if merged > MaxQuantityPerItem {
			return nil, apperrors.InvalidInput("combined quantity must not exceed 100")
		}
		cart.Items[i].Quantity = merged
		if in.Product != nil && cart.Items[i].Product.Price == 0 {
			cart.Items[i].Product = *in.Product
		}
	} else {
		line := domain.CartItem{
			ID:        in.ProductID,
			ProductID: in.ProductID,
			VariantID: in.VariantID,
			Quantity:  in.Quantity,
			Product:   domain.ProductSnapshot{ID: in.ProductID},
		}
		if in.Product != nil {
			line.Product = *in.Product
			line.Product.ID = in.ProductID
		}
		cart.Items = append(cart.Items, line)
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateItem sets the quantity of the line for itemID (a product ID).
func (s *LocalStore) UpdateItem(ctx context.Context, itemID string, quantity int) (*domain.Cart, error) {
	cart, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	i := cart.FindByID(itemID)
	if i < 0 {
		return nil, apperrors.NotFound("cart item", itemID)
	}
	cart.Items[i].Quantity = quantity
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem drops the line for itemID.
func (s *LocalStore) RemoveItem(ctx context.Context, itemID string) (*domain.Cart, error) {
	cart, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	i := cart.FindByID(itemID)
	if i < 0 {
		return nil, apperrors.NotFound("cart item", itemID)
	}
	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear deletes the blob.
func (s *LocalStore) Clear(ctx context.Context) (*domain.Cart, error) {
	if err := s.bucket.Delete(ctx, storage.KeyGuestCart); err != nil {
		return nil, apperrors.Backend("could not clear your cart", err)
	}
	return domain.NewCart(domain.CartModeLocal), nil
}

// Enrich fills price snapshots that are still zero from the catalog.
// Lookups that fail are logged and the line is left as it was.
func (s *LocalStore) Enrich(ctx context.Context, products ProductSource) (*domain.Cart, error) {
	cart, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	changed := false
	for i := range cart.Items {
		if cart.Items[i].Product.Price != 0 {
			continue
		}
		product, err := products.GetProduct(ctx, cart.Items[i].ProductID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to enrich local cart line",
				slog.String("product_id", cart.Items[i].ProductID),
				slog.String("error", err.Error()),
			)
			continue
		}
		cart.Items[i].Product = *product
		changed = true
	}

	if changed {
		if err := s.save(ctx, cart); err != nil {
			return nil, err
		}
	}
	return cart, nil
}
