package cart

import (
	"context"
	"log/slog"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// SyncReport describes one reconciliation run.
type SyncReport struct {
	// Empty is set when there was nothing local to submit. No backend call
	// was made.
	Empty     bool
	Submitted int
	Failed    int
	// Cart is the refetched remote cart. It is nil when Empty, or when the
	// refetch itself failed.
	Cart *domain.Cart
}

// Switched reports whether the run moved the visitor to the remote cart.
func (r *SyncReport) Switched() bool {
	return r != nil && (r.Empty || r.Submitted > 0)
}

// Reconciler moves an anonymous local cart into the backend cart.
type Reconciler struct {
	local   *LocalStore
	backend Backend
	logger  *slog.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(local *LocalStore, b Backend, logger *slog.Logger) *Reconciler {
	return &Reconciler{local: local, backend: b, logger: logger}
}

// Sync submits each local line to the backend one at a time, so the backend
// merges quantities without racing itself. A line that fails is logged and
// skipped. If every line fails the local blob is kept so a later run can try
// again; otherwise the blob is deleted, which is what stops a second run
// from submitting the same lines twice.
func (r *Reconciler) Sync(ctx context.Context) (*SyncReport, error) {
	local, err := r.local.Get(ctx)
	if err != nil {
		return nil, err
	}

	if local.IsEmpty() {
		if _, err := r.local.Clear(ctx); err != nil {
			return nil, err
		}
		syncRunsTotal.WithLabelValues("empty").Inc()
		return &SyncReport{Empty: true}, nil
	}

	report := &SyncReport{}
	for _, line := range local.Items {
		err := r.backend.AddCartItem(ctx, backend.AddCartItemInput{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
		})
		if err != nil {
			report.Failed++
			syncItemsTotal.WithLabelValues("failed").Inc()
			r.logger.WarnContext(ctx, "failed to sync cart line",
				slog.String("product_id", line.ProductID),
				slog.Int("quantity", line.Quantity),
				slog.String("error", err.Error()),
			)
			continue
		}
		report.Submitted++
		syncItemsTotal.WithLabelValues("submitted").Inc()
	}

	if report.Submitted == 0 {
		syncRunsTotal.WithLabelValues("failed").Inc()
		return report, apperrors.Backend("could not move your cart to your account, please try again", nil)
	}

	if _, err := r.local.Clear(ctx); err != nil {
		r.logger.ErrorContext(ctx, "failed to delete local cart after sync",
			slog.String("error", err.Error()),
		)
	}

	if report.Failed > 0 {
		syncRunsTotal.WithLabelValues("partial").Inc()
	} else {
		syncRunsTotal.WithLabelValues("synced").Inc()
	}

	remote, err := r.backend.GetCart(ctx)
	if err != nil {
		return report, err
	}
	report.Cart = remote

	r.logger.InfoContext(ctx, "local cart synced",
		slog.Int("submitted", report.Submitted),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}
