package shipping

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Tracking is a shipment with its position in the progress display.
type Tracking struct {
	Shipment *domain.Shipment `json:"shipment"`
	// Progress is the status ordinal, or -1 when the status is unknown.
	Progress int `json:"progress"`
}

// Tracker looks up shipments.
type Tracker struct {
	backend Backend
}

// NewTracker creates a tracker.
func NewTracker(b Backend) *Tracker {
	return &Tracker{backend: b}
}

// ByAWB tracks a shipment by its AWB code.
func (t *Tracker) ByAWB(ctx context.Context, awb string) (*Tracking, error) {
	if awb == "" {
		return nil, apperrors.InvalidInput("awb code is required")
	}
	s, err := t.backend.TrackAWB(ctx, awb)
	if err != nil {
		return nil, err
	}
	return &Tracking{Shipment: s, Progress: s.Status.Ordinal()}, nil
}

// ByShipment tracks a shipment by its id.
func (t *Tracker) ByShipment(ctx context.Context, shipmentID string) (*Tracking, error) {
	if shipmentID == "" {
		return nil, apperrors.InvalidInput("shipment id is required")
	}
	s, err := t.backend.TrackShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	return &Tracking{Shipment: s, Progress: s.Status.Ordinal()}, nil
}
