package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/pkg/logger"
)

// SchemaVersion is the envelope version this service writes.
const SchemaVersion = 1

// Event is the envelope of a storefront message. Key selects the
// partition; order events use the order id so one order's history stays
// in sequence, the rest use the visitor id.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Key           string          `json:"key"`
	VisitorID     string          `json:"visitor_id"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Schema        int             `json:"schema"`
	Payload       json.RawMessage `json:"payload"`
}

// EventInput describes an event to build. Key defaults to VisitorID.
type EventInput struct {
	Type      string
	Source    string
	VisitorID string
	Key       string
	Payload   any
}

// NewEvent builds an envelope for in, stamped with a fresh id and the
// correlation id carried by ctx.
func NewEvent(ctx context.Context, in EventInput) (*Event, error) {
	if in.Type == "" {
		return nil, fmt.Errorf("event type is required")
	}
	payload, err := json.Marshal(in.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", in.Type, err)
	}
	key := in.Key
	if key == "" {
		key = in.VisitorID
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          in.Type,
		Key:           key,
		VisitorID:     in.VisitorID,
		Source:        in.Source,
		CorrelationID: logger.CorrelationIDFromContext(ctx),
		OccurredAt:    time.Now().UTC(),
		Schema:        SchemaVersion,
		Payload:       payload,
	}, nil
}

// Decode unmarshals the payload into target.
func (e *Event) Decode(target any) error {
	return json.Unmarshal(e.Payload, target)
}
