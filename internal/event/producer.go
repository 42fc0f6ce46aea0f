// Package event publishes storefront workflow events.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Topics written by the storefront.
var (
	TopicCartSynced       = pkgkafka.Topic("cart", "synced")
	TopicOrderCreated     = pkgkafka.Topic("order", "created")
	TopicPaymentVerified  = pkgkafka.Topic("payment", "verified")
	TopicPaymentFailed    = pkgkafka.Topic("payment", "failed")
	TopicCheckoutAdvanced = pkgkafka.Topic("checkout", "advanced")
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront-bff"

// Publisher sends an event to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// CartSyncedData is the payload for a cart.synced event.
type CartSyncedData struct {
	Submitted int `json:"submitted"`
	Failed    int `json:"failed"`
	ItemCount int `json:"item_count"`
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
	ItemCount   int    `json:"item_count"`
}

// PaymentVerifiedData is the payload for a payment.verified event.
type PaymentVerifiedData struct {
	OrderID           string `json:"order_id"`
	ProviderOrderID   string `json:"provider_order_id"`
	ProviderPaymentID string `json:"provider_payment_id"`
	Attempt           int    `json:"attempt"`
}

// PaymentFailedData is the payload for a payment.failed event.
type PaymentFailedData struct {
	OrderID   string `json:"order_id"`
	Reason    string `json:"reason"`
	Cancelled bool   `json:"cancelled"`
	Attempt   int    `json:"attempt"`
}

// CheckoutAdvancedData is the payload for a checkout.advanced event.
type CheckoutAdvancedData struct {
	From domain.CheckoutStep `json:"from"`
	To   domain.CheckoutStep `json:"to"`
}

// Producer publishes storefront events. A nil publisher drops every event,
// which is how the service runs without Kafka.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishCartSynced publishes a cart.synced event.
func (p *Producer) PublishCartSynced(ctx context.Context, visitorID string, data CartSyncedData) error {
	return p.publish(ctx, TopicCartSynced, "cart.synced", visitorID, "", data)
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, visitorID string, order *domain.Order) error {
	data := OrderCreatedData{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		ItemCount:   len(order.Items),
	}
	return p.publish(ctx, TopicOrderCreated, "order.created", visitorID, order.ID, data)
}

// PublishPaymentVerified publishes a payment.verified event.
func (p *Producer) PublishPaymentVerified(ctx context.Context, visitorID string, data PaymentVerifiedData) error {
	return p.publish(ctx, TopicPaymentVerified, "payment.verified", visitorID, data.OrderID, data)
}

// PublishPaymentFailed publishes a payment.failed event.
func (p *Producer) PublishPaymentFailed(ctx context.Context, visitorID string, data PaymentFailedData) error {
	return p.publish(ctx, TopicPaymentFailed, "payment.failed", visitorID, data.OrderID, data)
}

// PublishCheckoutAdvanced publishes a checkout.advanced event.
func (p *Producer) PublishCheckoutAdvanced(ctx context.Context, visitorID string, data CheckoutAdvancedData) error {
	return p.publish(ctx, TopicCheckoutAdvanced, "checkout.advanced", visitorID, "", data)
}

// publish wraps data and sends it. An empty key partitions by visitor.
func (p *Producer) publish(ctx context.Context, topic, eventType, visitorID, key string, data any) error {
	if p == nil || p.publisher == nil {
		return nil
	}

	evt, err := pkgkafka.NewEvent(ctx, pkgkafka.EventInput{
		Type:      eventType,
		Source:    SourceStorefront,
		VisitorID: visitorID,
		Key:       key,
		Payload:   data,
	})
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}

	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("event_type", eventType),
		slog.String("key", evt.Key),
	)
	return nil
}
