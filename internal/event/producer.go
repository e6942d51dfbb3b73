// Package event publishes storefront domain events to Kafka. Publishing is
// best effort: callers log failures and carry on, an event never blocks a
// customer-facing operation.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/delali3/era-store-sub002/internal/domain"
	pkgkafka "github.com/delali3/era-store-sub002/pkg/kafka"
)

// Kafka topic constants for storefront domain events.
const (
	TopicCartUpdated   = "storefront.cart.updated"
	TopicCartCleared   = "storefront.cart.cleared"
	TopicOrderPlaced   = "storefront.order.placed"
	TopicProductViewed = "storefront.product.viewed"
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
	AggregateTypeUser  = "user"
)

// Source identifier for events originating from the storefront core.
const SourceStorefront = "storefront-core"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID    string         `json:"user_id"`
	Lines     []CartLineData `json:"lines"`
	ItemCount int            `json:"item_count"`
	Subtotal  int64          `json:"subtotal"`
	Currency  string         `json:"currency"`
}

// CartLineData is the line payload within cart events.
type CartLineData struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	UserID string `json:"user_id"`
}

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
	LineCount   int    `json:"line_count"`
}

// ProductViewedData is the payload for a product.viewed event.
type ProductViewedData struct {
	UserID    string `json:"user_id"`
	ProductID int64  `json:"product_id"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the storefront core.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	lines := make([]CartLineData, len(cart.Lines))
	for i, line := range cart.Lines {
		lines[i] = CartLineData{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.EffectiveUnitPrice(),
		}
	}

	data := CartUpdatedData{
		UserID:    cart.UserID,
		Lines:     lines,
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Subtotal(),
		Currency:  cart.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, cart.UserID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("user_id", cart.UserID),
		slog.Int("item_count", cart.ItemCount()),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, userID string) error {
	data := CartClearedData{UserID: userID}

	event, err := pkgkafka.NewEvent(TopicCartCleared, userID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("user_id", userID),
	)

	return nil
}

// PublishOrderPlaced publishes an order.placed event.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	data := OrderPlacedData{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		LineCount:   len(order.Lines),
	}

	event, err := pkgkafka.NewEvent(TopicOrderPlaced, order.ID, AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create order.placed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderPlaced, event); err != nil {
		return fmt.Errorf("publish order.placed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.placed event",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
	)

	return nil
}

// PublishProductViewed publishes a product.viewed event.
func (p *Producer) PublishProductViewed(ctx context.Context, userID string, productID int64) error {
	data := ProductViewedData{UserID: userID, ProductID: productID}

	event, err := pkgkafka.NewEvent(TopicProductViewed, userID, AggregateTypeUser, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create product.viewed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductViewed, event); err != nil {
		return fmt.Errorf("publish product.viewed event: %w", err)
	}

	return nil
}
