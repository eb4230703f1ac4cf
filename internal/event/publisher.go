package event

import (
	"context"
	"log/slog"

	"github.com/storeloom/console/internal/session"
	"github.com/storeloom/console/pkg/kafka"
	"github.com/storeloom/console/pkg/logger"
)

// Catalog change event types.
const (
	TypeCategoryCreated   = "catalog.category.created"
	TypeCategoryUpdated   = "catalog.category.updated"
	TypeCategoryDeleted   = "catalog.category.deleted"
	TypeCategoryReordered = "catalog.category.reordered"
	TypeProductCreated    = "catalog.product.created"
	TypeProductUpdated    = "catalog.product.updated"
	TypeProductDeleted    = "catalog.product.deleted"
	TypeProductsBulk      = "catalog.product.bulk_changed"
)

const source = "console"

// Publisher emits catalog change events after mutations are fulfilled so
// downstream consumers (search indexing, storefront cache invalidation) can
// react. Publish failures are logged and swallowed: the mutation already
// succeeded upstream and must not be reported as failed.
type Publisher struct {
	producer *kafka.Producer
	topic    string
	logger   *slog.Logger
}

// NewPublisher creates a publisher writing to the given topic. A nil
// producer disables publishing, which keeps tests and local setups free of
// a broker requirement.
func NewPublisher(producer *kafka.Producer, topic string, log *slog.Logger) *Publisher {
	return &Publisher{producer: producer, topic: topic, logger: log}
}

type changePayload struct {
	StoreID  string   `json:"store_id"`
	EntityID string   `json:"entity_id,omitempty"`
	IDs      []string `json:"ids,omitempty"`
}

// Publish emits one catalog change event keyed by the entity ID.
func (p *Publisher) Publish(ctx context.Context, eventType, aggregateType, entityID string) {
	p.publish(ctx, eventType, aggregateType, entityID, nil)
}

// PublishBulk emits one event covering a whole ID set, keyed by the store so
// the batch stays ordered against other changes in the same tenant.
func (p *Publisher) PublishBulk(ctx context.Context, eventType, aggregateType string, ids []string) {
	p.publish(ctx, eventType, aggregateType, "", ids)
}

func (p *Publisher) publish(ctx context.Context, eventType, aggregateType, entityID string, ids []string) {
	if p.producer == nil {
		return
	}

	storeID, _ := session.StoreID(ctx)
	payload := changePayload{StoreID: storeID, EntityID: entityID, IDs: ids}

	aggregateID := entityID
	if aggregateID == "" {
		aggregateID = storeID
	}

	evt, err := kafka.NewEvent(eventType, aggregateID, aggregateType, source, payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "build catalog event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.producer.Publish(ctx, p.topic, evt); err != nil {
		p.logger.WarnContext(ctx, "catalog event publish failed",
			slog.String("event_type", eventType),
			slog.String("aggregate_id", aggregateID),
			slog.String("error", err.Error()),
		)
	}
}
