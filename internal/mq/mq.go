package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventCategoryCreated     = "category.created"
	EventCategoryUpdated     = "category.updated"
	EventCategoryDeleted     = "category.deleted"
	EventProductCreated      = "product.created"
	EventProductUpdated      = "product.updated"
	EventProductDeleted      = "product.deleted"
	EventProductsBulkDeleted = "product.bulk_deleted"

	ResourceCategory = "category"
	ResourceProduct  = "product"
)

// Event describes a committed change to the catalog.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Resource    string    `json:"resource"`
	ResourceIDs []int     `json:"resourceIds"`
	OccurredAt  time.Time `json:"occurredAt"`
	Payload     any       `json:"payload,omitempty"`
}

// NewEvent stamps a new event with a random id and the current time.
func NewEvent(eventType, resource string, ids []int, payload any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		Resource:    resource,
		ResourceIDs: ids,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
}

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
// The routing key is the event type; subscribers filter with a pattern
// the backend understands.
type Backend interface {
	Publish(ctx context.Context, routingKey string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, pattern string, handler Handler) error
	Close() error
}

// Publisher encodes catalog events and hands them to a backend.
type Publisher struct {
	backend Backend
}

// New constructs a Publisher for the provided backend.
func New(backend Backend) *Publisher {
	return &Publisher{backend: backend}
}

// Publish sends the event, keyed by its type.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	attrs := map[string]string{
		"type":     event.Type,
		"resource": event.Resource,
	}
	if _, err := p.backend.Publish(ctx, event.Type, data, attrs); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Subscribe decodes every event matching pattern and passes it to fn.
func (p *Publisher) Subscribe(ctx context.Context, pattern string, fn func(ctx context.Context, event Event) error) error {
	return p.backend.Subscribe(ctx, pattern, func(ctx context.Context, msg Message) error {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return fmt.Errorf("decode event %s: %w", msg.ID, err)
		}
		return fn(ctx, event)
	})
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	return p.backend.Close()
}
