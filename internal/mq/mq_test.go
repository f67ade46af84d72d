package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/productcatalog/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	routingKey string
	data       []byte
	attrs      map[string]string
	err        error
	handler    Handler
}

func (b *recordingBackend) Publish(_ context.Context, routingKey string, data []byte, attrs map[string]string) (string, error) {
	b.routingKey = routingKey
	b.data = data
	b.attrs = attrs
	return "msg-1", b.err
}

func (b *recordingBackend) Subscribe(_ context.Context, _ string, handler Handler) error {
	b.handler = handler
	return nil
}

func (b *recordingBackend) Close() error { return nil }

func TestPublisher_Publish(t *testing.T) {
	backend := &recordingBackend{}
	publisher := New(backend)

	event := NewEvent(EventProductCreated, ResourceProduct, []int{4}, map[string]string{"title": "Lamp"})
	require.NoError(t, publisher.Publish(context.Background(), event))

	assert.Equal(t, "product.created", backend.routingKey)
	assert.Equal(t, map[string]string{"type": "product.created", "resource": "product"}, backend.attrs)

	var decoded Event
	require.NoError(t, json.Unmarshal(backend.data, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, []int{4}, decoded.ResourceIDs)
	assert.NotEmpty(t, decoded.ID)
}

func TestPublisher_PublishError(t *testing.T) {
	backend := &recordingBackend{err: errors.New("broker down")}
	err := New(backend).Publish(context.Background(), NewEvent(EventCategoryDeleted, ResourceCategory, []int{1}, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category.deleted")
}

func TestPublisher_SubscribeDecodes(t *testing.T) {
	backend := &recordingBackend{}
	publisher := New(backend)

	var got Event
	require.NoError(t, publisher.Subscribe(context.Background(), "#", func(_ context.Context, event Event) error {
		got = event
		return nil
	}))

	data, err := json.Marshal(NewEvent(EventCategoryUpdated, ResourceCategory, []int{2}, nil))
	require.NoError(t, err)
	require.NoError(t, backend.handler(context.Background(), Message{ID: "m", Data: data}))
	assert.Equal(t, EventCategoryUpdated, got.Type)

	require.Error(t, backend.handler(context.Background(), Message{ID: "bad", Data: []byte("{")}))
}

func TestMatchRoutingKey(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"#", "product.created", true},
		{"", "category.deleted", true},
		{"product.*", "product.created", true},
		{"product.*", "category.created", false},
		{"*.deleted", "category.deleted", true},
		{"product.#", "product", true},
		{"product.created", "product.created", true},
		{"product.created", "product.updated", false},
		{"*", "product.created", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchRoutingKey(tt.pattern, tt.key), "%s vs %s", tt.pattern, tt.key)
	}
}

func TestNewBackend(t *testing.T) {
	backend, err := NewBackend(context.Background(), config.Config{MQBackend: "none"})
	require.NoError(t, err)
	assert.IsType(t, NoopBackend{}, backend)
	require.ErrorIs(t, backend.Subscribe(context.Background(), "#", nil), ErrNoBroker)

	_, err = NewBackend(context.Background(), config.Config{MQBackend: "kafka"})
	require.Error(t, err)

	_, err = NewBackend(context.Background(), config.Config{MQBackend: "rabbitmq"})
	require.Error(t, err)
}
