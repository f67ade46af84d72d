package services

import (
	"context"

	"github.com/productcatalog/apiserver/internal/mq"
	"github.com/sirupsen/logrus"
)

// EventPublisher delivers catalog change events.
type EventPublisher interface {
	Publish(ctx context.Context, event mq.Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, mq.Event) error { return nil }

// notifier publishes after a mutation has committed. Failures are logged
// and never reach the caller.
type notifier struct {
	events EventPublisher
	log    logrus.FieldLogger
}

func newNotifier(events EventPublisher, log logrus.FieldLogger) notifier {
	if events == nil {
		events = noopPublisher{}
	}
	if log == nil {
		discard := logrus.New()
		discard.SetLevel(logrus.PanicLevel)
		log = discard
	}
	return notifier{events: events, log: log}
}

func (n notifier) notify(ctx context.Context, eventType, resource string, ids []int, payload any) {
	event := mq.NewEvent(eventType, resource, ids, payload)
	if err := n.events.Publish(ctx, event); err != nil {
		n.log.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": eventType,
			"ids":        ids,
		}).WithError(err).Warn("failed to publish catalog event")
	}
}
