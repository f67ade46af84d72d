package mq

import (
	"context"
	"errors"
)

// ErrNoBroker is returned when subscribing without a configured broker.
var ErrNoBroker = errors.New("no message broker configured")

// NoopBackend drops every published message.
type NoopBackend struct{}

func (NoopBackend) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

func (NoopBackend) Subscribe(context.Context, string, Handler) error {
	return ErrNoBroker
}

func (NoopBackend) Close() error {
	return nil
}
