package messaging

import (
	"context"
)

// Broker fans workflow events out to downstream consumers (reporting,
// SMS reminders). The API only ever writes through the outbox; the broker
// is driven by the worker process.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
