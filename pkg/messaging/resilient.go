package messaging

import (
	"context"

	"github.com/intisalud/hospital-api/pkg/circuitbreaker"
)

// ResilientBroker wraps publishes in a circuit breaker. When the broker is
// unreachable the publish fails immediately with circuitbreaker.ErrOpen and
// the outbox keeps the event for a later retry.
type ResilientBroker struct {
	next    Broker
	breaker *circuitbreaker.Breaker
}

func NewResilientBroker(next Broker, breaker *circuitbreaker.Breaker) *ResilientBroker {
	return &ResilientBroker{next: next, breaker: breaker}
}

func (r *ResilientBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	return r.breaker.Do(func() error {
		return r.next.Publish(ctx, channel, message)
	})
}

// Subscribe passes through; the breaker guards only the publish path.
func (r *ResilientBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return r.next.Subscribe(ctx, channel)
}

func (r *ResilientBroker) Close() error {
	return r.next.Close()
}
