package messaging

import (
	"context"
	"strings"
)

// Channels fed by the outbox processor. Downstream consumers (pharmacy,
// housekeeping dashboards) subscribe to these, not to raw event types.
const (
	ChannelBedMovements      = "bed.movements"
	ChannelDocumentLifecycle = "documents.lifecycle"
)

// ChannelFor routes an outbox event type to its broker channel.
// Bed events (bed.admitted, bed.discharged, ...) fan out on the movements
// channel, everything else on the document lifecycle channel.
func ChannelFor(eventType string) string {
	if strings.HasPrefix(eventType, "bed.") {
		return ChannelBedMovements
	}
	return ChannelDocumentLifecycle
}

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope published on every channel.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
