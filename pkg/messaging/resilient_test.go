package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intisalud/hospital-api/pkg/circuitbreaker"
	"github.com/intisalud/hospital-api/pkg/clock"
)

type stubBroker struct {
	publishErr error
	published  int
	closed     bool
}

func (s *stubBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	s.published++
	return s.publishErr
}

func (s *stubBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (s *stubBroker) Close() error {
	s.closed = true
	return nil
}

func TestResilientBrokerPassesThroughHealthyPublishes(t *testing.T) {
	stub := &stubBroker{}
	broker := NewResilientBroker(stub, circuitbreaker.New(circuitbreaker.Config{}))

	require.NoError(t, broker.Publish(context.Background(), ChannelBedMovements, Message{Type: "bed.admitted"}))
	assert.Equal(t, 1, stub.published)
}

func TestResilientBrokerFailsFastWhenOpen(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	stub := &stubBroker{publishErr: errors.New("dial tcp: connection refused")}
	broker := NewResilientBroker(stub, circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 2,
		Cooldown:         time.Minute,
		Clock:            clk,
	}))

	ctx := context.Background()
	assert.Error(t, broker.Publish(ctx, ChannelBedMovements, Message{Type: "bed.admitted"}))
	assert.Error(t, broker.Publish(ctx, ChannelBedMovements, Message{Type: "bed.admitted"}))

	// Breaker is open now, the underlying broker is no longer reached.
	err := broker.Publish(ctx, ChannelBedMovements, Message{Type: "bed.admitted"})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 2, stub.published)

	// After the cooldown the probe goes through again.
	clk.Advance(2 * time.Minute)
	stub.publishErr = nil
	require.NoError(t, broker.Publish(ctx, ChannelBedMovements, Message{Type: "bed.admitted"}))
	assert.Equal(t, 3, stub.published)
}

func TestResilientBrokerDelegatesClose(t *testing.T) {
	stub := &stubBroker{}
	broker := NewResilientBroker(stub, circuitbreaker.New(circuitbreaker.Config{}))

	require.NoError(t, broker.Close())
	assert.True(t, stub.closed)
}
