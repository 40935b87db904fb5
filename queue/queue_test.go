package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnsupportedKind(t *testing.T) {
	_, err := New(&Config{Kind: "kafka"})
	assert.ErrorIs(t, err, ErrUnsupportedKind)

	_, err = New(&Config{})
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestSimConsumerAck(t *testing.T) {
	sim := NewSimConsumer()
	require.NoError(t, sim.PublishNewTx(map[string]string{"tx_id": "aa"}))

	var seen []string
	err := sim.Subscribe(context.Background(), func(msg *Message) Disposition {
		var data map[string]string
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		seen = append(seen, data["tx_id"])
		return Ack
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"aa"}, seen)
	assert.Equal(t, 1, sim.Acked)
	assert.Equal(t, 0, sim.Nacked)
}

// A nacked message is redelivered until the handler accepts it.
func TestSimConsumerRedeliversOnNack(t *testing.T) {
	sim := NewSimConsumer()
	require.NoError(t, sim.PublishNewTx(map[string]string{"tx_id": "bb"}))

	deliveries := 0
	err := sim.Subscribe(context.Background(), func(msg *Message) Disposition {
		deliveries++
		if deliveries < 3 {
			return Nack
		}
		return Ack
	})
	require.NoError(t, err)
	assert.Equal(t, 3, deliveries)
	assert.Equal(t, 1, sim.Acked)
	assert.Equal(t, 2, sim.Nacked)
}

// A handler that never accepts cannot spin the test forever.
func TestSimConsumerDropsAfterRedeliveryCap(t *testing.T) {
	sim := NewSimConsumer()
	sim.MaxRedeliveries = 4
	require.NoError(t, sim.PublishNewTx(map[string]string{"tx_id": "cc"}))

	err := sim.Subscribe(context.Background(), func(msg *Message) Disposition {
		return Nack
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sim.Dropped)
	assert.Equal(t, 4, sim.Nacked)
}

func TestSimConsumerUndecodableBody(t *testing.T) {
	sim := NewSimConsumer()
	sim.Publish([]byte("{not json"))

	called := false
	err := sim.Subscribe(context.Background(), func(msg *Message) Disposition {
		called = true
		return Ack
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, 1, sim.Acked)
}
