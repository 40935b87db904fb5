// In-memory consumer for tests: same ack/nack semantics as the real
// transport, with redelivery on nack and a cap so a permanently
// nacking handler terminates the test instead of spinning.

package queue

import (
	"context"
	"encoding/json"
	"sync"
)

const DefaultMaxRedeliveries = 25

type SimConsumer struct {
	mu      sync.Mutex
	pending []simDelivery

	// MaxRedeliveries caps redelivery per message before it is dropped.
	MaxRedeliveries int

	// Counters for test assertions.
	Acked   int
	Nacked  int
	Dropped int
}

type simDelivery struct {
	body       []byte
	deliveries int
}

var _ Consumer = (*SimConsumer)(nil)

func NewSimConsumer() *SimConsumer {
	return &SimConsumer{MaxRedeliveries: DefaultMaxRedeliveries}
}

// Publish enqueues a raw message body.
func (s *SimConsumer) Publish(body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, simDelivery{body: body})
}

// PublishNewTx wraps data in the standard envelope and enqueues it.
func (s *SimConsumer) PublishNewTx(data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	body, err := json.Marshal(&Message{Type: TypeNewTx, Data: raw})
	if err != nil {
		return err
	}
	s.Publish(body)
	return nil
}

// Subscribe drains the queue until it is empty or ctx is cancelled.
// Nacked messages go to the back of the queue, like a broker redelivery.
func (s *SimConsumer) Subscribe(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return nil
		}
		d := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		var msg Message
		if err := json.Unmarshal(d.body, &msg); err != nil {
			s.mu.Lock()
			s.Acked++
			s.mu.Unlock()
			continue
		}

		disposition := handler(&msg)

		s.mu.Lock()
		switch disposition {
		case Ack:
			s.Acked++
		case Nack:
			s.Nacked++
			d.deliveries++
			if d.deliveries >= s.MaxRedeliveries {
				s.Dropped++
			} else {
				s.pending = append(s.pending, d)
			}
		}
		s.mu.Unlock()
	}
}

func (s *SimConsumer) Close() error { return nil }
