package queue

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	logger "github.com/sirupsen/logrus"
)

// AmqpConsumer drains a RabbitMQ queue with manual acknowledgement and
// a prefetch of one, so no two handlers for the same subscription are
// ever in flight.
type AmqpConsumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

var _ Consumer = (*AmqpConsumer)(nil)

func NewAmqpConsumer(cfg *Config) (*AmqpConsumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AmqpConsumer{conn: conn, ch: ch, queue: cfg.Queue}, nil
}

func (c *AmqpConsumer) Subscribe(ctx context.Context, handler Handler) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	logger.WithField("queue", c.queue).Info("subscribed to event queue")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}

			var msg Message
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				// an unparsable body will never parse on redelivery
				logger.WithField("error", err).Warn("dropping undecodable queue message")
				if err := d.Ack(false); err != nil {
					return err
				}
				continue
			}

			switch handler(&msg) {
			case Ack:
				if err := d.Ack(false); err != nil {
					return err
				}
			case Nack:
				if err := d.Nack(false, true); err != nil {
					return err
				}
			}
		}
	}
}

func (c *AmqpConsumer) Close() error {
	if err := c.ch.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}
