package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Exchange is the topic exchange notification events are published to.
// Consumers bind their own queues with routing-key patterns such as
// "order.confirmed" or "order.#".
const Exchange = "storefront.notifications"

// AMQPDispatcher publishes events to RabbitMQ as persistent JSON messages.
type AMQPDispatcher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	lg   *zap.Logger
}

var _ Dispatcher = (*AMQPDispatcher)(nil)

// NewAMQPDispatcher dials the broker and declares the notification exchange.
func NewAMQPDispatcher(url string, lg *zap.Logger) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}

	if err := ch.ExchangeDeclare(
		Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare exchange")
	}

	return &AMQPDispatcher{conn: conn, ch: ch, lg: lg}, nil
}

// Dispatch publishes the event keyed by its kind.
func (d *AMQPDispatcher) Dispatch(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	err = d.ch.PublishWithContext(ctx,
		Exchange,
		ev.Kind, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.OccurredAt,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		return errors.Wrap(err, "publish")
	}

	d.lg.Debug("Notification published",
		zap.String("kind", ev.Kind),
		zap.String("order_number", ev.Order.OrderNumber),
	)
	return nil
}

// Close releases the channel and connection.
func (d *AMQPDispatcher) Close() error {
	if err := d.ch.Close(); err != nil {
		_ = d.conn.Close()
		return errors.Wrap(err, "close channel")
	}
	return d.conn.Close()
}
