package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"transit-booking/internal/domain/booking"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPNotifier publishes booking events to a durable topic exchange, routed by
// event type. A channel is not safe for concurrent publishes, so one mutex
// guards the channel and reconnects.
type AMQPNotifier struct {
	url      string
	exchange string
	logger   *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPNotifier(url, exchange string, logger *slog.Logger) (*AMQPNotifier, error) {
	n := &AMQPNotifier{url: url, exchange: exchange, logger: logger}
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *AMQPNotifier) connect() error {
	if n.conn == nil || n.conn.IsClosed() {
		conn, err := amqp.Dial(n.url)
		if err != nil {
			return fmt.Errorf("rabbitmq dial: %w", err)
		}
		n.conn = conn
		n.ch = nil
	}
	if n.ch == nil || n.ch.IsClosed() {
		ch, err := n.conn.Channel()
		if err != nil {
			return fmt.Errorf("rabbitmq channel: %w", err)
		}
		if err := ch.ExchangeDeclare(
			n.exchange,
			amqp.ExchangeTopic,
			true,  // durable
			false, // autoDelete
			false, // internal
			false, // noWait
			nil,
		); err != nil {
			_ = ch.Close()
			return fmt.Errorf("rabbitmq exchange declare: %w", err)
		}
		n.ch = ch
	}
	return nil
}

func (n *AMQPNotifier) Publish(ctx context.Context, event booking.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.connect(); err != nil {
		return err
	}
	err = n.ch.PublishWithContext(ctx,
		n.exchange,
		string(event.Type), // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.BookingID.String() + ":" + string(event.Type),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", event.Type, err)
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil && !n.conn.IsClosed() {
		return n.conn.Close()
	}
	return nil
}
