package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/feastflow-backend/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"
)

// AMQPRelay fans hub messages out through a RabbitMQ fanout exchange. Each
// instance binds its own exclusive auto-delete queue.
type AMQPRelay struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	queue    string
	logg     *logger.Logger

	mu sync.Mutex
}

// DialAMQPRelay connects to url and declares the exchange and instance queue.
func DialAMQPRelay(url, exchange string, logg *logger.Logger) (*AMQPRelay, error) {
	if url == "" || exchange == "" {
		return nil, errors.New("amqp url and exchange are required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare relay queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("bind relay queue: %w", err)
	}
	return &AMQPRelay{conn: conn, ch: ch, exchange: exchange, queue: q.Name, logg: logg}, nil
}

func (r *AMQPRelay) Name() string { return "amqp" }

func (r *AMQPRelay) Forward(ctx context.Context, msg Message) error {
	body, err := encode(msg)
	if err != nil {
		return fmt.Errorf("encode relay message: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch.PublishWithContext(ctx, r.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now().UTC(),
		Type:        msg.Type,
		Body:        body,
	})
}

func (r *AMQPRelay) Run(ctx context.Context, deliver func(Message)) error {
	deliveries, err := r.ch.Consume(r.queue, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume relay queue: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp relay channel closed")
			}
			msg, err := decode(d.Body)
			if err != nil {
				if r.logg != nil {
					r.logg.Warn(ctx, "discarding malformed relay payload")
				}
				continue
			}
			deliver(msg)
		}
	}
}

func (r *AMQPRelay) Close() error {
	var err error
	if r.ch != nil {
		err = multierr.Append(err, r.ch.Close())
	}
	if r.conn != nil {
		err = multierr.Append(err, r.conn.Close())
	}
	return err
}
