package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"marketplace/internal/domain/entity"
	"marketplace/internal/domain/service"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultExchange = "account.events"

// rabbitMQPublisher publishes account events to a durable topic exchange.
// The routing key is the event type.
type rabbitMQPublisher struct {
	conn     *amqp.Connection
	exchange string
	logger   *slog.Logger

	// amqp channels are not safe for concurrent publishing.
	mu      sync.Mutex
	channel *amqp.Channel
}

// NewRabbitMQPublisher dials the broker and declares the exchange.
func NewRabbitMQPublisher(url, exchange string, logger *slog.Logger) (service.EventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "rabbitmq dial failed")
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, errors.Wrap(err, "rabbitmq channel open failed")
	}

	exchange = exchangeName(exchange)
	if err := channel.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()

		return nil, errors.Wrapf(err, "rabbitmq exchange declare %s failed", exchange)
	}

	return &rabbitMQPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// PublishAccountEvent publishes a persistent JSON message
func (p *rabbitMQPublisher) PublishAccountEvent(ctx context.Context, event *entity.AccountEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}

	headers := amqp.Table{}
	for key, value := range eventAttributes(event) {
		headers[key] = value
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		string(event.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			Timestamp:     time.Now().UTC(),
			CorrelationId: event.RequestID,
			Headers:       headers,
			Body:          body,
		},
	)
	if err != nil {
		return errors.Wrap(err, "rabbitmq publish failed")
	}

	p.logger.InfoContext(ctx, "[RabbitMQ] Event published",
		slog.String("exchange", p.exchange),
		slog.String("type", string(event.Type)),
	)

	return nil
}

func (p *rabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		_ = p.conn.Close()

		return errors.WithStack(err)
	}

	return errors.WithStack(p.conn.Close())
}

func exchangeName(configured string) string {
	if configured == "" {
		return defaultExchange
	}

	return configured
}
