package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"storefront/config"
	"storefront/models"
)

// Channel is the subset of *amqp.Channel the publisher and consumer use.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel Channel
	Cfg     *config.Config

	mu          sync.Mutex
	openChannel func() (Channel, error)
	consumers   []Channel
}

func NewRabbitMQ(cfg *config.Config) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	r := &RabbitMQ{
		Conn:    conn,
		Channel: ch,
		Cfg:     cfg,
	}
	r.openChannel = func() (Channel, error) {
		c, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return r, nil
}

// NewWithChannel builds a publisher over an existing channel.
func NewWithChannel(ch Channel, cfg *config.Config) *RabbitMQ {
	return &RabbitMQ{Channel: ch, Cfg: cfg}
}

func (r *RabbitMQ) deadLetterExchange() string {
	return r.Cfg.DeadLetterQueue + "_exchange"
}

// SetupQueues declares the order topology: the orders exchange feeding a
// priority queue that dead-letters into its own exchange, and the delayed
// exchange used for payment checks.
func (r *RabbitMQ) SetupQueues() error {
	if err := r.Channel.ExchangeDeclare(
		r.deadLetterExchange(),
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare dead letter exchange: %w", err)
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.DeadLetterQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-queue-type": "classic",
		},
	); err != nil {
		return fmt.Errorf("declare dead letter queue: %w", err)
	}

	if err := r.Channel.QueueBind(
		r.Cfg.DeadLetterQueue,
		r.Cfg.DeadLetterQueue,
		r.deadLetterExchange(),
		false,
		nil,
	); err != nil {
		return fmt.Errorf("bind dead letter queue: %w", err)
	}

	if err := r.Channel.ExchangeDeclare(
		r.Cfg.OrderExchange,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare order exchange: %w", err)
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.OrderQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-max-priority":            r.Cfg.MaxPriority,
			"x-dead-letter-exchange":    r.deadLetterExchange(),
			"x-dead-letter-routing-key": r.Cfg.DeadLetterQueue,
		},
	); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}

	if err := r.Channel.QueueBind(
		r.Cfg.OrderQueue,
		"",
		r.Cfg.OrderExchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("bind order queue: %w", err)
	}

	// Requires the rabbitmq_delayed_message_exchange plugin.
	if err := r.Channel.ExchangeDeclare(
		r.Cfg.DelayExchange,
		"x-delayed-message",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		amqp.Table{"x-delayed-type": "direct"},
	); err != nil {
		slog.Warn("delayed exchange not supported, payment checks disabled", slog.String("error", err.Error()))
		return nil
	}

	if err := r.Channel.QueueBind(
		r.Cfg.OrderQueue,
		models.EventPaymentCheck,
		r.Cfg.DelayExchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("bind order queue to delay exchange: %w", err)
	}
	return nil
}

func (r *RabbitMQ) PublishOrderEvent(ctx context.Context, event models.OrderEvent, priority uint8) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Type:         event.Type,
		Body:         body,
		Priority:     priority,
	}
	return r.publish(ctx, r.Cfg.OrderExchange, "", msg)
}

func (r *RabbitMQ) PublishDelayedEvent(ctx context.Context, event models.OrderEvent, delay time.Duration) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Type:         event.Type,
		Body:         body,
		Headers: amqp.Table{
			"x-delay": delay.Milliseconds(),
		},
	}
	return r.publish(ctx, r.Cfg.DelayExchange, event.Type, msg)
}

func (r *RabbitMQ) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.Channel.PublishWithContext(ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		msg,
	)
}

// ConsumerChannel opens a channel for consuming. Publishing keeps Channel;
// a channel closed by a failed publish then does not stop deliveries.
func (r *RabbitMQ) ConsumerChannel() (Channel, error) {
	if r.openChannel == nil {
		return nil, errors.New("rabbitmq connection not open")
	}
	ch, err := r.openChannel()
	if err != nil {
		return nil, fmt.Errorf("open consumer channel: %w", err)
	}
	r.mu.Lock()
	r.consumers = append(r.consumers, ch)
	r.mu.Unlock()
	return ch, nil
}

func (r *RabbitMQ) Close() {
	r.mu.Lock()
	consumers := r.consumers
	r.consumers = nil
	r.mu.Unlock()
	for _, ch := range consumers {
		if err := ch.Close(); err != nil {
			slog.Warn("failed to close rabbitmq consumer channel", slog.String("error", err.Error()))
		}
	}
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil {
			slog.Warn("failed to close rabbitmq channel", slog.String("error", err.Error()))
		}
	}
	if r.Conn != nil {
		if err := r.Conn.Close(); err != nil {
			slog.Warn("failed to close rabbitmq connection", slog.String("error", err.Error()))
		}
	}
}
