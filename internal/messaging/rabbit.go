// internal/messaging/rabbit.go
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"dataservices/internal/metrics"
	"dataservices/internal/model"
)

// DefaultExchange is the topic exchange change events are published to.
const DefaultExchange = "dataservices.changes"

type RabbitClient struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	URL      string
	exchange string
	logger   *zap.Logger

	// amqp channels must not be used for concurrent publishes
	mu sync.Mutex
}

// NewRabbitClient dials url and declares the durable topic exchange.
func NewRabbitClient(url, exchange string, logger *zap.Logger) (*RabbitClient, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &RabbitClient{
		conn:     conn,
		channel:  ch,
		URL:      url,
		exchange: exchange,
		logger:   logger,
	}, nil
}

func (r *RabbitClient) GetConnection() *amqp.Connection {
	return r.conn
}

func (r *RabbitClient) Exchange() string {
	return r.exchange
}

// DeclareInvalidationQueue creates an exclusive, auto-deleted queue for this
// instance bound to every change event, and returns its name.
func (r *RabbitClient) DeclareInvalidationQueue() (string, error) {
	name := fmt.Sprintf("%s.invalidate.%s", r.exchange, uuid.NewString())

	r.mu.Lock()
	defer r.mu.Unlock()

	q, err := r.channel.QueueDeclare(
		name,
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false,
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("declare queue: %w", err)
	}
	if err := r.channel.QueueBind(q.Name, "#", r.exchange, false, nil); err != nil {
		return "", fmt.Errorf("bind queue %s: %w", q.Name, err)
	}

	r.logger.Info("Invalidation queue declared", zap.String("queue", q.Name))
	return q.Name, nil
}

// Publish sends a change event to the exchange under its routing key.
func (r *RabbitClient) Publish(ctx context.Context, ev model.ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}

	r.mu.Lock()
	err = r.channel.Publish(
		r.exchange,
		ev.RoutingKey(),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient,
			Timestamp:    ev.OccurredAt,
			MessageId:    uuid.NewString(),
			Body:         body,
		},
	)
	r.mu.Unlock()

	if err != nil {
		metrics.EventsPublished.WithLabelValues(ev.Entity, ev.Op, "error").Inc()
		return fmt.Errorf("failed to publish %s: %w", ev.RoutingKey(), err)
	}
	metrics.EventsPublished.WithLabelValues(ev.Entity, ev.Op, "ok").Inc()
	return nil
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	if err := r.conn.Close(); err != nil {
		return err
	}
	return nil
}

func (r *RabbitClient) Ping(context.Context) error {
	if r.conn.IsClosed() {
		return amqp.ErrClosed
	}
	return nil
}

func (r *RabbitClient) UpdateQueueDepth(queueName string) {
	r.mu.Lock()
	q, err := r.channel.QueueInspect(queueName)
	r.mu.Unlock()
	if err != nil {
		r.logger.Warn("Failed to inspect queue", zap.String("queue", queueName), zap.Error(err))
		return
	}

	metrics.QueueDepth.WithLabelValues(queueName).Set(float64(q.Messages))
}
