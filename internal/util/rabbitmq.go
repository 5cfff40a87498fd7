package util

import (
	"context"
	"fmt"
	"sync"
	"time"

	"linkup/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type RabbitMQClient struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
	mu      sync.Mutex
}

func NewRabbitMQClient(cfg *config.Config) (*RabbitMQClient, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQUser, cfg.RabbitMQPassword, cfg.RabbitMQHost, cfg.RabbitMQPort)

	client := &RabbitMQClient{url: url}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

// ensureConnected redials a dropped connection and reopens a closed
// publishing channel. The caller holds r.mu.
func (r *RabbitMQClient) ensureConnected() error {
	if r.closed {
		return fmt.Errorf("rabbitmq client closed")
	}
	if r.conn == nil || r.conn.IsClosed() {
		logrus.Warn("RabbitMQ connection closed, reconnecting")
		return r.connect()
	}
	if r.channel == nil || r.channel.IsClosed() {
		ch, err := r.conn.Channel()
		if err != nil {
			return fmt.Errorf("failed to open RabbitMQ channel: %w", err)
		}
		r.channel = ch
	}
	return nil
}

func (r *RabbitMQClient) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	r.conn = conn
	r.channel = ch
	return nil
}

// declareDirectExchange declares a durable direct exchange with a durable
// queue bound to it under routingKey.
func declareDirectExchange(ch *amqp.Channel, exchange, queue, routingKey string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queue, err)
	}
	return nil
}

// Consume opens a dedicated channel on the current connection, redialing
// it first if it dropped, declares the topology and starts consuming queue
// with manual acks. The returned stream closes when that channel or the
// connection goes away; callers subscribe again to keep receiving.
func (r *RabbitMQClient) Consume(exchange, queue, routingKey, consumer string) (<-chan amqp.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureConnected(); err != nil {
		return nil, err
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open RabbitMQ consumer channel: %w", err)
	}
	if err := declareDirectExchange(ch, exchange, queue, routingKey); err != nil {
		ch.Close()
		return nil, err
	}
	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := ch.Consume(queue, consumer, false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to consume %s: %w", queue, err)
	}
	return msgs, nil
}

const consumerPrefetch = 32

// Publish sends a persistent JSON message. A closed connection or channel
// is reopened once before giving up.
func (r *RabbitMQClient) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureConnected(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Close closes the channel and connection
func (r *RabbitMQClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.channel != nil {
		r.channel.Close()
		r.channel = nil
	}
	if r.conn != nil {
		err := r.conn.Close()
		r.conn = nil
		return err
	}
	return nil
}
