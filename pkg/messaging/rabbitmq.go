// Package messaging publishes notification events to RabbitMQ.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends JSON messages to a single durable queue.
type Publisher struct {
	conn    *amqp.Connection
	channel Channel
	queue   string
	logger  *zap.Logger

	mu        sync.Mutex
	published int64
	failed    int64
}

// Dial connects to the broker, declares the queue and returns a publisher.
func Dial(url, queue string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	p := NewPublisher(ch, queue, logger)
	p.conn = conn
	return p, nil
}

// NewPublisher wraps an already declared channel.
func NewPublisher(ch Channel, queue string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{channel: ch, queue: queue, logger: logger}
}

// Publish marshals payload and sends it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, messageType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.record(false)
		return fmt.Errorf("marshal %s message: %w", messageType, err)
	}
	err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Type:         messageType,
		Body:         body,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		p.record(false)
		return fmt.Errorf("publish %s message: %w", messageType, err)
	}
	p.record(true)
	p.logger.Debug("message published", zap.String("queue", p.queue), zap.String("type", messageType))
	return nil
}

// Stats returns published and failed message counts.
func (p *Publisher) Stats() (published, failed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published, p.failed
}

// Close shuts the channel and connection.
func (p *Publisher) Close() error {
	var firstErr error
	if p.channel != nil {
		firstErr = p.channel.Close()
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Publisher) record(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok {
		p.published++
	} else {
		p.failed++
	}
}
