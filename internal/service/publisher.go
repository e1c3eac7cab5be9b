// Package service holds the flows that span several stores or talk to
// the broker: event publishing, credit purchases and demo seeding.
package service

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Publisher sends a JSON payload to a named queue.
type Publisher interface {
    Publish(ctx context.Context, queueName string, payload any) error
}

// NopPublisher drops every message.  It is used when AMQP is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// AMQPPublisher publishes persistent messages through the default
// exchange, routing key = queue name.  The connection is opened lazily
// and re-dialled after a failure.
type AMQPPublisher struct {
    url string
    log *zap.Logger

    mu       sync.Mutex
    conn     *amqp.Connection
    ch       *amqp.Channel
    declared map[string]bool
}

func NewAMQPPublisher(url string, log *zap.Logger) *AMQPPublisher {
    return &AMQPPublisher{url: url, log: log.Named("publisher"), declared: map[string]bool{}}
}

// Publish marshals payload and sends it.  Errors are logged and
// returned so the caller can choose to ignore them.
func (p *AMQPPublisher) Publish(ctx context.Context, queueName string, payload any) error {
    body, err := json.Marshal(payload)
    if err != nil {
        p.log.Error("marshal event failed", zap.String("queue", queueName), zap.Error(err))
        return err
    }

    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel()
    if err != nil {
        p.log.Warn("broker unavailable", zap.String("queue", queueName), zap.Error(err))
        return err
    }
    if !p.declared[queueName] {
        // Durable so messages survive broker restarts.
        if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
            p.reset()
            p.log.Warn("queue declare failed", zap.String("queue", queueName), zap.Error(err))
            return err
        }
        p.declared[queueName] = true
    }

    msg := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queueName, false, false, msg); err != nil {
        p.reset()
        p.log.Warn("publish failed", zap.String("queue", queueName), zap.Error(err))
        return err
    }
    return nil
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, err
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *AMQPPublisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.conn, p.ch = nil, nil
    p.declared = map[string]bool{}
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}
