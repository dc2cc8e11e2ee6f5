package services

import (
	"context"
	"fmt"
	"time"

	"github.com/petconnect/petconnect-api/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers change notifications to subscribers
type Publisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
	Close() error
}

// AMQPPublisher publishes to a RabbitMQ topic exchange
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials RabbitMQ and declares a durable topic exchange
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish sends a persistent JSON message
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	return p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// LogPublisher only logs notifications; used when no broker is configured
type LogPublisher struct{}

// Publish logs the notification
func (LogPublisher) Publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	logger.Log.Info("[publisher] change notification", "routing_key", routingKey, "message_id", messageID, "body", string(body))
	return nil
}

// Close does nothing
func (LogPublisher) Close() error {
	return nil
}
