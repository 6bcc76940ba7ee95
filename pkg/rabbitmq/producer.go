/**
 * @description
 * This package provides the RabbitMQ event producer used to publish
 * back-office events (account creation, deposits, cancellations) to a
 * durable topic exchange. When the broker is unreachable at startup the
 * service falls back to a no-op publisher that only logs, so event
 * delivery is best-effort and never fails a request.
 *
 * @dependencies
 * - github.com/rabbitmq/amqp091-go: The AMQP 0.9.1 client library.
 */

package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body any) error
	Close()
}

// EventProducer publishes events to a RabbitMQ topic exchange.
type EventProducer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NopPublisher is a minimal no-op publisher used when RabbitMQ is
// unavailable at startup. It lets the service start and logs events
// instead of failing hard.
type NopPublisher struct {
	Logger *zap.Logger
}

func (p *NopPublisher) Publish(_ context.Context, exchange, routingKey string, body any) error {
	if p.Logger != nil {
		p.Logger.Debug("event dropped: no broker connection",
			zap.String("exchange", exchange),
			zap.String("routing_key", routingKey),
			zap.Any("body", body))
	}
	return nil
}

func (p *NopPublisher) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	// If any stray characters precede the scheme, slice from the first occurrence of amqp
	if idx := strings.Index(strings.ToLower(clean), "amqp"); idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer establishes a connection and channel to RabbitMQ.
func NewEventProducer(amqpURL string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Bounded dial timeout so startup does not hang indefinitely.
	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &EventProducer{conn: conn, channel: ch}, nil
}

// Publish sends a JSON message to the exchange with the given routing key,
// declaring the exchange (durable topic) on first use.
func (p *EventProducer) Publish(ctx context.Context, exchange, routingKey string, body any) error {
	if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		// One reopen attempt: channels die on protocol errors.
		ch, chErr := p.conn.Channel()
		if chErr != nil {
			return chErr
		}
		p.channel = ch
		if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	})
}

// Close shuts down the channel and connection.
func (p *EventProducer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
