// Package events publishes session auth events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"carrental/internal/session"
)

// DefaultExchange is the topic exchange auth events are published to.
const DefaultExchange = "storefront.auth"

const (
	dialTimeout = 5 * time.Second
	heartbeat   = 10 * time.Second
)

// RoutingKey is the routing key of an event, e.g. auth.tokeninvalidated.
func RoutingKey(kind session.EventKind) string {
	return "auth." + strings.ToLower(string(kind))
}

// Publisher sends events over one lazily dialed connection and redials after
// a failure.
type Publisher struct {
	url      string
	exchange string
	dial     func(url string, timeout time.Duration) (*amqp.Connection, error)

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher creates a Publisher. Nothing is dialed until the first
// Publish.
func NewPublisher(url, exchange string) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Publisher{url: url, exchange: exchange, dial: dial}
}

// dial connects with a bound on the TCP connect and the AMQP handshake.
func dial(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

// Encode renders ev as the message body.
func Encode(ev session.AuthEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    at.UTC(),
		Type:         string(ev.Kind),
		Body:         body,
	}, nil
}

// Publish implements nav.Sink.
func (p *Publisher) Publish(ctx context.Context, ev session.AuthEvent) error {
	msg, err := Encode(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, p.exchange, RoutingKey(ev.Kind), false, false, msg); err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	timeout := dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	conn, err := p.dial(p.url, timeout)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
