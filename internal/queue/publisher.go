package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers order events to the broker.  Callers treat failures as
// non-fatal.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, ev OrderPlacedEvent) error
}

// AMQPPublisher publishes to a durable queue on the default exchange.  It
// dials per publish; order placement is infrequent enough that a pooled
// connection is not worth its reconnect handling.
type AMQPPublisher struct {
	URL   string
	Queue string
}

func NewAMQPPublisher(url, queue string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Queue: queue}
}

// PublishOrderPlaced marshals ev and publishes it as a persistent message.
func (p *AMQPPublisher) PublishOrderPlaced(ctx context.Context, ev OrderPlacedEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.Queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.Queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// NoopPublisher discards events; used when publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(context.Context, OrderPlacedEvent) error { return nil }

// RecordingPublisher keeps published events in memory.  Err, when set, is
// returned from every publish after recording.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []OrderPlacedEvent
	Err    error
}

func (r *RecordingPublisher) PublishOrderPlaced(_ context.Context, ev OrderPlacedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *RecordingPublisher) Events() []OrderPlacedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OrderPlacedEvent(nil), r.events...)
}
