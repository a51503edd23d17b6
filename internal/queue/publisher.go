package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher publishes domain events to RabbitMQ.  The connection is opened
// lazily and reused; a broken channel is re-dialed on the next publish.
// Messages are marked persistent and queues are declared durable so events
// survive broker restarts.
type Publisher struct {
	url string
	log *logrus.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a Publisher for the given AMQP URL.  No connection is
// made until the first publish.
func NewPublisher(url string, log *logrus.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// Close releases the AMQP connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// PublishBookingConfirmed enqueues a confirmation event for the worker.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	return p.publish(ctx, BookingConfirmedQueue, ev)
}

// PublishShowAdded enqueues a new-show alert event for the worker.
func (p *Publisher) PublishShowAdded(ctx context.Context, ev ShowAddedEvent) error {
	return p.publish(ctx, ShowAddedQueue, ev)
}

// publish declares the durable queue (idempotent) and publishes one
// persistent JSON message to it.  Errors are logged and returned so the
// caller can choose to ignore them without interrupting the request flow.
func (p *Publisher) publish(ctx context.Context, queueName string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.WithError(err).Error("rabbitmq: marshal event failed")
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.log.WithError(err).Error("rabbitmq: connect failed")
		return err
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.reset()
		p.log.WithError(err).Error("rabbitmq: queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.reset()
		p.log.WithError(err).Error("rabbitmq: publish failed")
		return err
	}
	return nil
}

// channel returns the cached channel, dialing if needed.  Callers must hold mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}
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

// reset drops the cached connection after a failure.  Callers must hold mu.
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
