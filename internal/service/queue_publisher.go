// Package service holds outbound integrations used by the reservation
// engine.  Publisher sends booking confirmations to RabbitMQ.
package service

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/stagepass/internal/queue"
)

// Publisher publishes BookingConfirmedEvents as persistent JSON messages.
// The broker connection is opened on first use and reopened after any
// failure.  It is safe for concurrent use.
type Publisher struct {
    url string
    log logrus.FieldLogger

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher returns a Publisher for the broker at url.  No connection is
// made until the first publish.
func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
    return &Publisher{url: url, log: log}
}

// PublishBookingConfirmed sends event to the booking.confirmed queue.
// Errors are logged and returned; callers treat them as best effort.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error {
    msg, err := newPublishing(event, time.Now())
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel()
    if err != nil {
        p.log.WithError(err).Warn("rabbitmq: connect failed")
        return err
    }
    if err := ch.PublishWithContext(ctx,
        "",                          // default exchange
        queue.BookingConfirmedQueue, // routing key = queue name
        false,                       // mandatory
        false,                       // immediate
        msg,
    ); err != nil {
        p.log.WithError(err).WithField("booking_id", event.BookingID).Warn("rabbitmq: publish failed")
        p.reset()
        return err
    }
    return nil
}

// Close releases the broker connection, if any.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}

// channel returns the open channel, dialing and declaring the queue when
// needed.  p.mu must be held.
func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()

    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, fmt.Errorf("dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("channel open: %w", err)
    }
    // durable so messages survive broker restarts
    if _, err := ch.QueueDeclare(queue.BookingConfirmedQueue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, fmt.Errorf("queue declare: %w", err)
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

func newPublishing(event queue.BookingConfirmedEvent, now time.Time) (amqp.Publishing, error) {
    body, err := json.Marshal(event)
    if err != nil {
        return amqp.Publishing{}, err
    }
    return amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    event.Reference,
        Type:         queue.BookingConfirmedQueue,
        Timestamp:    now.UTC(),
        Body:         body,
    }, nil
}
