package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// DefaultLogPath is where confirmations are appended when no path is set.
const DefaultLogPath = "logs/booking.log"

const maxBackoff = 30 * time.Second

// Consumer drains the booking.confirmed queue and appends one line per
// booking to LogPath.  Malformed messages are rejected without requeue.
type Consumer struct {
    URL     string
    LogPath string
    Log     logrus.FieldLogger
}

// NewConsumer returns a Consumer writing to DefaultLogPath.
func NewConsumer(url string, log logrus.FieldLogger) *Consumer {
    return &Consumer{URL: url, LogPath: DefaultLogPath, Log: log}
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff whenever the connection drops.  It
// returns nil once ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
    log := c.Log.WithField("queue", BookingConfirmedQueue)
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            log.WithError(err).WithField("retry_in", backoff.String()).Warn("booking-consumer: dial failed")
            if !sleep(ctx, backoff) {
                return nil
            }
            if backoff < maxBackoff {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return nil
        }
        log.WithError(err).Warn("booking-consumer: consume loop ended, reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return nil
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.WithError(err).Warn("booking-consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(BookingConfirmedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handle(d.Body); err != nil {
                c.Log.WithError(err).Error("booking-consumer: handle message failed")
                _ = d.Nack(false, false) // requeueing a bad message would loop forever
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handle(body []byte) error {
    var ev BookingConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    path := c.LogPath
    if path == "" {
        path = DefaultLogPath
    }
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// formatLine renders ev as a single human-readable log line.
func formatLine(ev BookingConfirmedEvent) string {
    return fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | reference=%s | user_id=%d | showtime_id=%d | movie_id=%d | venue=%q | starts=%s %s | total=%s | seats=[%s]\n",
        ev.ConfirmedAt, ev.BookingID, ev.Reference, ev.UserID, ev.ShowtimeID, ev.MovieID,
        ev.Venue, ev.ShowDate, ev.ShowTime, ev.TotalAmount, strings.Join(ev.SeatLabels, ","))
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
