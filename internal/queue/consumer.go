package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-hub/internal/metrics"
)

// Sweeper removes reservations left behind by a deleted event.
type Sweeper interface {
	SweepEvent(ctx context.Context, eventID string) (int64, error)
}

// Consumer listens to the reservation.activity and event.removed queues.
// Activity messages are appended to <LogDir>/activity.log in a single-line,
// human-friendly format; event.removed messages trigger an orphan sweep.
type Consumer struct {
	URL     string
	LogDir  string
	Sweeper Sweeper
	Logger  zerolog.Logger

	mu sync.Mutex // serialises writes to the activity log
}

// Run keeps a consumer session alive, reconnecting with exponential backoff,
// until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := dial(c.URL, defaultDialTimeout)
		if err != nil {
			c.Logger.Warn().Err(err).Dur("retry_in", backoff).Msg("activity consumer: dial failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Logger.Warn().Err(err).Msg("activity consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Logger.Warn().Err(err).Msg("activity consumer: set QoS failed")
	}

	activity, err := c.subscribe(ch, ReservationActivityQueue)
	if err != nil {
		return err
	}
	removed, err := c.subscribe(ch, EventRemovedQueue)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-activity:
			if !ok {
				return errors.New("activity deliveries closed")
			}
			c.settle(d, ReservationActivityQueue, c.handleActivity(d.Body))
		case d, ok := <-removed:
			if !ok {
				return errors.New("event.removed deliveries closed")
			}
			c.settle(d, EventRemovedQueue, c.handleEventRemoved(ctx, d.Body))
		}
	}
}

func (c *Consumer) subscribe(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

func (c *Consumer) settle(d amqp.Delivery, queue string, err error) {
	if err != nil {
		c.Logger.Error().Err(err).Str("queue", queue).Msg("activity consumer: handle message failed")
		metrics.BrokerMessages.WithLabelValues(queue, "in", "error").Inc()
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	metrics.BrokerMessages.WithLabelValues(queue, "in", "ok").Inc()
	_ = d.Ack(false)
}

func (c *Consumer) handleActivity(body []byte) error {
	var ev ReservationActivity
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Reservation %s | event_id=%s | user=%s | seats=%d | registered=%t\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Action, ev.EventID, ev.UserEmail, ev.SeatCount, ev.Registered)
	return c.appendLine(line)
}

func (c *Consumer) handleEventRemoved(ctx context.Context, body []byte) error {
	var ev EventRemoved
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	var swept int64
	if c.Sweeper != nil && ev.EventID != "" {
		n, err := c.Sweeper.SweepEvent(ctx, ev.EventID)
		if err != nil {
			return fmt.Errorf("sweep event %s: %w", ev.EventID, err)
		}
		swept = n
	}
	line := fmt.Sprintf("[%s] Event removed | event_id=%s | reservations_removed=%d | swept=%d\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.EventID, ev.ReservationsRemoved, swept)
	return c.appendLine(line)
}

func (c *Consumer) appendLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := c.LogDir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "activity.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

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
