package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-hub/internal/metrics"
)

var (
	ErrPublisherClosed   = errors.New("publisher closed")
	ErrPublishBufferFull = errors.New("publish buffer full")

	errBrokerBackoff = errors.New("broker unavailable; waiting before redial")
)

const (
	defaultDialTimeout   = 2 * time.Second
	defaultPublishBuffer = 256
	redialAfter          = 5 * time.Second
	sendTimeout          = 5 * time.Second
)

// dial opens a broker connection whose TCP connect and AMQP handshake are
// both bounded by timeout.
func dial(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
}

type message struct {
	queue string
	body  []byte
}

// Publisher sends persistent JSON messages to durable queues.  Publish only
// enqueues; a background goroutine owns the broker connection, opening it
// lazily and re-dialing after a failure.  Messages are dropped when the
// buffer is full so a slow or unreachable broker never holds up a request.
type Publisher struct {
	url         string
	logger      zerolog.Logger
	dialTimeout time.Duration

	out       chan message
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// owned by run
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
	nextDial time.Time
}

func NewPublisher(url string, logger zerolog.Logger) *Publisher {
	return newPublisher(url, logger, defaultDialTimeout, defaultPublishBuffer)
}

func newPublisher(url string, logger zerolog.Logger, dialTimeout time.Duration, buffer int) *Publisher {
	p := &Publisher{
		url:         url,
		logger:      logger,
		dialTimeout: dialTimeout,
		out:         make(chan message, buffer),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		declared:    map[string]bool{},
	}
	go p.run()
	return p
}

// Publish marshals v and queues it for delivery to queue.  It never blocks;
// the returned error only reports messages that were not accepted.
func (p *Publisher) Publish(_ context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", queue, err)
	}
	select {
	case <-p.done:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.out <- message{queue: queue, body: body}:
		return nil
	default:
		metrics.BrokerMessages.WithLabelValues(queue, "out", "dropped").Inc()
		return fmt.Errorf("%s: %w", queue, ErrPublishBufferFull)
	}
}

// Close stops the delivery goroutine after a best-effort flush of what is
// already buffered, then releases the broker connection.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	<-p.stopped
	return nil
}

func (p *Publisher) run() {
	defer close(p.stopped)
	defer p.reset()
	for {
		select {
		case <-p.done:
			p.flush()
			return
		case m := <-p.out:
			p.deliver(m)
		}
	}
}

// flush sends whatever is still buffered, without dialing again if the
// broker is already known to be down.
func (p *Publisher) flush() {
	for {
		select {
		case m := <-p.out:
			p.deliver(m)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(m message) {
	if err := p.send(m); err != nil {
		metrics.BrokerMessages.WithLabelValues(m.queue, "out", "error").Inc()
		p.logger.Warn().Err(err).Str("queue", m.queue).Msg("publish failed")
		return
	}
	metrics.BrokerMessages.WithLabelValues(m.queue, "out", "ok").Inc()
}

func (p *Publisher) send(m message) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}
	if !p.declared[m.queue] {
		if _, err := ch.QueueDeclare(m.queue, true, false, false, false, nil); err != nil {
			p.reset()
			return fmt.Errorf("queue declare %s: %w", m.queue, err)
		}
		p.declared[m.queue] = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         m.body,
	}
	if err := ch.PublishWithContext(ctx, "", m.queue, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", m.queue, err)
	}
	return nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if time.Now().Before(p.nextDial) {
		return nil, errBrokerBackoff
	}
	conn, err := dial(p.url, p.dialTimeout)
	if err != nil {
		p.nextDial = time.Now().Add(redialAfter)
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.nextDial = time.Now().Add(redialAfter)
		return nil, fmt.Errorf("channel open: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
	p.declared = map[string]bool{}
}

// NopPublisher discards every message.  Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
