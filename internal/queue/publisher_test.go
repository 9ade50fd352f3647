package queue

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentBroker accepts TCP connections and never answers the AMQP handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublishDoesNotWaitForUnresponsiveBroker(t *testing.T) {
	p := newPublisher(silentBroker(t), zerolog.Nop(), 300*time.Millisecond, 1)

	var full int
	for i := 0; i < 3; i++ {
		start := time.Now()
		err := p.Publish(context.Background(), ReservationActivityQueue, ReservationActivity{Action: ActionReserved})
		assert.Less(t, time.Since(start), 100*time.Millisecond)
		if err != nil {
			require.ErrorIs(t, err, ErrPublishBufferFull)
			full++
		}
	}
	assert.GreaterOrEqual(t, full, 1)

	closed := make(chan struct{})
	go func() {
		_ = p.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on the broker")
	}

	err := p.Publish(context.Background(), ReservationActivityQueue, ReservationActivity{})
	assert.True(t, errors.Is(err, ErrPublisherClosed))
}

func TestPublishRejectsUnmarshalableValue(t *testing.T) {
	p := newPublisher("amqp://127.0.0.1:1/", zerolog.Nop(), 50*time.Millisecond, 1)
	defer p.Close()

	err := p.Publish(context.Background(), EventRemovedQueue, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal event.removed message")
}

func TestCloseIsIdempotent(t *testing.T) {
	p := newPublisher("amqp://127.0.0.1:1/", zerolog.Nop(), 50*time.Millisecond, 4)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}
