package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/campus-cafe/internal/notification/application"
	"github.com/dmehra2102/campus-cafe/internal/notification/infrastructure/memory"
	orderapp "github.com/dmehra2102/campus-cafe/internal/order/application"
	orderdom "github.com/dmehra2102/campus-cafe/internal/order/domain"
	prefapp "github.com/dmehra2102/campus-cafe/internal/preferences/application"
	prefmem "github.com/dmehra2102/campus-cafe/internal/preferences/infrastructure/memory"
	"github.com/dmehra2102/campus-cafe/pkg/clock"
	"github.com/dmehra2102/campus-cafe/pkg/outbox"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type seenKeys map[string]bool

func (s seenKeys) Key(scope, key string) string { return scope + "/" + key }
func (s seenKeys) Seen(_ context.Context, key string) (bool, error) {
	seen := s[key]
	s[key] = true
	return seen, nil
}

func readyMessage(t *testing.T, offset int64) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(orderdom.OrderStatusChanged{OrderID: "order-1", Number: "ABC123", Status: orderdom.StatusReady})
	require.NoError(t, err)
	return kafka.Message{
		Topic:  "order.events",
		Offset: offset,
		Key:    []byte("order-1"),
		Value:  raw,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(orderdom.EventOrderReady)},
			{Key: orderapp.HeaderSessionID, Value: []byte("s1")},
		},
	}
}

func TestConsumer_RunNotifiesOncePerOffset(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	inbox := memory.NewInbox()
	svc := application.NewService(log, prefapp.NewService(log, prefmem.NewStore()), inbox, clock.NewManual(time.Unix(0, 0)))

	reader := &fakeReader{msgs: []kafka.Message{readyMessage(t, 7), readyMessage(t, 7), readyMessage(t, 8)}}
	c := NewConsumer(log, reader, svc, seenKeys{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return reader.commits() == 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Len(t, inbox.For("s1"), 2, "the redelivered offset is skipped")
	assert.True(t, reader.closed)
}

func TestConsumer_RedispatchedEventNotifiesOnce(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	inbox := memory.NewInbox()
	svc := application.NewService(log, prefapp.NewService(log, prefmem.NewStore()), inbox, clock.NewManual(time.Unix(0, 0)))
	c := NewConsumer(log, &fakeReader{}, svc, seenKeys{})

	withEventID := func(offset int64, id string) kafka.Message {
		m := readyMessage(t, offset)
		m.Headers = append(m.Headers, kafka.Header{Key: outbox.HeaderEventID, Value: []byte(id)})
		return m
	}
	c.Handle(context.Background(), withEventID(7, "42"))
	c.Handle(context.Background(), withEventID(11, "42"))
	assert.Len(t, inbox.For("s1"), 1, "same event at a new offset")

	c.Handle(context.Background(), withEventID(12, "43"))
	assert.Len(t, inbox.For("s1"), 2)
}

func TestConsumer_HandleWithoutDeduper(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	inbox := memory.NewInbox()
	svc := application.NewService(log, prefapp.NewService(log, prefmem.NewStore()), inbox, clock.NewManual(time.Unix(0, 0)))
	c := NewConsumer(log, &fakeReader{}, svc, nil)

	c.Handle(context.Background(), readyMessage(t, 1))
	c.Handle(context.Background(), readyMessage(t, 1))
	assert.Len(t, inbox.For("s1"), 2)

	bad := readyMessage(t, 2)
	bad.Value = []byte("{")
	c.Handle(context.Background(), bad)
	assert.Len(t, inbox.For("s1"), 2)
}
