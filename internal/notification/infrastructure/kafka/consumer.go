package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/campus-cafe/internal/notification/application"
	orderapp "github.com/dmehra2102/campus-cafe/internal/order/application"
	"github.com/dmehra2102/campus-cafe/pkg/outbox"
	"github.com/dmehra2102/campus-cafe/pkg/tracing"
)

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Deduper claims a message key once.
type Deduper interface {
	Key(scope, key string) string
	Seen(ctx context.Context, key string) (bool, error)
}

type Consumer struct {
	log    *slog.Logger
	reader Reader
	svc    *application.Service
	idem   Deduper
	tracer trace.Tracer
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

// NewConsumer builds a consumer. idem may be nil, in which case redelivered
// messages notify again.
func NewConsumer(log *slog.Logger, reader Reader, svc *application.Service, idem Deduper) *Consumer {
	return &Consumer{
		log:    log,
		reader: reader,
		svc:    svc,
		idem:   idem,
		tracer: otel.Tracer("notification-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.Handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

// Handle processes one message. Failures are logged; the message is still
// committed by Run.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) {
	if c.idem != nil {
		key := c.idem.Key(msg.Topic, dedupeRef(msg))
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
		} else if seen {
			c.log.Info("duplicate message skipped", "key", key)
			return
		}
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderEvent")
	defer span.End()

	eventType := tracing.HeaderValue(msg.Headers, "event_type")
	sessionID := tracing.HeaderValue(msg.Headers, orderapp.HeaderSessionID)
	if _, err := c.svc.Handle(msgCtx, eventType, sessionID, msg.Value); err != nil {
		span.RecordError(err)
		c.log.Error("order event not handled", "type", eventType, "order_id", string(msg.Key), "err", err)
	}
}

// dedupeRef names a message by its outbox event id, so a re-dispatched event
// is recognised at its new offset. Messages without one fall back to their
// position in the log.
func dedupeRef(msg kafka.Message) string {
	if id := tracing.HeaderValue(msg.Headers, outbox.HeaderEventID); id != "" {
		return "event:" + id
	}
	return fmt.Sprintf("%d:%d", msg.Partition, msg.Offset)
}
