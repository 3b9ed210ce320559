package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dmehra2102/campus-cafe/pkg/tracing"
)

// Writer publishes outbox events. Messages name their own topic, so the
// underlying writer has none.
type Writer struct {
	*kafka.Writer
}

func NewWriter(brokers []string) *Writer {
	return &Writer{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

// WriteMessages adds the caller's trace context to messages that do not
// already carry one.
func (w *Writer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	for i := range msgs {
		msgs[i].Headers = tracing.InjectKafkaHeaders(ctx, msgs[i].Headers)
	}
	return w.Writer.WriteMessages(ctx, msgs...)
}
