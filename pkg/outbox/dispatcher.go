package outbox

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// HeaderEventID carries the outbox id, which stays the same when an event is
// dispatched again.
const HeaderEventID = "event_id"

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Dispatcher publishes outbox events to a single topic, keyed by aggregate
// id so all events of one order land on the same partition.
type Dispatcher struct {
	log      *slog.Logger
	producer Producer
	topic    string
}

func NewDispatcher(log *slog.Logger, producer Producer, topic string) *Dispatcher {
	return &Dispatcher{log: log, producer: producer, topic: topic}
}

// Message is the kafka record published for e.
func (d *Dispatcher) Message(e Event) kafka.Message {
	headers := make([]kafka.Header, 0, len(e.Headers)+3)
	for k, v := range e.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	headers = append(headers, kafka.Header{Key: "event_type", Value: []byte(e.Type)})
	if e.ID != 0 {
		headers = append(headers, kafka.Header{Key: HeaderEventID, Value: []byte(strconv.FormatInt(e.ID, 10))})
	}
	if e.Traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(e.Traceparent)})
	}
	return kafka.Message{
		Topic:   d.topic,
		Key:     []byte(e.AggregateID),
		Value:   e.Payload,
		Headers: headers,
	}
}

// DispatchBatch writes events in one call. The result has one entry per
// event, nil when that event was accepted. A producer reporting
// kafka.WriteErrors fails only the affected events; any other error fails
// the whole batch.
func (d *Dispatcher) DispatchBatch(ctx context.Context, events []Event) []error {
	msgs := make([]kafka.Message, len(events))
	for i, e := range events {
		msgs[i] = d.Message(e)
	}

	errs := make([]error, len(events))
	err := d.producer.WriteMessages(ctx, msgs...)
	var partial kafka.WriteErrors
	switch {
	case err == nil:
	case errors.As(err, &partial) && len(partial) == len(events):
		copy(errs, partial)
	default:
		for i := range errs {
			errs[i] = err
		}
	}

	for i, e := range events {
		if errs[i] != nil {
			d.log.Error("outbox dispatch failed", "event_id", e.ID, "type", e.Type, "err", errs[i])
			continue
		}
		d.log.Debug("outbox dispatched", "event_id", e.ID, "type", e.Type)
	}
	return errs
}
