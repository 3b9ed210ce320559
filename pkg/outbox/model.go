package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// MaxRetries is how many failed dispatches an event gets before it is parked
// as failed.
const MaxRetries = 5

type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RetryCount    int
	LastError     *string
}

// NewEvent builds a pending event with a JSON payload.
func NewEvent(aggregateType, aggregateID, eventType string, body any, traceparent string) (Event, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Event{}, fmt.Errorf("outbox payload %s: %w", eventType, err)
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       payload,
		Traceparent:   traceparent,
		Status:        StatusPending,
	}, nil
}
