package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmehra2102/campus-cafe/pkg/clock"
)

type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
	// MarkFailed records a failed attempt. Stores return the event to pending
	// until it has failed MaxRetries times.
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}

// Observer is told the outcome of every dispatch attempt.
type Observer func(ok bool)

type Relay struct {
	log       *slog.Logger
	store     Store
	dispatch  *Dispatcher
	relayID   string
	batchSize int
	interval  time.Duration
	lease     time.Duration
	clock     clock.Clock
	observe   Observer
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option { return func(r *Relay) { r.interval = d } }
func WithClock(c clock.Clock) Option      { return func(r *Relay) { r.clock = c } }
func WithObserver(o Observer) Option      { return func(r *Relay) { r.observe = o } }

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, relayID string, opts ...Option) *Relay {
	r := &Relay{
		log:       log,
		store:     store,
		dispatch:  dispatch,
		relayID:   relayID,
		batchSize: 100,
		interval:  500 * time.Millisecond,
		lease:     5 * time.Second,
		clock:     clock.Real{},
		observe:   func(bool) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) Run(ctx context.Context) error {
	t := r.clock.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C():
			if _, err := r.Flush(ctx); err != nil {
				r.log.Error("relay flush error", "relay_id", r.relayID, "err", err)
			}
		}
	}
}

// Flush dispatches one locked batch and returns how many events were sent.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	events, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(events))
	for i, err := range r.dispatch.DispatchBatch(ctx, events) {
		if err != nil {
			r.observe(false)
			if mErr := r.store.MarkFailed(ctx, events[i].ID, err.Error()); mErr != nil {
				r.log.Error("relay mark failed error", "event_id", events[i].ID, "err", mErr)
			}
			continue
		}
		r.observe(true)
		ids = append(ids, events[i].ID)
	}
	if len(ids) > 0 {
		if err := r.store.MarkSent(ctx, ids); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}
