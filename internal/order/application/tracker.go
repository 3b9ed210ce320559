package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmehra2102/campus-cafe/internal/order/domain"
	"github.com/dmehra2102/campus-cafe/pkg/clock"
	"github.com/dmehra2102/campus-cafe/pkg/metrics"
)

// Tracker stands in for a kitchen signal: preparing orders become ready once
// readyAfter has passed on the clock.
type Tracker struct {
	log        *slog.Logger
	sessions   *SessionStore
	svc        *Service
	clock      clock.Clock
	interval   time.Duration
	readyAfter time.Duration
	metrics    *metrics.Registry

	sweeping sync.Mutex
}

func NewTracker(log *slog.Logger, svc *Service, interval, readyAfter time.Duration) *Tracker {
	return &Tracker{
		log:        log,
		sessions:   svc.sessions,
		svc:        svc,
		clock:      svc.clock,
		interval:   interval,
		readyAfter: readyAfter,
		metrics:    svc.metrics,
	}
}

// Sweep advances every due order across all sessions and returns how many
// changed. Orders are updated in place so session ordering is untouched.
// A status that cannot be persisted is left as it was for the next sweep.
func (t *Tracker) Sweep(ctx context.Context) int {
	t.sweeping.Lock()
	defer t.sweeping.Unlock()

	now := t.clock.Now()
	changed := 0
	for _, sess := range t.sessions.All() {
		changed += t.sweepSession(ctx, sess, now)
	}
	return changed
}

func (t *Tracker) sweepSession(ctx context.Context, sess *Session, now time.Time) int {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	changed := 0
	for i := range sess.orders {
		o := sess.orders[i]
		if !o.Advance(now, t.readyAfter) {
			continue
		}
		if err := t.svc.persistStatus(ctx, sess.ID, o, domain.EventOrderReady); err != nil {
			t.log.Error("order ready not saved", "order_id", o.ID, "err", err)
			continue
		}
		sess.orders[i] = o
		changed++
		t.metrics.StatusTransitions.WithLabelValues(string(o.Status)).Inc()
		t.log.Info("order ready", "session_id", sess.ID, "order_id", o.ID, "number", o.Number)
	}
	return changed
}

// Run restores sessions with preparing orders, then sweeps on every tick
// until ctx is done. A tick that arrives while a sweep is running is dropped
// by the ticker.
func (t *Tracker) Run(ctx context.Context) error {
	if n, err := t.svc.RestorePreparing(ctx); err != nil {
		t.log.Error("restore preparing sessions failed", "err", err)
	} else if n > 0 {
		t.log.Info("preparing sessions restored", "sessions", n)
	}

	tk := t.clock.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("tracker stopping")
			return nil
		case <-tk.C():
			t.Sweep(ctx)
		}
	}
}
