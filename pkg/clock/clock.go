package clock

import (
	"sync"
	"time"
)

// Clock is the time source for anything that schedules work.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Manual only moves when Advance is called. Tickers fire once per elapsed
// period, dropping ticks the receiver has not drained.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTicker{m: m, every: d, next: m.now.Add(d), c: make(chan time.Time, 1)}
	m.tickers = append(m.tickers, t)
	return t
}

// Advance moves the clock forward and fires every ticker that came due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now
	due := make([]*manualTicker, 0, len(m.tickers))
	for _, t := range m.tickers {
		if !t.next.After(now) {
			due = append(due, t)
			for !t.next.After(now) {
				t.next = t.next.Add(t.every)
			}
		}
	}
	m.mu.Unlock()

	for _, t := range due {
		select {
		case t.c <- now:
		default:
		}
	}
}

// Tickers reports how many tickers are still running.
func (m *Manual) Tickers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}

type manualTicker struct {
	m     *Manual
	every time.Duration
	next  time.Time
	c     chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for i, other := range t.m.tickers {
		if other == t {
			t.m.tickers = append(t.m.tickers[:i], t.m.tickers[i+1:]...)
			return
		}
	}
}
