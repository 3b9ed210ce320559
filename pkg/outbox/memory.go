package outbox

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a Store for single-process runs and tests. Leases are not
// enforced; a locked event stays in progress until marked.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append assigns an id and queues the event as pending.
func (s *MemoryStore) Append(e Event) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	e.Status = StatusPending
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, e)
	return e.ID
}

func (s *MemoryStore) LockBatch(_ context.Context, _ string, batchSize int, _ time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for i := range s.events {
		if len(out) == batchSize {
			break
		}
		if s.events[i].Status != StatusPending {
			continue
		}
		s.events[i].Status = StatusInProgress
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *MemoryStore) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if e := s.find(id); e != nil {
			e.Status = StatusSent
		}
	}
	return nil
}

func (s *MemoryStore) MarkFailed(_ context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.find(id)
	if e == nil {
		return nil
	}
	e.RetryCount++
	e.LastError = &errMsg
	if e.RetryCount >= MaxRetries {
		e.Status = StatusFailed
	} else {
		e.Status = StatusPending
	}
	return nil
}

// Events returns a copy of every event in insertion order.
func (s *MemoryStore) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *MemoryStore) find(id int64) *Event {
	for i := range s.events {
		if s.events[i].ID == id {
			return &s.events[i]
		}
	}
	return nil
}
