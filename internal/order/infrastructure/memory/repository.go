package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmehra2102/campus-cafe/internal/order/application"
	"github.com/dmehra2102/campus-cafe/internal/order/domain"
	"github.com/dmehra2102/campus-cafe/pkg/outbox"
)

type stored struct {
	sessionID string
	order     domain.Order
}

// Repository keeps order history in process. Its outbox is an
// outbox.MemoryStore the relay can drain.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]*stored
	seq    []string
	outbox *outbox.MemoryStore
	fail   error
}

func NewRepository(box *outbox.MemoryStore) *Repository {
	return &Repository{orders: make(map[string]*stored), outbox: box}
}

func (r *Repository) Outbox() *outbox.MemoryStore { return r.outbox }

// FailWith makes every later save return err. Pass nil to recover.
func (r *Repository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

func (r *Repository) SaveWithOutbox(_ context.Context, sessionID string, o domain.Order, event outbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	if cur, ok := r.orders[o.ID]; ok {
		cur.order = o
	} else {
		r.orders[o.ID] = &stored{sessionID: sessionID, order: o}
		r.seq = append(r.seq, o.ID)
	}
	r.outbox.Append(event)
	return nil
}

func (r *Repository) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", application.ErrOrderNotFound, id)
	}
	return s.order, nil
}

func (r *Repository) PreparingSessions(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, id := range r.seq {
		s := r.orders[id]
		if s.order.Status == domain.StatusPreparing && !seen[s.sessionID] {
			seen[s.sessionID] = true
			out = append(out, s.sessionID)
		}
	}
	return out, nil
}

func (r *Repository) ListBySession(_ context.Context, sessionID string) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Order
	for i := len(r.seq) - 1; i >= 0; i-- {
		if s := r.orders[r.seq[i]]; s.sessionID == sessionID {
			out = append(out, s.order)
		}
	}
	return out, nil
}
