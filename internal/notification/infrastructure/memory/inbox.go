package memory

import (
	"context"
	"sync"

	"github.com/dmehra2102/campus-cafe/internal/notification/domain"
)

const inboxSize = 20

// Inbox keeps the latest notifications per session, newest first.
type Inbox struct {
	mu    sync.RWMutex
	items map[string][]domain.Notification
}

func NewInbox() *Inbox {
	return &Inbox{items: make(map[string][]domain.Notification)}
}

func (in *Inbox) Send(_ context.Context, n domain.Notification) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	list := append([]domain.Notification{n}, in.items[n.SessionID]...)
	if len(list) > inboxSize {
		list = list[:inboxSize]
	}
	in.items[n.SessionID] = list
	return nil
}

func (in *Inbox) For(sessionID string) []domain.Notification {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]domain.Notification, len(in.items[sessionID]))
	copy(out, in.items[sessionID])
	return out
}
