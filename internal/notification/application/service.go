package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/campus-cafe/internal/notification/domain"
	orderdom "github.com/dmehra2102/campus-cafe/internal/order/domain"
	prefdomain "github.com/dmehra2102/campus-cafe/internal/preferences/domain"
	"github.com/dmehra2102/campus-cafe/pkg/clock"
)

type Preferences interface {
	Load(ctx context.Context, userID string) (prefdomain.Preferences, error)
}

type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

type Service struct {
	log    *slog.Logger
	prefs  Preferences
	sender Sender
	clock  clock.Clock
}

func NewService(log *slog.Logger, prefs Preferences, sender Sender, clk clock.Clock) *Service {
	return &Service{log: log, prefs: prefs, sender: sender, clock: clk}
}

// Handle reacts to one order event and reports whether a notification went
// out. Customers who turned notifications off are skipped.
func (s *Service) Handle(ctx context.Context, eventType, sessionID string, payload []byte) (bool, error) {
	if eventType != orderdom.EventOrderReady || sessionID == "" {
		return false, nil
	}
	var ev orderdom.OrderStatusChanged
	if err := json.Unmarshal(payload, &ev); err != nil {
		return false, fmt.Errorf("decode %s: %w", eventType, err)
	}

	p, err := s.prefs.Load(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !p.NotificationsEnabled {
		s.log.Debug("notification suppressed", "session_id", sessionID, "order_id", ev.OrderID)
		return false, nil
	}

	n, ok := domain.ForEvent(eventType, sessionID, ev, s.clock.Now())
	if !ok {
		return false, nil
	}
	if err := s.sender.Send(ctx, n); err != nil {
		return false, err
	}
	s.log.Info("notification sent", "session_id", sessionID, "order_id", ev.OrderID)
	return true, nil
}
