package domain

import (
	"fmt"
	"time"

	orderdom "github.com/dmehra2102/campus-cafe/internal/order/domain"
)

type Notification struct {
	SessionID string    `json:"sessionId"`
	OrderID   string    `json:"orderId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// ForEvent builds the customer-facing notification for an order event. Only
// a ready order notifies.
func ForEvent(eventType, sessionID string, ev orderdom.OrderStatusChanged, at time.Time) (Notification, bool) {
	if eventType != orderdom.EventOrderReady {
		return Notification{}, false
	}
	return Notification{
		SessionID: sessionID,
		OrderID:   ev.OrderID,
		Message:   fmt.Sprintf("Order #%s is ready for pickup", ev.Number),
		CreatedAt: at.UTC(),
	}, true
}
