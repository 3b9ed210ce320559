package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalog "github.com/dmehra2102/campus-cafe/internal/catalog/domain"
)

type OrderStatus string

const (
	// StatusConfirmed is shown between placement and the order reaching
	// history. It is never stored on an Order.
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
)

const dateLayout = "Jan 2, 2006"

// OrderLine is the structured form of a placed line. Items carries the same
// lines as text; reorder reads the text.
type OrderLine struct {
	ItemID        string          `json:"itemId"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	Size          catalog.Size    `json:"size,omitempty"`
	Customization *Customization  `json:"customization,omitempty"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
}

type Order struct {
	ID              string          `json:"id"`
	Number          string          `json:"orderNumber"`
	LocationID      string          `json:"cafeId,omitempty"`
	LocationName    string          `json:"cafeName"`
	LocationAddress string          `json:"cafeAddress"`
	Items           []string        `json:"items"`
	Lines           []OrderLine     `json:"lines,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	Pickup          PickupChoice    `json:"pickup"`
	PickupTime      string          `json:"pickupTime"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Date            string          `json:"date"`
	Rating          int             `json:"rating,omitempty"`
}

// PlaceOrder freezes the cart into a preparing order. The cart is left as is;
// the caller resets it.
func PlaceOrder(cart *Cart, loc catalog.Location, pickup PickupChoice, now time.Time) (Order, error) {
	if cart.IsEmpty() {
		return Order{}, ErrEmptyCart
	}
	if cart.LocationID() != loc.ID {
		return Order{}, fmt.Errorf("%w: cart %s, location %s", ErrLocationMismatch, cart.LocationID(), loc.ID)
	}
	if err := pickup.Validate(); err != nil {
		return Order{}, err
	}

	lines := cart.Lines()
	items := make([]string, 0, len(lines))
	structured := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		items = append(items, Describe(l))
		structured = append(structured, OrderLine{
			ItemID:        l.Item.ID,
			Name:          l.Item.Name,
			Quantity:      l.Quantity,
			Size:          l.Size,
			Customization: l.Customization,
			UnitPrice:     l.UnitPrice(),
		})
	}

	subtotal := cart.Subtotal()
	tax, total := WithTax(subtotal)
	now = now.UTC()
	return Order{
		ID:              "order-" + uuid.NewString(),
		Number:          NewOrderNumber(),
		LocationID:      loc.ID,
		LocationName:    loc.Name,
		LocationAddress: loc.Address,
		Items:           items,
		Lines:           structured,
		Subtotal:        subtotal.Round(2),
		Tax:             tax,
		Total:           total,
		Status:          StatusPreparing,
		Pickup:          pickup,
		PickupTime:      pickup.Label(),
		CreatedAt:       now,
		UpdatedAt:       now,
		Date:            now.Format(dateLayout),
	}, nil
}

// NewOrderNumber returns a six character code for the pickup counter. Codes
// are not guaranteed unique.
func NewOrderNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:6])
}

func (o *Order) IsActive() bool {
	return o.Status == StatusPreparing || o.Status == StatusReady
}

// Advance moves a preparing order to ready once readyAfter has elapsed since
// it was created. It reports whether the status changed.
func (o *Order) Advance(now time.Time, readyAfter time.Duration) bool {
	if o.Status != StatusPreparing {
		return false
	}
	if now.Sub(o.CreatedAt) < readyAfter {
		return false
	}
	o.Status = StatusReady
	o.UpdatedAt = now.UTC()
	return true
}

// ConfirmPickup completes a ready order with a 1-5 rating. Completed orders
// are terminal; confirming again is rejected and changes nothing.
func (o *Order) ConfirmPickup(rating int, now time.Time) error {
	if o.Status != StatusReady {
		return fmt.Errorf("%w: order %s is %s", ErrOrderNotReady, o.Number, o.Status)
	}
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	o.Status = StatusCompleted
	o.Rating = rating
	o.UpdatedAt = now.UTC()
	return nil
}

type ReceiptLine struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type Receipt struct {
	OrderNumber string          `json:"orderNumber"`
	Lines       []ReceiptLine   `json:"lines"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// Receipt itemises an order. Orders without structured lines split the
// subtotal evenly across their text lines.
func (o *Order) Receipt() Receipt {
	r := Receipt{OrderNumber: o.Number, Subtotal: o.Subtotal, Tax: o.Tax, Total: o.Total}
	if len(o.Lines) == len(o.Items) {
		for i, l := range o.Lines {
			amount := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
			r.Lines = append(r.Lines, ReceiptLine{Description: o.Items[i], Amount: amount})
		}
		return r
	}
	if len(o.Items) == 0 {
		return r
	}
	share := o.Subtotal.Div(decimal.NewFromInt(int64(len(o.Items)))).Round(2)
	for _, item := range o.Items {
		r.Lines = append(r.Lines, ReceiptLine{Description: item, Amount: share})
	}
	return r
}
