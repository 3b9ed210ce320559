package domain

const (
	EventOrderPlaced    = "OrderPlaced"
	EventOrderReady     = "OrderReady"
	EventOrderCompleted = "OrderCompleted"
)

type OrderPlaced struct {
	OrderID    string
	Number     string
	LocationID string
	Items      []string
	TotalCents int64
	PickupTime string
}

type OrderStatusChanged struct {
	OrderID string
	Number  string
	Status  OrderStatus
	Rating  int `json:",omitempty"`
}

func NewOrderPlaced(o Order) OrderPlaced {
	return OrderPlaced{
		OrderID:    o.ID,
		Number:     o.Number,
		LocationID: o.LocationID,
		Items:      o.Items,
		TotalCents: o.Total.Shift(2).IntPart(),
		PickupTime: o.PickupTime,
	}
}

func NewOrderStatusChanged(o Order) OrderStatusChanged {
	return OrderStatusChanged{OrderID: o.ID, Number: o.Number, Status: o.Status, Rating: o.Rating}
}
