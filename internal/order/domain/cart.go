package domain

import (
	"github.com/shopspring/decimal"

	catalog "github.com/dmehra2102/campus-cafe/internal/catalog/domain"
)

type CartLine struct {
	Item          catalog.MenuItem `json:"item"`
	Quantity      int              `json:"quantity"`
	Size          catalog.Size     `json:"size,omitempty"`
	Customization *Customization   `json:"customization,omitempty"`
}

func (l CartLine) UnitPrice() decimal.Decimal {
	return UnitPrice(l.Item, l.Size, l.Customization)
}

func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l CartLine) matches(itemID string, size catalog.Size, c *Customization) bool {
	return l.Item.ID == itemID && l.Size == size && SameCustomization(l.Customization, c)
}

// lineSize gives a customized line the customization's size, so the line is
// described at the size it is priced at and every mutator sees the same
// identity key.
func lineSize(size catalog.Size, c *Customization) catalog.Size {
	if c != nil && c.Size != "" {
		return c.Size
	}
	return size
}

// Cart holds the in-progress lines for exactly one location. Lines never sit
// at quantity zero.
type Cart struct {
	locationID string
	lines      []CartLine
}

func NewCart(locationID string) *Cart {
	return &Cart{locationID: locationID}
}

func (c *Cart) LocationID() string { return c.locationID }

func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// AddLine adds one unit and returns the line's new quantity.
func (c *Cart) AddLine(item catalog.MenuItem, size catalog.Size, cust *Customization) int {
	return c.AddQuantity(item, size, cust, 1)
}

// AddQuantity merges n units into the matching line or appends a new one.
func (c *Cart) AddQuantity(item catalog.MenuItem, size catalog.Size, cust *Customization, n int) int {
	if n < 1 {
		return 0
	}
	size = lineSize(size, cust)
	if i := c.find(item.ID, size, cust); i >= 0 {
		c.lines[i].Quantity += n
		return c.lines[i].Quantity
	}
	c.lines = append(c.lines, CartLine{Item: item, Quantity: n, Size: size, Customization: cust})
	return n
}

// RemoveLine takes one unit off the matching line, dropping it at zero.
// It reports false when nothing matched.
func (c *Cart) RemoveLine(itemID string, size catalog.Size, cust *Customization) bool {
	i := c.find(itemID, lineSize(size, cust), cust)
	if i < 0 {
		return false
	}
	if c.lines[i].Quantity > 1 {
		c.lines[i].Quantity--
		return true
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

// ClearLine drops the matching line whatever its quantity.
func (c *Cart) ClearLine(itemID string, size catalog.Size, cust *Customization) bool {
	i := c.find(itemID, lineSize(size, cust), cust)
	if i < 0 {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

func (c *Cart) Clear() { c.lines = nil }

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// LineCount is the total number of units, for the cart badge.
func (c *Cart) LineCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) find(itemID string, size catalog.Size, cust *Customization) int {
	for i, l := range c.lines {
		if l.matches(itemID, size, cust) {
			return i
		}
	}
	return -1
}
