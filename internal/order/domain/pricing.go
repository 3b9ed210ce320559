package domain

import (
	"github.com/shopspring/decimal"

	catalog "github.com/dmehra2102/campus-cafe/internal/catalog/domain"
)

var TaxRate = decimal.RequireFromString("0.08")

// UnitPrice resolves the price of one unit: the customization snapshot wins,
// then the size table entry, then the flat price. A size on an item without a
// size table falls back to the flat price.
func UnitPrice(item catalog.MenuItem, size catalog.Size, c *Customization) decimal.Decimal {
	if c != nil {
		return c.Price
	}
	if size != "" && item.Sizes != nil {
		if p, ok := item.Sizes.For(size); ok {
			return p
		}
	}
	return item.Price
}

// WithTax returns subtotal plus tax, rounded half away from zero to cents.
func WithTax(subtotal decimal.Decimal) (tax, total decimal.Decimal) {
	total = subtotal.Mul(decimal.NewFromInt(1).Add(TaxRate)).Round(2)
	return total.Sub(subtotal.Round(2)), total
}
