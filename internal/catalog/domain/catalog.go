package domain

import (
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindDrink Kind = "drink"
	KindFood  Kind = "food"
)

type Size string

const (
	SizeSmall  Size = "S"
	SizeMedium Size = "M"
	SizeLarge  Size = "L"
)

func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// SizePrices is the per-size price table of a tiered item.
type SizePrices struct {
	S decimal.Decimal `json:"S"`
	M decimal.Decimal `json:"M"`
	L decimal.Decimal `json:"L"`
}

func (p SizePrices) For(s Size) (decimal.Decimal, bool) {
	switch s {
	case SizeSmall:
		return p.S, true
	case SizeMedium:
		return p.M, true
	case SizeLarge:
		return p.L, true
	}
	return decimal.Zero, false
}

type MenuItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Allergens   []string        `json:"allergens,omitempty"`
	Kind        Kind            `json:"type,omitempty"`
	Sizes       *SizePrices     `json:"sizes,omitempty"`
}

func (m MenuItem) IsDrink() bool { return m.Kind == KindDrink }

// AllergensIn returns the item's allergens that appear in the given set.
func (m MenuItem) AllergensIn(set []string) []string {
	var out []string
	for _, a := range m.Allergens {
		for _, u := range set {
			if a == u {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

type Location struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Distance    float64 `json:"distance"`
	WaitMinutes int     `json:"waitTime"`
	Open        bool    `json:"isOpen"`
}
