package domain

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	catalog "github.com/dmehra2102/campus-cafe/internal/catalog/domain"
)

const (
	DefaultSize   = catalog.SizeMedium
	DefaultMilk   = "whole"
	MaxNoteLength = 200
)

// Option is one selectable choice in a customization group.
type Option struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Allergens []string        `json:"allergens,omitempty"`
	Seasonal  bool            `json:"seasonal,omitempty"`
}

var (
	SizeOptions = []Option{
		{ID: string(catalog.SizeSmall), Name: "Small (12oz)", Price: decimal.Zero},
		{ID: string(catalog.SizeMedium), Name: "Medium (16oz)", Price: decimal.RequireFromString("0.50")},
		{ID: string(catalog.SizeLarge), Name: "Large (20oz)", Price: decimal.RequireFromString("1.00")},
	}
	MilkOptions = []Option{
		{ID: "whole", Name: "Whole Milk", Price: decimal.Zero, Allergens: []string{"dairy"}},
		{ID: "skim", Name: "Skim Milk", Price: decimal.Zero, Allergens: []string{"dairy"}},
		{ID: "oat", Name: "Oat Milk", Price: decimal.RequireFromString("0.75")},
		{ID: "almond", Name: "Almond Milk", Price: decimal.RequireFromString("0.75"), Allergens: []string{"nuts"}},
		{ID: "soy", Name: "Soy Milk", Price: decimal.RequireFromString("0.75"), Allergens: []string{"soy"}},
		{ID: "coconut", Name: "Coconut Milk", Price: decimal.RequireFromString("0.75")},
	}
	SyrupOptions = []Option{
		{ID: "vanilla", Name: "Vanilla", Price: decimal.RequireFromString("0.50")},
		{ID: "caramel", Name: "Caramel", Price: decimal.RequireFromString("0.50")},
		{ID: "hazelnut", Name: "Hazelnut", Price: decimal.RequireFromString("0.50")},
		{ID: "pumpkin", Name: "Pumpkin Spice", Price: decimal.RequireFromString("0.75"), Seasonal: true},
		{ID: "peppermint", Name: "Peppermint", Price: decimal.RequireFromString("0.75"), Seasonal: true},
	}
)

func findOption(opts []Option, id string) (Option, int, bool) {
	for i, o := range opts {
		if o.ID == id {
			return o, i, true
		}
	}
	return Option{}, -1, false
}

// Choices are the raw selections made on the customize screen.
type Choices struct {
	Size   catalog.Size `json:"size"`
	Milk   string       `json:"milk"`
	Syrups []string     `json:"syrups"`
	Note   string       `json:"note"`
}

// Customization is a validated set of choices with the unit price frozen at
// build time. Syrups are unique and kept in option-table order.
type Customization struct {
	Size   catalog.Size    `json:"size"`
	Milk   string          `json:"milk"`
	Syrups []string        `json:"syrups,omitempty"`
	Note   string          `json:"note,omitempty"`
	Price  decimal.Decimal `json:"totalPrice"`
}

// Customize validates choices against the option tables and prices them on top
// of the item's flat price.
func Customize(item catalog.MenuItem, c Choices) (*Customization, error) {
	if !item.IsDrink() {
		return nil, fmt.Errorf("%w: %s", ErrNotCustomizable, item.Name)
	}
	if c.Size == "" {
		c.Size = DefaultSize
	}
	if c.Milk == "" {
		c.Milk = DefaultMilk
	}
	if utf8.RuneCountInString(c.Note) > MaxNoteLength {
		return nil, fmt.Errorf("%w: max %d characters", ErrNoteTooLong, MaxNoteLength)
	}

	price := item.Price

	size, _, ok := findOption(SizeOptions, string(c.Size))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSize, c.Size)
	}
	price = price.Add(size.Price)

	milk, _, ok := findOption(MilkOptions, c.Milk)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMilk, c.Milk)
	}
	price = price.Add(milk.Price)

	picked := make([]bool, len(SyrupOptions))
	for _, id := range c.Syrups {
		_, idx, ok := findOption(SyrupOptions, id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSyrup, id)
		}
		picked[idx] = true
	}
	var syrups []string
	for i, on := range picked {
		if on {
			syrups = append(syrups, SyrupOptions[i].ID)
			price = price.Add(SyrupOptions[i].Price)
		}
	}

	return &Customization{
		Size:   c.Size,
		Milk:   c.Milk,
		Syrups: syrups,
		Note:   c.Note,
		Price:  price,
	}, nil
}

// SameCustomization reports structural equality of size, milk, syrup set and
// note. The price snapshot is not part of the comparison.
func SameCustomization(a, b *Customization) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Size == b.Size &&
		a.Milk == b.Milk &&
		a.Note == b.Note &&
		slices.Equal(a.Syrups, b.Syrups)
}

// MilkAllergens returns the allergens of the chosen milk that the user has
// declared. Advisory only.
func MilkAllergens(milk string, userAllergens []string) []string {
	opt, _, ok := findOption(MilkOptions, milk)
	if !ok {
		return nil
	}
	var hits []string
	for _, a := range opt.Allergens {
		if slices.Contains(userAllergens, a) {
			hits = append(hits, a)
		}
	}
	return hits
}
