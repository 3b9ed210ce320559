package domain

import (
	"github.com/shopspring/decimal"

	catalog "github.com/dmehra2102/campus-cafe/internal/catalog/domain"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	flatLatte = catalog.MenuItem{
		ID: "latte", Name: "Latte", Price: money("4.50"), Category: "Coffee", Kind: catalog.KindDrink,
	}
	sizedLatte = catalog.MenuItem{
		ID: "latte_1", Name: "Latte", Price: money("4.50"), Category: "Coffee", Kind: catalog.KindDrink,
		Allergens: []string{"dairy"},
		Sizes:     &catalog.SizePrices{S: money("4.00"), M: money("4.50"), L: money("5.00")},
	}
	cappuccino = catalog.MenuItem{
		ID: "cappuccino", Name: "Cappuccino", Price: money("4.50"), Category: "Coffee", Kind: catalog.KindDrink,
		Sizes: &catalog.SizePrices{S: money("4.00"), M: money("4.50"), L: money("5.00")},
	}
	croissant = catalog.MenuItem{
		ID: "croissant", Name: "Croissant", Price: money("3.50"), Category: "Pastries", Kind: catalog.KindFood,
		Allergens: []string{"dairy", "gluten"},
	}
	goat = catalog.Location{
		ID: "laughinggoat", Name: "The Laughing Goat", Address: "Norlin Commons", WaitMinutes: 4, Open: true,
	}
)
