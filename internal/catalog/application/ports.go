package application

import (
	"context"

	"github.com/dmehra2102/campus-cafe/internal/catalog/domain"
)

// Source is a read-only provider of locations and their menus. An unknown
// location id yields an empty menu, not an error.
type Source interface {
	Locations(ctx context.Context) ([]domain.Location, error)
	Menu(ctx context.Context, locationID string) ([]domain.MenuItem, error)
}
