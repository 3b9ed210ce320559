package application

import (
	"context"

	catalog "github.com/dmehra2102/campus-cafe/internal/catalog/domain"
	"github.com/dmehra2102/campus-cafe/internal/order/domain"
	"github.com/dmehra2102/campus-cafe/pkg/outbox"
)

// OrderRepository persists order history. Every write carries the outbox
// event describing it and both commit together.
type OrderRepository interface {
	SaveWithOutbox(ctx context.Context, sessionID string, o domain.Order, event outbox.Event) error
	// ListBySession returns a session's orders newest first.
	ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error)
	// PreparingSessions lists the sessions that own at least one order still
	// being prepared.
	PreparingSessions(ctx context.Context) ([]string, error)
}

type Catalog interface {
	Locations(ctx context.Context) ([]catalog.Location, error)
	Location(ctx context.Context, id string) (catalog.Location, error)
	LocationByName(ctx context.Context, name string) (catalog.Location, error)
	Menu(ctx context.Context, locationID string) ([]catalog.MenuItem, error)
	Item(ctx context.Context, locationID, itemID string) (catalog.MenuItem, error)
}
