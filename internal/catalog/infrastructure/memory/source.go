package memory

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/dmehra2102/campus-cafe/internal/catalog/domain"
)

//go:embed catalog.json
var seed []byte

type document struct {
	Locations []domain.Location            `json:"locations"`
	Shared    map[string]string            `json:"shared"`
	Menus     map[string][]domain.MenuItem `json:"menus"`
}

// Source serves a fixed catalog. It is never mutated after construction.
type Source struct {
	locations []domain.Location
	menus     map[string][]domain.MenuItem
}

// Load parses the embedded campus catalog.
func Load() (*Source, error) {
	return Parse(seed)
}

func Parse(raw []byte) (*Source, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	menus := make(map[string][]domain.MenuItem, len(doc.Menus)+len(doc.Shared))
	for id, items := range doc.Menus {
		menus[id] = items
	}
	for alias, target := range doc.Shared {
		items, ok := doc.Menus[target]
		if !ok {
			return nil, fmt.Errorf("catalog: %s shares unknown menu %s", alias, target)
		}
		menus[alias] = items
	}
	return New(doc.Locations, menus), nil
}

func New(locations []domain.Location, menus map[string][]domain.MenuItem) *Source {
	return &Source{locations: locations, menus: menus}
}

func (s *Source) Locations(ctx context.Context) ([]domain.Location, error) {
	out := make([]domain.Location, len(s.locations))
	copy(out, s.locations)
	return out, nil
}

func (s *Source) Menu(ctx context.Context, locationID string) ([]domain.MenuItem, error) {
	items := s.menus[locationID]
	out := make([]domain.MenuItem, len(items))
	copy(out, items)
	return out, nil
}
