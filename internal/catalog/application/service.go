package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/campus-cafe/internal/catalog/domain"
)

var (
	ErrLocationNotFound = errors.New("location not found")
	ErrItemNotFound     = errors.New("menu item not found")
)

type Service struct {
	src Source
}

func NewService(src Source) *Service {
	return &Service{src: src}
}

func (s *Service) Locations(ctx context.Context) ([]domain.Location, error) {
	return s.src.Locations(ctx)
}

func (s *Service) Menu(ctx context.Context, locationID string) ([]domain.MenuItem, error) {
	return s.src.Menu(ctx, locationID)
}

func (s *Service) Location(ctx context.Context, id string) (domain.Location, error) {
	return s.findLocation(ctx, func(l domain.Location) bool { return l.ID == id }, id)
}

// LocationByName matches on the display name. Two locations sharing a name
// resolve to whichever the source lists first.
func (s *Service) LocationByName(ctx context.Context, name string) (domain.Location, error) {
	return s.findLocation(ctx, func(l domain.Location) bool { return l.Name == name }, name)
}

func (s *Service) Item(ctx context.Context, locationID, itemID string) (domain.MenuItem, error) {
	menu, err := s.src.Menu(ctx, locationID)
	if err != nil {
		return domain.MenuItem{}, err
	}
	for _, item := range menu {
		if item.ID == itemID {
			return item, nil
		}
	}
	return domain.MenuItem{}, fmt.Errorf("%w: %s at %s", ErrItemNotFound, itemID, locationID)
}

func (s *Service) findLocation(ctx context.Context, match func(domain.Location) bool, key string) (domain.Location, error) {
	locs, err := s.src.Locations(ctx)
	if err != nil {
		return domain.Location{}, err
	}
	for _, l := range locs {
		if match(l) {
			return l, nil
		}
	}
	return domain.Location{}, fmt.Errorf("%w: %s", ErrLocationNotFound, key)
}
