package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmehra2102/campus-cafe/internal/preferences/domain"
)

// ErrNotFound is returned by stores for a user with nothing saved.
var ErrNotFound = errors.New("preferences not found")

// Store persists one preference blob per user.
type Store interface {
	Get(ctx context.Context, userID string) ([]byte, error)
	Put(ctx context.Context, userID string, blob []byte) error
}

type Service struct {
	log   *slog.Logger
	store Store
}

func NewService(log *slog.Logger, store Store) *Service {
	return &Service{log: log, store: store}
}

// Load returns the user's preferences, or the defaults when none are saved.
func (s *Service) Load(ctx context.Context, userID string) (domain.Preferences, error) {
	raw, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return domain.Defaults(), nil
	}
	if err != nil {
		return domain.Preferences{}, err
	}
	return domain.Decode(raw)
}

func (s *Service) Save(ctx context.Context, userID string, p domain.Preferences) (domain.Preferences, error) {
	p, err := p.Normalize()
	if err != nil {
		return domain.Preferences{}, err
	}
	raw, err := p.Encode()
	if err != nil {
		return domain.Preferences{}, err
	}
	if err := s.store.Put(ctx, userID, raw); err != nil {
		return domain.Preferences{}, err
	}
	s.log.Info("preferences saved", "user_id", userID, "allergens", len(p.Allergens))
	return p, nil
}

// Allergens is the user's declared allergen set. Lookup failures yield an
// empty set; the set only drives advisory warnings.
func (s *Service) Allergens(ctx context.Context, userID string) []string {
	p, err := s.Load(ctx, userID)
	if err != nil {
		s.log.Warn("preferences unavailable", "user_id", userID, "err", err)
		return nil
	}
	return p.Allergens
}
