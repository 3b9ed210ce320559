package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// StorageKey is the slot the preference blob lives under.
const StorageKey = "userPreferences"

var ErrUnknownAllergen = errors.New("unknown allergen")

// Allergens are the ones a user can declare, in display order.
var Allergens = []string{"dairy", "gluten", "eggs", "nuts", "soy", "shellfish", "fish", "sesame"}

type Preferences struct {
	NotificationsEnabled bool     `json:"notificationsEnabled"`
	OrderReminders       bool     `json:"orderReminders"`
	PromotionalEmails    bool     `json:"promotionalEmails"`
	Allergens            []string `json:"allergens"`
}

func Defaults() Preferences {
	return Preferences{
		NotificationsEnabled: true,
		OrderReminders:       true,
		PromotionalEmails:    false,
		Allergens:            []string{},
	}
}

// Decode reads a stored blob. Fields missing from it keep their defaults.
func Decode(raw []byte) (Preferences, error) {
	p := Defaults()
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	if p.Allergens == nil {
		p.Allergens = []string{}
	}
	return p, nil
}

func (p Preferences) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// Normalize lowercases and dedupes the allergen list into display order.
func (p Preferences) Normalize() (Preferences, error) {
	picked := make(map[string]bool, len(p.Allergens))
	for _, a := range p.Allergens {
		a = strings.ToLower(strings.TrimSpace(a))
		if !slices.Contains(Allergens, a) {
			return Preferences{}, fmt.Errorf("%w: %q", ErrUnknownAllergen, a)
		}
		picked[a] = true
	}
	out := []string{}
	for _, a := range Allergens {
		if picked[a] {
			out = append(out, a)
		}
	}
	p.Allergens = out
	return p, nil
}
