package domain

import (
	"fmt"
	"time"
)

const (
	slotCount    = 12
	slotInterval = 15 * time.Minute
	slotLead     = 15 * time.Minute
)

type PickupChoice struct {
	ASAP        bool   `json:"asap"`
	WaitMinutes int    `json:"waitMinutes,omitempty"`
	Time        string `json:"time,omitempty"`
}

func ASAP(waitMinutes int) PickupChoice {
	return PickupChoice{ASAP: true, WaitMinutes: waitMinutes}
}

func Scheduled(at string) PickupChoice {
	return PickupChoice{Time: at}
}

func (p PickupChoice) Label() string {
	if p.ASAP {
		return fmt.Sprintf("ASAP (~%d min)", p.WaitMinutes)
	}
	return p.Time
}

func (p PickupChoice) Validate() error {
	if !p.ASAP && p.Time == "" {
		return ErrPickupTimeRequired
	}
	return nil
}

// ScheduledSlots lists the pickup times offered for a location: twelve
// quarter-hour slots starting wait+15 minutes from now.
func ScheduledSlots(now time.Time, waitMinutes int) []string {
	start := now.Truncate(time.Minute).Add(time.Duration(waitMinutes)*time.Minute + slotLead)
	slots := make([]string, 0, slotCount)
	for i := 0; i < slotCount; i++ {
		slots = append(slots, start.Add(time.Duration(i)*slotInterval).Format("3:04 PM"))
	}
	return slots
}
