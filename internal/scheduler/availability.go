package scheduler

import (
	"context"
	"time"

	"slot-booking-api/internal/model"
)

// SlotWindow is the public projection of a slot: bounds and status only.
type SlotWindow struct {
	Start  time.Time
	End    time.Time
	Status model.SlotStatus
}

type Availability struct {
	UserID  string
	From    time.Time
	To      time.Time
	Windows []SlotWindow
}

// GetAvailability renders the target user's slots overlapping [from, to)
// ordered by start. Any authenticated caller may query any user;
// availability is intentionally public within the system.
func (s *Service) GetAvailability(ctx context.Context, targetUserID string, from, to time.Time) (*Availability, error) {
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}
	cal, err := s.calendarForUser(ctx, s.store, targetUserID)
	if err != nil {
		return nil, err
	}

	slots, _, err := s.store.SlotsOverlapping(ctx, cal.ID, from, to, 0, 0)
	if err != nil {
		return nil, err
	}

	windows := make([]SlotWindow, len(slots))
	for i, slot := range slots {
		windows[i] = SlotWindow{Start: slot.StartTime, End: slot.EndTime, Status: slot.Status}
	}
	return &Availability{UserID: targetUserID, From: from, To: to, Windows: windows}, nil
}
