package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"slot-booking-api/internal/model"
)

const minSlotDuration = 15 * time.Minute

// UpdateSlotInput carries partial updates; nil fields keep the current
// value. Status is an administrative override independent of booking;
// it can leave the status out of sync with any meeting on the slot.
type UpdateSlotInput struct {
	Start  *time.Time
	End    *time.Time
	Status *model.SlotStatus
}

func (s *Service) CreateSlot(ctx context.Context, ownerID string, start, end time.Time) (*model.TimeSlot, error) {
	slot := &model.TimeSlot{
		ID:        uuid.New().String(),
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		Status:    model.SlotFree,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	// calendar resolution comes first: a caller without a calendar sees
	// NotFound regardless of what range they sent
	err := s.store.RunInTransaction(ctx, func(q Queries) error {
		cal, err := s.calendarForUser(ctx, q, ownerID)
		if err != nil {
			return err
		}
		if err := validateSlotRange(slot.StartTime, slot.EndTime); err != nil {
			return err
		}
		if err := checkNoOverlap(ctx, q, cal.ID, slot.StartTime, slot.EndTime, ""); err != nil {
			return err
		}
		slot.CalendarID = cal.ID
		return q.CreateSlot(ctx, slot)
	})
	if err != nil {
		return nil, err
	}

	slotsCreated.Add(1)
	s.log.WithFields(logrus.Fields{"slot": slot.ID, "calendar": slot.CalendarID}).Debug("slot created")
	return slot, nil
}

func (s *Service) GetSlot(ctx context.Context, callerID, slotID string) (*model.TimeSlot, error) {
	return s.slotForCaller(ctx, s.store, callerID, slotID, false)
}

func (s *Service) ListSlots(ctx context.Context, callerID string, from, to time.Time, page model.Page) ([]model.TimeSlot, int, error) {
	if err := validateWindow(from, to); err != nil {
		return nil, 0, err
	}
	cal, err := s.calendarForUser(ctx, s.store, callerID)
	if err != nil {
		return nil, 0, err
	}
	page = clampPage(page)
	return s.store.SlotsOverlapping(ctx, cal.ID, from, to, page.Size, page.Offset())
}

func (s *Service) UpdateSlot(ctx context.Context, callerID, slotID string, in UpdateSlotInput) (*model.TimeSlot, error) {
	var slot *model.TimeSlot
	err := s.store.RunInTransaction(ctx, func(q Queries) error {
		var err error
		slot, err = s.slotForCaller(ctx, q, callerID, slotID, false)
		if err != nil {
			return err
		}
		version := slot.Version

		if in.Start != nil || in.End != nil {
			newStart, newEnd := slot.StartTime, slot.EndTime
			if in.Start != nil {
				newStart = in.Start.UTC()
			}
			if in.End != nil {
				newEnd = in.End.UTC()
			}
			if err := validateSlotRange(newStart, newEnd); err != nil {
				return err
			}
			// the slot's own prior range must not count as overlap
			if err := checkNoOverlap(ctx, q, slot.CalendarID, newStart, newEnd, slot.ID); err != nil {
				return err
			}
			slot.StartTime = newStart
			slot.EndTime = newEnd
		}

		if in.Status != nil {
			if *in.Status != model.SlotFree && *in.Status != model.SlotBusy {
				return fmt.Errorf("%w: status must be FREE or BUSY", ErrInvalidInput)
			}
			slot.Status = *in.Status
		}

		slot.UpdatedAt = time.Now().UTC()
		if err := q.SaveSlot(ctx, slot, version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return fmt.Errorf("%w: slot was modified concurrently", ErrConflict)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *Service) DeleteSlot(ctx context.Context, callerID, slotID string) error {
	return s.store.RunInTransaction(ctx, func(q Queries) error {
		slot, err := s.slotForCaller(ctx, q, callerID, slotID, false)
		if err != nil {
			return err
		}
		if slot.Status == model.SlotBusy {
			return fmt.Errorf("%w: cannot delete a busy slot, cancel the meeting first", ErrConflict)
		}
		if err := q.DeleteSlot(ctx, slot.ID, slot.Version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return fmt.Errorf("%w: slot was modified concurrently", ErrConflict)
			}
			return err
		}
		return nil
	})
}

func checkNoOverlap(ctx context.Context, q Queries, calendarID string, start, end time.Time, excludeSlotID string) error {
	overlap, err := q.ExistsOverlap(ctx, calendarID, start, end, excludeSlotID)
	if err != nil {
		return err
	}
	if overlap {
		return fmt.Errorf("%w: time slot overlaps with an existing slot", ErrConflict)
	}
	return nil
}

func validateSlotRange(start, end time.Time) error {
	if err := validateWindow(start, end); err != nil {
		return err
	}
	if end.Sub(start) < minSlotDuration {
		return fmt.Errorf("%w: slot must be at least 15 minutes", ErrInvalidInput)
	}
	return nil
}

func validateWindow(from, to time.Time) error {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	return nil
}

func clampPage(p model.Page) model.Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = 20
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}
