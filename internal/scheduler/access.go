package scheduler

import (
	"context"
	"errors"
	"fmt"

	"slot-booking-api/internal/model"
)

// calendarForUser resolves a user's calendar or reports NotFound.
func (s *Service) calendarForUser(ctx context.Context, q Queries, userID string) (*model.Calendar, error) {
	cal, err := q.CalendarByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: calendar not found for user", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return cal, nil
}

// slotForCaller loads a slot and checks the caller owns its calendar.
// Slot CRUD distinguishes a foreign slot as Forbidden once resolved;
// booking hides it as NotFound so existence is not leaked
// (hideAsNotFound).
func (s *Service) slotForCaller(ctx context.Context, q Queries, callerID, slotID string, hideAsNotFound bool) (*model.TimeSlot, error) {
	cal, err := s.calendarForUser(ctx, q, callerID)
	if err != nil {
		return nil, err
	}
	slot, err := q.SlotByID(ctx, slotID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: time slot not found", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if slot.CalendarID != cal.ID {
		if hideAsNotFound {
			return nil, fmt.Errorf("%w: time slot not found", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: you do not have access to this slot", ErrForbidden)
	}
	return slot, nil
}

// visibleMeeting loads a meeting for a caller who is organizer or
// participant. Anyone else sees NotFound, never Forbidden.
func (s *Service) visibleMeeting(ctx context.Context, q Queries, callerID, meetingID string) (*model.Meeting, error) {
	m, err := q.MeetingByID(ctx, meetingID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: meeting not found", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if m.OrganizerID != callerID && !m.HasParticipant(callerID) {
		return nil, fmt.Errorf("%w: meeting not found", ErrNotFound)
	}
	return m, nil
}

// organizerMeeting loads a meeting for mutation: the meeting must exist
// and the caller must be its organizer, otherwise Forbidden.
func (s *Service) organizerMeeting(ctx context.Context, q Queries, callerID, meetingID string) (*model.Meeting, error) {
	m, err := q.MeetingByID(ctx, meetingID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: meeting not found", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if m.OrganizerID != callerID {
		return nil, fmt.Errorf("%w: only the organizer may modify a meeting", ErrForbidden)
	}
	return m, nil
}
