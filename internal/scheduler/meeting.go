package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"slot-booking-api/internal/model"
)

type ScheduleMeetingInput struct {
	SlotID         string
	Title          string
	Description    string
	ParticipantIDs []string
}

// UpdateMeetingInput carries partial updates; nil fields keep the
// current value. A non-nil participant list replaces the whole set.
type UpdateMeetingInput struct {
	Title          *string
	Description    *string
	ParticipantIDs []string
}

// ScheduleMeeting converts a FREE slot owned by the caller into a
// meeting. The status check, the meeting-existence check and the
// version-conditioned status write all run in one transaction, so of N
// concurrent attempts on a slot exactly one wins; the rest get
// ErrConflict.
func (s *Service) ScheduleMeeting(ctx context.Context, callerID string, in ScheduleMeetingInput) (*model.Meeting, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be blank", ErrInvalidInput)
	}

	meeting := &model.Meeting{
		ID:          uuid.New().String(),
		SlotID:      in.SlotID,
		OrganizerID: callerID,
		Title:       title,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.store.RunInTransaction(ctx, func(q Queries) error {
		// foreign slots resolve as NotFound here, not Forbidden
		slot, err := s.slotForCaller(ctx, q, callerID, in.SlotID, true)
		if err != nil {
			return err
		}
		if slot.Status != model.SlotFree {
			return fmt.Errorf("%w: slot is already busy", ErrConflict)
		}
		taken, err := q.ExistsMeetingForSlot(ctx, slot.ID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: slot already converted to a meeting", ErrConflict)
		}

		participants, err := resolveParticipants(ctx, q, in.ParticipantIDs)
		if err != nil {
			return err
		}
		meeting.ParticipantIDs = participants

		version := slot.Version
		slot.Status = model.SlotBusy
		slot.UpdatedAt = time.Now().UTC()
		if err := q.SaveSlot(ctx, slot, version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				// lost the race: someone else flipped the slot first
				return fmt.Errorf("%w: slot is already busy", ErrConflict)
			}
			return err
		}
		return q.CreateMeeting(ctx, meeting)
	})
	if err != nil {
		return nil, err
	}

	meetingsScheduled.Add(1)
	s.log.WithFields(logrus.Fields{
		"meeting":   meeting.ID,
		"slot":      meeting.SlotID,
		"organizer": meeting.OrganizerID,
	}).Info("meeting scheduled")
	return meeting, nil
}

func (s *Service) GetMeeting(ctx context.Context, callerID, meetingID string) (*model.Meeting, error) {
	return s.visibleMeeting(ctx, s.store, callerID, meetingID)
}

func (s *Service) ListMeetings(ctx context.Context, callerID string, from, to time.Time, page model.Page) ([]model.Meeting, int, error) {
	if err := validateWindow(from, to); err != nil {
		return nil, 0, err
	}
	page = clampPage(page)
	return s.store.MeetingsForUserInRange(ctx, callerID, from, to, page.Size, page.Offset())
}

func (s *Service) UpdateMeeting(ctx context.Context, callerID, meetingID string, in UpdateMeetingInput) (*model.Meeting, error) {
	var meeting *model.Meeting
	err := s.store.RunInTransaction(ctx, func(q Queries) error {
		var err error
		meeting, err = s.organizerMeeting(ctx, q, callerID, meetingID)
		if err != nil {
			return err
		}

		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return fmt.Errorf("%w: title must not be blank", ErrInvalidInput)
			}
			meeting.Title = title
		}
		if in.Description != nil {
			meeting.Description = *in.Description
		}
		if in.ParticipantIDs != nil {
			participants, err := resolveParticipants(ctx, q, in.ParticipantIDs)
			if err != nil {
				return err
			}
			meeting.ParticipantIDs = participants
		}
		return q.SaveMeeting(ctx, meeting)
	})
	if err != nil {
		return nil, err
	}
	return meeting, nil
}

// CancelMeeting deletes the meeting and reverts its slot to FREE as one
// transaction. This is the only coupled transition back to FREE.
func (s *Service) CancelMeeting(ctx context.Context, callerID, meetingID string) error {
	err := s.store.RunInTransaction(ctx, func(q Queries) error {
		meeting, err := s.organizerMeeting(ctx, q, callerID, meetingID)
		if err != nil {
			return err
		}
		slot, err := q.SlotByID(ctx, meeting.SlotID)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: slot for meeting not found", ErrNotFound)
		}
		if err != nil {
			return err
		}

		version := slot.Version
		slot.Status = model.SlotFree
		slot.UpdatedAt = time.Now().UTC()
		if err := q.SaveSlot(ctx, slot, version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return fmt.Errorf("%w: slot was modified concurrently", ErrConflict)
			}
			return err
		}
		return q.DeleteMeeting(ctx, meeting.ID)
	})
	if err != nil {
		return err
	}

	meetingsCancelled.Add(1)
	s.log.WithFields(logrus.Fields{"meeting": meetingID, "organizer": callerID}).Info("meeting cancelled")
	return nil
}

// resolveParticipants dedupes the requested ids and verifies every one
// maps to an existing user; unresolvable ids are listed in the error.
func resolveParticipants(ctx context.Context, q Queries, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	users, err := q.UsersByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(users) != len(unique) {
		found := make(map[string]bool, len(users))
		for _, u := range users {
			found[u.ID] = true
		}
		var missing []string
		for _, id := range unique {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: participants not found: %s", ErrNotFound, strings.Join(missing, ", "))
	}
	sort.Strings(unique)
	return unique, nil
}
