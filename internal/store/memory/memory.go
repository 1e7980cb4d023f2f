// Package memory is an in-memory implementation of the engine's store
// contract, used by tests and local runs without Postgres. A single
// mutex serializes transactions; entries are copied on read and write so
// a snapshot restore gives all-or-nothing rollback.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"slot-booking-api/internal/model"
	"slot-booking-api/internal/scheduler"
)

type Store struct {
	mu            sync.Mutex
	users         map[string]model.User
	calendars     map[string]model.Calendar
	slots         map[string]model.TimeSlot
	meetings      map[string]model.Meeting
	refreshTokens map[string]model.RefreshToken
}

func New() *Store {
	return &Store{
		users:         make(map[string]model.User),
		calendars:     make(map[string]model.Calendar),
		slots:         make(map[string]model.TimeSlot),
		meetings:      make(map[string]model.Meeting),
		refreshTokens: make(map[string]model.RefreshToken),
	}
}

var _ scheduler.Store = (*Store)(nil)

// RunInTransaction holds the store lock for the whole callback and
// restores a snapshot of every table if it fails.
func (s *Store) RunInTransaction(ctx context.Context, fn func(q scheduler.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapUsers := copyMap(s.users)
	snapCalendars := copyMap(s.calendars)
	snapSlots := copyMap(s.slots)
	snapMeetings := copyMap(s.meetings)
	snapTokens := copyMap(s.refreshTokens)

	if err := fn(&txQueries{s: s}); err != nil {
		s.users = snapUsers
		s.calendars = snapCalendars
		s.slots = snapSlots
		s.meetings = snapMeetings
		s.refreshTokens = snapTokens
		return err
	}
	return nil
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// txQueries runs against the store without re-locking; the transaction
// holds the lock.
type txQueries struct {
	s *Store
}

func (s *Store) locked(fn func(q *txQueries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&txQueries{s: s})
}

// ----- users & calendars -----

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	return s.locked(func(q *txQueries) error { return q.CreateUser(ctx, u) })
}

func (q *txQueries) CreateUser(ctx context.Context, u *model.User) error {
	q.s.users[u.ID] = *u
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var out *model.User
	err := s.locked(func(q *txQueries) error {
		var err error
		out, err = q.UserByEmail(ctx, email)
		return err
	})
	return out, err
}

func (q *txQueries) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range q.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, scheduler.ErrNotFound
}

func (s *Store) UsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	var out []model.User
	err := s.locked(func(q *txQueries) error {
		var err error
		out, err = q.UsersByIDs(ctx, ids)
		return err
	})
	return out, err
}

func (q *txQueries) UsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	var out []model.User
	for _, id := range ids {
		if u, ok := q.s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) CreateCalendar(ctx context.Context, c *model.Calendar) error {
	return s.locked(func(q *txQueries) error { return q.CreateCalendar(ctx, c) })
}

func (q *txQueries) CreateCalendar(ctx context.Context, c *model.Calendar) error {
	q.s.calendars[c.ID] = *c
	return nil
}

func (s *Store) CalendarByUser(ctx context.Context, userID string) (*model.Calendar, error) {
	var out *model.Calendar
	err := s.locked(func(q *txQueries) error {
		var err error
		out, err = q.CalendarByUser(ctx, userID)
		return err
	})
	return out, err
}

func (q *txQueries) CalendarByUser(ctx context.Context, userID string) (*model.Calendar, error) {
	for _, c := range q.s.calendars {
		if c.UserID == userID {
			c := c
			return &c, nil
		}
	}
	return nil, scheduler.ErrNotFound
}

// ----- slots -----

func (s *Store) CreateSlot(ctx context.Context, slot *model.TimeSlot) error {
	return s.locked(func(q *txQueries) error { return q.CreateSlot(ctx, slot) })
}

func (q *txQueries) CreateSlot(ctx context.Context, slot *model.TimeSlot) error {
	q.s.slots[slot.ID] = *slot
	return nil
}

func (s *Store) SlotByID(ctx context.Context, id string) (*model.TimeSlot, error) {
	var out *model.TimeSlot
	err := s.locked(func(q *txQueries) error {
		var err error
		out, err = q.SlotByID(ctx, id)
		return err
	})
	return out, err
}

func (q *txQueries) SlotByID(ctx context.Context, id string) (*model.TimeSlot, error) {
	slot, ok := q.s.slots[id]
	if !ok {
		return nil, scheduler.ErrNotFound
	}
	return &slot, nil
}

func (s *Store) SlotsOverlapping(ctx context.Context, calendarID string, from, to time.Time, limit, offset int) ([]model.TimeSlot, int, error) {
	var out []model.TimeSlot
	var total int
	err := s.locked(func(q *txQueries) error {
		var err error
		out, total, err = q.SlotsOverlapping(ctx, calendarID, from, to, limit, offset)
		return err
	})
	return out, total, err
}

func (q *txQueries) SlotsOverlapping(ctx context.Context, calendarID string, from, to time.Time, limit, offset int) ([]model.TimeSlot, int, error) {
	var matched []model.TimeSlot
	for _, slot := range q.s.slots {
		if slot.CalendarID == calendarID && overlaps(slot.StartTime, slot.EndTime, from, to) {
			matched = append(matched, slot)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartTime.Before(matched[j].StartTime) })

	total := len(matched)
	if limit > 0 {
		if offset >= total {
			return nil, total, nil
		}
		end := offset + limit
		if end > total {
			end = total
		}
		matched = matched[offset:end]
	}
	return matched, total, nil
}

func (s *Store) ExistsOverlap(ctx context.Context, calendarID string, from, to time.Time, excludeSlotID string) (bool, error) {
	var out bool
	err := s.locked(func(q *txQueries) error {
		var err error
		out, err = q.ExistsOverlap(ctx, calendarID, from, to, excludeSlotID)
		return err
	})
	return out, err
}

func (q *txQueries) ExistsOverlap(ctx context.Context, calendarID string, from, to time.Time, excludeSlotID string) (bool, error) {
	for _, slot := range q.s.slots {
		if slot.ID == excludeSlotID {
			continue
		}
		if slot.CalendarID == calendarID && overlaps(slot.StartTime, slot.EndTime, from, to) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SaveSlot(ctx context.Context, slot *model.TimeSlot, expectedVersion int64) error {
	return s.locked(func(q *txQueries) error { return q.SaveSlot(ctx, slot, expectedVersion) })
}

func (q *txQueries) SaveSlot(ctx context.Context, slot *model.TimeSlot, expectedVersion int64) error {
	stored, ok := q.s.slots[slot.ID]
	if !ok || stored.Version != expectedVersion {
		return scheduler.ErrVersionConflict
	}
	slot.Version = expectedVersion + 1
	q.s.slots[slot.ID] = *slot
	return nil
}

func (s *Store) DeleteSlot(ctx context.Context, id string, expectedVersion int64) error {
	return s.locked(func(q *txQueries) error { return q.DeleteSlot(ctx, id, expectedVersion) })
}

func (q *txQueries) DeleteSlot(ctx context.Context, id string, expectedVersion int64) error {
	stored, ok := q.s.slots[id]
	if !ok || stored.Version != expectedVersion {
		return scheduler.ErrVersionConflict
	}
	delete(q.s.slots, id)
	return nil
}

// ----- meetings -----

func (s *Store) CreateMeeting(ctx context.Context, m *model.Meeting) error {
	return s.locked(func(q *txQueries) error { return q.CreateMeeting(ctx, m) })
}

func (q *txQueries) CreateMeeting(ctx context.Context, m *model.Meeting) error {
	q.s.meetings[m.ID] = cloneMeeting(*m)
	return nil
}

func (s *Store) MeetingByID(ctx context.Context, id string) (*model.Meeting, error) {
	var out *model.Meeting
	err := s.locked(func(q *txQueries) error {
		var err error
		out, err = q.MeetingByID(ctx, id)
		return err
	})
	return out, err
}

func (q *txQueries) MeetingByID(ctx context.Context, id string) (*model.Meeting, error) {
	m, ok := q.s.meetings[id]
	if !ok {
		return nil, scheduler.ErrNotFound
	}
	m = cloneMeeting(m)
	return &m, nil
}

func (s *Store) ExistsMeetingForSlot(ctx context.Context, slotID string) (bool, error) {
	var out bool
	err := s.locked(func(q *txQueries) error {
		var err error
		out, err = q.ExistsMeetingForSlot(ctx, slotID)
		return err
	})
	return out, err
}

func (q *txQueries) ExistsMeetingForSlot(ctx context.Context, slotID string) (bool, error) {
	for _, m := range q.s.meetings {
		if m.SlotID == slotID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SaveMeeting(ctx context.Context, m *model.Meeting) error {
	return s.locked(func(q *txQueries) error { return q.SaveMeeting(ctx, m) })
}

func (q *txQueries) SaveMeeting(ctx context.Context, m *model.Meeting) error {
	if _, ok := q.s.meetings[m.ID]; !ok {
		return scheduler.ErrNotFound
	}
	q.s.meetings[m.ID] = cloneMeeting(*m)
	return nil
}

func (s *Store) DeleteMeeting(ctx context.Context, id string) error {
	return s.locked(func(q *txQueries) error { return q.DeleteMeeting(ctx, id) })
}

func (q *txQueries) DeleteMeeting(ctx context.Context, id string) error {
	delete(q.s.meetings, id)
	return nil
}

func (s *Store) MeetingsForUserInRange(ctx context.Context, userID string, from, to time.Time, limit, offset int) ([]model.Meeting, int, error) {
	var out []model.Meeting
	var total int
	err := s.locked(func(q *txQueries) error {
		var err error
		out, total, err = q.MeetingsForUserInRange(ctx, userID, from, to, limit, offset)
		return err
	})
	return out, total, err
}

func (q *txQueries) MeetingsForUserInRange(ctx context.Context, userID string, from, to time.Time, limit, offset int) ([]model.Meeting, int, error) {
	var matched []model.Meeting
	for _, m := range q.s.meetings {
		if m.OrganizerID != userID && !m.HasParticipant(userID) {
			continue
		}
		slot, ok := q.s.slots[m.SlotID]
		if !ok || !overlaps(slot.StartTime, slot.EndTime, from, to) {
			continue
		}
		matched = append(matched, cloneMeeting(m))
	}
	sort.Slice(matched, func(i, j int) bool {
		return q.s.slots[matched[i].SlotID].StartTime.Before(q.s.slots[matched[j].SlotID].StartTime)
	})

	total := len(matched)
	if limit > 0 {
		if offset >= total {
			return nil, total, nil
		}
		end := offset + limit
		if end > total {
			end = total
		}
		matched = matched[offset:end]
	}
	return matched, total, nil
}

// ----- refresh tokens -----

func (s *Store) CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error) {
	id := uuid.New().String()
	err := s.locked(func(q *txQueries) error {
		q.s.refreshTokens[id] = model.RefreshToken{
			ID: id, UserID: userID, TokenHash: tokenHash,
			ExpiresAt: expiresAt, CreatedAt: time.Now().UTC(),
		}
		return nil
	})
	return id, err
}

func (s *Store) RefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var out *model.RefreshToken
	err := s.locked(func(q *txQueries) error {
		for _, rt := range q.s.refreshTokens {
			if rt.TokenHash == tokenHash {
				rt := rt
				out = &rt
				return nil
			}
		}
		return scheduler.ErrNotFound
	})
	return out, err
}

func (s *Store) RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error {
	return s.locked(func(q *txQueries) error {
		if old, ok := q.s.refreshTokens[oldID]; ok {
			old.Revoked = true
			old.ReplacedBy = &newID
			q.s.refreshTokens[oldID] = old
		}
		q.s.refreshTokens[newID] = model.RefreshToken{
			ID: newID, UserID: userID, TokenHash: newHash,
			ExpiresAt: newExpiry, CreatedAt: time.Now().UTC(),
		}
		return nil
	})
}

func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	return s.locked(func(q *txQueries) error {
		for id, rt := range q.s.refreshTokens {
			if rt.UserID == userID && !rt.Revoked {
				rt.Revoked = true
				q.s.refreshTokens[id] = rt
			}
		}
		return nil
	})
}

// half-open interval overlap: touching edges do not overlap
func overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

func cloneMeeting(m model.Meeting) model.Meeting {
	if m.ParticipantIDs != nil {
		m.ParticipantIDs = append([]string(nil), m.ParticipantIDs...)
	}
	return m
}
