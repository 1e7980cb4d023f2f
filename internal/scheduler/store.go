package scheduler

import (
	"context"
	"time"

	"slot-booking-api/internal/model"
)

// Queries is the store surface the engine runs against. Lookups return
// ErrNotFound when no row matches. List operations order by slot start
// ascending and report the unpaginated total; limit <= 0 disables
// pagination.
type Queries interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
	CreateCalendar(ctx context.Context, c *model.Calendar) error
	CalendarByUser(ctx context.Context, userID string) (*model.Calendar, error)

	SlotByID(ctx context.Context, id string) (*model.TimeSlot, error)
	SlotsOverlapping(ctx context.Context, calendarID string, from, to time.Time, limit, offset int) ([]model.TimeSlot, int, error)
	ExistsOverlap(ctx context.Context, calendarID string, from, to time.Time, excludeSlotID string) (bool, error)
	CreateSlot(ctx context.Context, s *model.TimeSlot) error
	// SaveSlot writes s conditioned on the row still carrying
	// expectedVersion; on success the stored version is bumped and s is
	// updated to match. A stale version returns ErrVersionConflict.
	SaveSlot(ctx context.Context, s *model.TimeSlot, expectedVersion int64) error
	DeleteSlot(ctx context.Context, id string, expectedVersion int64) error

	MeetingByID(ctx context.Context, id string) (*model.Meeting, error)
	ExistsMeetingForSlot(ctx context.Context, slotID string) (bool, error)
	CreateMeeting(ctx context.Context, m *model.Meeting) error
	SaveMeeting(ctx context.Context, m *model.Meeting) error
	DeleteMeeting(ctx context.Context, id string) error
	MeetingsForUserInRange(ctx context.Context, userID string, from, to time.Time, limit, offset int) ([]model.Meeting, int, error)
}

// Store adds the transaction boundary. Everything fn does through q
// commits or rolls back as one unit.
type Store interface {
	Queries
	RunInTransaction(ctx context.Context, fn func(q Queries) error) error
}
