package model

import "time"

type SlotStatus string

const (
	SlotFree SlotStatus = "FREE"
	SlotBusy SlotStatus = "BUSY"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Calendar is a pure identity anchor: one per user, created at
// registration, holds no time data itself.
type Calendar struct {
	ID     string
	UserID string
}

type TimeSlot struct {
	ID         string
	CalendarID string
	StartTime  time.Time
	EndTime    time.Time
	Status     SlotStatus
	// Version guards every status/range write; a stale version loses
	// the write and surfaces as a conflict.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Meeting struct {
	ID          string
	SlotID      string
	OrganizerID string
	Title       string
	Description string
	// Participant user ids; the organizer is not implicitly a member.
	ParticipantIDs []string
	CreatedAt      time.Time
}

func (m *Meeting) HasParticipant(userID string) bool {
	for _, id := range m.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// RefreshToken rows hold only the sha256 hash of the token the client
// carries. Rotation revokes the old row and links its replacement.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}

// Page is a limit/offset window over an ordered listing.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	return p.Number * p.Size
}
