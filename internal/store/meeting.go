package store

import (
	"context"
	"time"

	"slot-booking-api/internal/model"
)

func (q *queries) CreateMeeting(ctx context.Context, m *model.Meeting) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO meetings (id, slot_id, organizer_id, title, description, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.SlotID, m.OrganizerID, m.Title, m.Description, m.CreatedAt,
	)
	if err != nil {
		return err
	}
	return q.insertParticipants(ctx, m.ID, m.ParticipantIDs)
}

func (q *queries) MeetingByID(ctx context.Context, id string) (*model.Meeting, error) {
	m := &model.Meeting{}
	err := q.db.QueryRow(ctx,
		`SELECT id, slot_id, organizer_id, title, description, created_at
		 FROM meetings WHERE id = $1`, id,
	).Scan(&m.ID, &m.SlotID, &m.OrganizerID, &m.Title, &m.Description, &m.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	rows, err := q.db.Query(ctx,
		`SELECT user_id FROM meeting_participants WHERE meeting_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		m.ParticipantIDs = append(m.ParticipantIDs, uid)
	}
	return m, rows.Err()
}

func (q *queries) ExistsMeetingForSlot(ctx context.Context, slotID string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM meetings WHERE slot_id = $1)`, slotID,
	).Scan(&exists)
	return exists, err
}

func (q *queries) SaveMeeting(ctx context.Context, m *model.Meeting) error {
	_, err := q.db.Exec(ctx,
		`UPDATE meetings SET title=$1, description=$2 WHERE id=$3`,
		m.Title, m.Description, m.ID,
	)
	if err != nil {
		return err
	}

	// replace the participant set
	if _, err := q.db.Exec(ctx,
		`DELETE FROM meeting_participants WHERE meeting_id = $1`, m.ID); err != nil {
		return err
	}
	return q.insertParticipants(ctx, m.ID, m.ParticipantIDs)
}

func (q *queries) DeleteMeeting(ctx context.Context, id string) error {
	// participant rows go with it via ON DELETE CASCADE
	_, err := q.db.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	return err
}

// MeetingsForUserInRange lists meetings where the user is organizer or
// participant and whose slot overlaps [from, to), ordered by slot start.
func (q *queries) MeetingsForUserInRange(ctx context.Context, userID string, from, to time.Time, limit, offset int) ([]model.Meeting, int, error) {
	const where = `FROM meetings m
		 JOIN time_slots ts ON ts.id = m.slot_id
		 WHERE (m.organizer_id = $1 OR EXISTS (
		     SELECT 1 FROM meeting_participants mp
		     WHERE mp.meeting_id = m.id AND mp.user_id = $1))
		   AND ts.start_time < $3 AND ts.end_time > $2`

	var total int
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) `+where, userID, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql := `SELECT m.id, m.slot_id, m.organizer_id, m.title, m.description, m.created_at ` +
		where + ` ORDER BY ts.start_time`
	args := []any{userID, from, to}
	if limit > 0 {
		sql += ` LIMIT $4 OFFSET $5`
		args = append(args, limit, offset)
	}

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Meeting
	for rows.Next() {
		var m model.Meeting
		if err := rows.Scan(&m.ID, &m.SlotID, &m.OrganizerID, &m.Title, &m.Description, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := q.loadParticipants(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (q *queries) insertParticipants(ctx context.Context, meetingID string, userIDs []string) error {
	for _, uid := range userIDs {
		if _, err := q.db.Exec(ctx,
			`INSERT INTO meeting_participants (meeting_id, user_id) VALUES ($1,$2)`,
			meetingID, uid,
		); err != nil {
			return err
		}
	}
	return nil
}

func (q *queries) loadParticipants(ctx context.Context, meetings []model.Meeting) error {
	if len(meetings) == 0 {
		return nil
	}
	ids := make([]string, len(meetings))
	byID := make(map[string]*model.Meeting, len(meetings))
	for i := range meetings {
		ids[i] = meetings[i].ID
		byID[meetings[i].ID] = &meetings[i]
	}

	rows, err := q.db.Query(ctx,
		`SELECT meeting_id, user_id FROM meeting_participants WHERE meeting_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var mid, uid string
		if err := rows.Scan(&mid, &uid); err != nil {
			return err
		}
		if m := byID[mid]; m != nil {
			m.ParticipantIDs = append(m.ParticipantIDs, uid)
		}
	}
	return rows.Err()
}
