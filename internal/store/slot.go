package store

import (
	"context"
	"fmt"
	"time"

	"slot-booking-api/internal/model"
	"slot-booking-api/internal/scheduler"
)

func (q *queries) CreateSlot(ctx context.Context, s *model.TimeSlot) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO time_slots (id, calendar_id, start_time, end_time, status, version, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.CalendarID, s.StartTime, s.EndTime, s.Status, s.Version, s.CreatedAt, s.UpdatedAt,
	)
	if isExclusionViolation(err) {
		// constraint caught an overlap race the app-level check missed
		return fmt.Errorf("%w: time slot overlaps with an existing slot", scheduler.ErrConflict)
	}
	return err
}

func (q *queries) SlotByID(ctx context.Context, id string) (*model.TimeSlot, error) {
	s := &model.TimeSlot{}
	err := q.db.QueryRow(ctx,
		`SELECT id, calendar_id, start_time, end_time, status, version, created_at, updated_at
		 FROM time_slots WHERE id = $1`, id,
	).Scan(&s.ID, &s.CalendarID, &s.StartTime, &s.EndTime, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// SlotsOverlapping lists slots whose [start, end) interval overlaps
// [from, to), ordered by start. limit <= 0 returns all matches.
func (q *queries) SlotsOverlapping(ctx context.Context, calendarID string, from, to time.Time, limit, offset int) ([]model.TimeSlot, int, error) {
	var total int
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM time_slots
		 WHERE calendar_id = $1 AND start_time < $3 AND end_time > $2`,
		calendarID, from, to,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	sql := `SELECT id, calendar_id, start_time, end_time, status, version, created_at, updated_at
		 FROM time_slots
		 WHERE calendar_id = $1 AND start_time < $3 AND end_time > $2
		 ORDER BY start_time`
	args := []any{calendarID, from, to}
	if limit > 0 {
		sql += ` LIMIT $4 OFFSET $5`
		args = append(args, limit, offset)
	}

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.TimeSlot
	for rows.Next() {
		var s model.TimeSlot
		if err := rows.Scan(&s.ID, &s.CalendarID, &s.StartTime, &s.EndTime, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (q *queries) ExistsOverlap(ctx context.Context, calendarID string, from, to time.Time, excludeSlotID string) (bool, error) {
	sql := `SELECT EXISTS(
		SELECT 1 FROM time_slots
		WHERE calendar_id = $1
		  AND start_time < $3
		  AND end_time > $2`
	args := []any{calendarID, from, to}
	if excludeSlotID != "" {
		sql += ` AND id != $4`
		args = append(args, excludeSlotID)
	}
	sql += `)`

	var exists bool
	err := q.db.QueryRow(ctx, sql, args...).Scan(&exists)
	return exists, err
}

func (q *queries) SaveSlot(ctx context.Context, s *model.TimeSlot, expectedVersion int64) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE time_slots
		 SET start_time=$1, end_time=$2, status=$3, updated_at=$4, version=version+1
		 WHERE id=$5 AND version=$6`,
		s.StartTime, s.EndTime, s.Status, s.UpdatedAt, s.ID, expectedVersion,
	)
	if isExclusionViolation(err) {
		return fmt.Errorf("%w: time slot overlaps with an existing slot", scheduler.ErrConflict)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scheduler.ErrVersionConflict
	}
	s.Version = expectedVersion + 1
	return nil
}

func (q *queries) DeleteSlot(ctx context.Context, id string, expectedVersion int64) error {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM time_slots WHERE id = $1 AND version = $2`, id, expectedVersion,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scheduler.ErrVersionConflict
	}
	return nil
}
