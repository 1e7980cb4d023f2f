package store

import (
	"context"

	"slot-booking-api/internal/model"
)

func (q *queries) CreateUser(ctx context.Context, u *model.User) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (q *queries) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := q.db.QueryRow(ctx,
		`SELECT id, email, password_hash, display_name, created_at, updated_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (q *queries) UsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT id, email, password_hash, display_name, created_at, updated_at
		 FROM users WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (q *queries) CreateCalendar(ctx context.Context, c *model.Calendar) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO calendars (id, user_id) VALUES ($1,$2)`, c.ID, c.UserID,
	)
	return err
}

func (q *queries) CalendarByUser(ctx context.Context, userID string) (*model.Calendar, error) {
	c := &model.Calendar{}
	err := q.db.QueryRow(ctx,
		`SELECT id, user_id FROM calendars WHERE user_id = $1`, userID,
	).Scan(&c.ID, &c.UserID)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}
