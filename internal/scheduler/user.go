package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"slot-booking-api/internal/auth"
	"slot-booking-api/internal/model"
)

// Register creates a user and their calendar in one transaction. Emails
// are normalized (trimmed, lower-cased) before the uniqueness check.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)

	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	if displayName == "" {
		return nil, fmt.Errorf("%w: display name must not be blank", ErrInvalidInput)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	err = s.store.RunInTransaction(ctx, func(q Queries) error {
		if _, err := q.UserByEmail(ctx, email); err == nil {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := q.CreateUser(ctx, user); err != nil {
			return err
		}
		return q.CreateCalendar(ctx, &model.Calendar{ID: uuid.New().String(), UserID: user.ID})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("user", user.ID).Info("user registered")
	return user, nil
}

// Authenticate verifies credentials for login. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid credentials", ErrNotFound)
	}
	return user, nil
}
