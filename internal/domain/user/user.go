// Package user holds the member identity model. Presence is last-write-wins:
// whoever touches the tracker last owns the display name.
package user

import (
	"context"
	"strings"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
)

// User is a tracked group member.
type User struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New creates a validated User.
func New(id, displayName string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, shared.ErrEmptyUserID
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, shared.ErrEmptyDisplay
	}

	now := time.Now().UTC()
	return &User{
		ID:          id,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Repository is the persistence contract for users.
type Repository interface {
	// Upsert creates the user or refreshes the display name (last write wins).
	Upsert(ctx context.Context, u *User) error

	// GetByID returns a user or shared.ErrUserNotFound.
	GetByID(ctx context.Context, id string) (*User, error)
}
