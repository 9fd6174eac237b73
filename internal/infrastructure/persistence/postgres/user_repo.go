package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
	"github.com/studyhub/study-tracker-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository using PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// Upsert inserts the user or refreshes the display name of an existing one.
// Session columns are never touched here.
func (r *UserRepository) Upsert(ctx context.Context, u *user.User) error {
	if u == nil {
		return fmt.Errorf("%w: user is nil", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO users (user_id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET display_name = EXCLUDED.display_name
	`

	if _, err := r.conn.Exec(ctx, query, u.ID, u.DisplayName); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*user.User, error) {
	query := `
		SELECT user_id, display_name, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`

	var (
		u                    user.User
		createdAt, updatedAt time.Time
	)

	err := r.conn.QueryRow(ctx, query, userID).Scan(&u.ID, &u.DisplayName, &createdAt, &updatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.CreatedAt = createdAt
	u.UpdatedAt = updatedAt

	return &u, nil
}
