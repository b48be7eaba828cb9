package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/tigertalks/tigertalks-go/internal/errors"
)

// SaveUser inserts or updates a user profile
func (db *DB) SaveUser(ctx context.Context, user *User) error {
	certificates, err := json.Marshal(user.Certificates)
	if err != nil {
		return fmt.Errorf("marshal certificates: %w", err)
	}
	pastCourses, err := json.Marshal(user.PastCourses)
	if err != nil {
		return fmt.Errorf("marshal past courses: %w", err)
	}

	query := `
		INSERT INTO users (id, email, name, grade, concentration, certificates, past_courses, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			grade = excluded.grade,
			concentration = excluded.concentration,
			certificates = excluded.certificates,
			past_courses = excluded.past_courses,
			updated_at = excluded.updated_at
	`
	start := time.Now()
	now := time.Now().UnixMilli()
	_, err = db.conn.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.Grade, user.Concentration,
		string(certificates), string(pastCourses), now, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to save user",
			"user_id", user.ID,
			"error", err)
		return fmt.Errorf("failed to save user: %w", err)
	}

	// Warn on slow queries (>100ms)
	if duration := time.Since(start); duration > 100*time.Millisecond {
		slog.WarnContext(ctx, "slow database operation",
			"operation", "SaveUser",
			"duration_ms", duration.Milliseconds(),
			"user_id", user.ID)
	}
	return nil
}

// GetUser retrieves a user profile by ID.
// Returns ErrNotFound when no such user exists.
func (db *DB) GetUser(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, email, name, grade, concentration, certificates, past_courses, created_at, updated_at
		FROM users WHERE id = ?
	`

	var (
		user         User
		certificates sql.NullString
		pastCourses  sql.NullString
		createdAt    int64
		updatedAt    int64
	)
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Grade,
		&user.Concentration,
		&certificates,
		&pastCourses,
		&createdAt,
		&updatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query user",
			"user_id", id,
			"error", err)
		return nil, fmt.Errorf("query user: %w", err)
	}

	if certificates.Valid && certificates.String != "" {
		if err := json.Unmarshal([]byte(certificates.String), &user.Certificates); err != nil {
			return nil, fmt.Errorf("unmarshal certificates: %w", err)
		}
	}
	if pastCourses.Valid && pastCourses.String != "" {
		if err := json.Unmarshal([]byte(pastCourses.String), &user.PastCourses); err != nil {
			return nil, fmt.Errorf("unmarshal past courses: %w", err)
		}
	}
	if user.PastCourses == nil {
		user.PastCourses = map[string]string{}
	}
	user.CreatedAt = time.UnixMilli(createdAt)
	user.UpdatedAt = time.UnixMilli(updatedAt)

	return &user, nil
}
