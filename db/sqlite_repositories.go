package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"onehandcoder/models"

	"github.com/mattn/go-sqlite3"
)

const userColumns = `id, username, email, password_hash, subscription, progress, history, completed_courses, saved_programs, created_at, updated_at`

// SQLiteUserRepository implements the UserRepository interface for SQLite.
// The three sequences are stored as JSON text columns.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

// Ping checks the database is reachable
func (r *SQLiteUserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection
func (r *SQLiteUserRepository) Close() error {
	return r.db.Close()
}

// Create inserts a new user. IDs already set (migrations) are kept.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	created := *user
	if created.ID == "" {
		created.ID = GenerateID()
	}
	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	if created.UpdatedAt.IsZero() {
		created.UpdatedAt = now
	}
	created.Normalize()

	history, courses, programs, err := encodeSequences(&created)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		created.ID, created.Username, created.Email, created.PasswordHash, created.Subscription,
		created.Progress, history, courses, programs, created.CreatedAt, created.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("error inserting user: %w", err)
	}

	return &created, nil
}

// FindByID finds a user by ID
func (r *SQLiteUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// FindByUsername finds a user by username
func (r *SQLiteUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// FindAll returns every user ordered by creation time
func (r *SQLiteUserRepository) FindAll(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// Update replaces the stored row with user
func (r *SQLiteUserRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	updated := *user
	updated.UpdatedAt = time.Now().UTC()
	updated.Normalize()

	history, courses, programs, err := encodeSequences(&updated)
	if err != nil {
		return nil, err
	}

	query := `UPDATE users SET username = ?, email = ?, password_hash = ?, subscription = ?, progress = ?,
		history = ?, completed_courses = ?, saved_programs = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		updated.Username, updated.Email, updated.PasswordHash, updated.Subscription, updated.Progress,
		history, courses, programs, updated.UpdatedAt, updated.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error checking updated rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return &updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var history, courses, programs string

	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Subscription,
		&user.Progress, &history, &courses, &programs, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning user: %w", err)
	}

	if err := json.Unmarshal([]byte(history), &user.History); err != nil {
		return nil, fmt.Errorf("error decoding history: %w", err)
	}
	if err := json.Unmarshal([]byte(courses), &user.CompletedCourses); err != nil {
		return nil, fmt.Errorf("error decoding completed courses: %w", err)
	}
	if err := json.Unmarshal([]byte(programs), &user.SavedPrograms); err != nil {
		return nil, fmt.Errorf("error decoding saved programs: %w", err)
	}

	user.Normalize()
	return &user, nil
}

func encodeSequences(user *models.User) (history, courses, programs string, err error) {
	h, err := json.Marshal(user.History)
	if err != nil {
		return "", "", "", fmt.Errorf("error encoding history: %w", err)
	}
	c, err := json.Marshal(user.CompletedCourses)
	if err != nil {
		return "", "", "", fmt.Errorf("error encoding completed courses: %w", err)
	}
	p, err := json.Marshal(user.SavedPrograms)
	if err != nil {
		return "", "", "", fmt.Errorf("error encoding saved programs: %w", err)
	}
	return string(h), string(c), string(p), nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
