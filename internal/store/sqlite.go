package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/questline-app/questline/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		total_xp INTEGER NOT NULL DEFAULT 0,
		current_level INTEGER NOT NULL DEFAULT 1,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		helper TEXT NOT NULL,
		thread_id TEXT,
		title TEXT,
		preview TEXT,
		last_message_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(user_id, project_id, helper)
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_project ON chat_sessions(user_id, project_id, last_message_at);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tool_call TEXT,
		tool_result TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);

	CREATE TABLE IF NOT EXISTS helper_contexts (
		user_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		helper TEXT NOT NULL,
		key_insights TEXT NOT NULL,
		decisions_made TEXT NOT NULL,
		artifacts_created TEXT NOT NULL,
		context_summary TEXT NOT NULL,
		data TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, project_id, helper)
	);

	CREATE TABLE IF NOT EXISTS journeys (
		user_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		current_level INTEGER NOT NULL,
		xp INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, project_id)
	);

	CREATE TABLE IF NOT EXISTS journey_progress (
		user_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		level_id INTEGER NOT NULL,
		helper TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, project_id, level_id, helper)
	);

	CREATE TABLE IF NOT EXISTS helper_level_tasks (
		user_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		helper TEXT NOT NULL,
		level_id INTEGER NOT NULL,
		task_id TEXT NOT NULL,
		title TEXT NOT NULL,
		goal TEXT NOT NULL,
		required INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		completed_at INTEGER,
		xp_reward INTEGER NOT NULL,
		PRIMARY KEY (user_id, project_id, helper, level_id, task_id)
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_level ON helper_level_tasks(user_id, project_id, level_id);

	CREATE TABLE IF NOT EXISTS task_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		xp_awarded INTEGER NOT NULL,
		leveled_up INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_task_events_project ON task_events(user_id, project_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, total_xp, current_level,
		       last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(
		&user.UserID, &user.Username, &user.TotalXP, &user.CurrentLevel,
		&lastSeen, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (user_id, username, total_xp, current_level, last_seen_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			last_seen_at = excluded.last_seen_at,
			updated_at = excluded.updated_at`

	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, user.TotalXP, user.CurrentLevel,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	_, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last seen: %w", err)
	}
	return nil
}

// AddUserXP adds to the user-wide cumulative XP total.
func (s *SQLiteStore) AddUserXP(ctx context.Context, userID string, xp int) error {
	query := `UPDATE users SET total_xp = total_xp + ?, updated_at = ? WHERE user_id = ?`
	_, err := s.db.ExecContext(ctx, query, xp, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("add user xp: %w", err)
	}
	return nil
}

// SetUserLevel updates the user-wide current-level mirror.
func (s *SQLiteStore) SetUserLevel(ctx context.Context, userID string, level int) error {
	query := `UPDATE users SET current_level = ?, updated_at = ? WHERE user_id = ?`
	_, err := s.db.ExecContext(ctx, query, level, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("set user level: %w", err)
	}
	return nil
}
