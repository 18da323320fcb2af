// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/questline-app/questline/internal/domain"
)

// ErrVersionConflict is returned by UpdateHelperContext when the row was
// modified since it was read. Callers re-read and re-merge.
var ErrVersionConflict = errors.New("helper context version conflict")

// ErrTaskAlreadyCompleted is returned by CompleteTask when the task row
// already carries a completion flag.
var ErrTaskAlreadyCompleted = errors.New("task already completed")

// Repository defines the persistence surface consumed by the synchronizer,
// the progression state machine, and the stream orchestrator.
type Repository interface {
	// GetUser retrieves a user by ID. Returns (nil, nil) when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// AddUserXP adds to the user-wide cumulative XP total.
	AddUserXP(ctx context.Context, userID string, xp int) error

	// SetUserLevel updates the user-wide current-level mirror.
	SetUserLevel(ctx context.Context, userID string, level int) error

	// GetSession retrieves a chat session by ID. Returns (nil, nil) when absent.
	GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error)

	// GetSessionByKey retrieves the session for one (user, project, helper).
	GetSessionByKey(ctx context.Context, userID, projectID string, helper domain.Helper) (*domain.ChatSession, error)

	// InsertSession creates a new chat session.
	InsertSession(ctx context.Context, s *domain.ChatSession) error

	// SetSessionThread records the backend thread owned by a session.
	SetSessionThread(ctx context.Context, sessionID, threadID string) error

	// ListSessions lists sessions for a project, most recent activity first.
	ListSessions(ctx context.Context, userID, projectID string) ([]*domain.ChatSession, error)

	// InsertMessage appends a message to the session log. Denormalized
	// session fields (title, preview, last-message timestamp) are updated
	// best-effort and never fail the insert.
	InsertMessage(ctx context.Context, m *domain.Message) error

	// ListMessages returns a session's messages ordered by creation time.
	ListMessages(ctx context.Context, sessionID string) ([]*domain.Message, error)

	// GetHelperContext retrieves the context row for one (user, project, helper).
	// Returns (nil, nil) when absent.
	GetHelperContext(ctx context.Context, userID, projectID string, helper domain.Helper) (*domain.HelperContext, error)

	// ListHelperContexts lists all context rows for a project.
	ListHelperContexts(ctx context.Context, userID, projectID string) ([]*domain.HelperContext, error)

	// InsertHelperContext creates a context row at version 1.
	InsertHelperContext(ctx context.Context, hc *domain.HelperContext) error

	// UpdateHelperContext conditionally replaces a context row. The write
	// only applies when the stored version equals expectedVersion;
	// otherwise ErrVersionConflict is returned.
	UpdateHelperContext(ctx context.Context, hc *domain.HelperContext, expectedVersion int64) error

	// GetJourney retrieves the single-track journey row. Returns (nil, nil) when absent.
	GetJourney(ctx context.Context, userID, projectID string) (*domain.Journey, error)

	// UpsertJourney creates or updates the journey row with absolute values.
	UpsertJourney(ctx context.Context, j *domain.Journey) error

	// AddJourneyXP atomically adds XP to the journey row, creating it at
	// level 1 when missing.
	AddJourneyXP(ctx context.Context, userID, projectID string, xp int) error

	// UpsertJourneyProgress creates or touches a per-helper progress row.
	UpsertJourneyProgress(ctx context.Context, p *domain.JourneyProgress) error

	// ListJourneyProgress lists all progress rows for a project.
	ListJourneyProgress(ctx context.Context, userID, projectID string) ([]*domain.JourneyProgress, error)

	// UpsertLevelTasks bulk-creates task rows for a level. Re-initializing
	// refreshes titles, goals, and flags but preserves completion state.
	UpsertLevelTasks(ctx context.Context, tasks []*domain.HelperLevelTask) error

	// GetTask retrieves a task row by ID. Returns (nil, nil) when absent.
	GetTask(ctx context.Context, userID, projectID, taskID string) (*domain.HelperLevelTask, error)

	// ListLevelTasks lists every task row at a level across all helpers.
	ListLevelTasks(ctx context.Context, userID, projectID string, levelID int) ([]*domain.HelperLevelTask, error)

	// ListHelperLevelTasks lists one helper's task rows at a level.
	ListHelperLevelTasks(ctx context.Context, userID, projectID string, helper domain.Helper, levelID int) ([]*domain.HelperLevelTask, error)

	// CompleteTask marks a task completed. Returns ErrTaskAlreadyCompleted
	// when the completion flag was already set.
	CompleteTask(ctx context.Context, userID, projectID, taskID string, at time.Time) error

	// InsertTaskEvent appends an immutable completion event.
	InsertTaskEvent(ctx context.Context, e *domain.TaskEvent) error

	// ListTaskEvents returns completion events for a project, oldest first.
	ListTaskEvents(ctx context.Context, userID, projectID string) ([]*domain.TaskEvent, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
