package domain

import "time"

// DefaultTaskXP is the reward for a task without an explicit override.
const DefaultTaskXP = 10

// MaxLevel caps the single-track journey level.
const MaxLevel = 5

// Journey is the authoritative single-track progression row per (user, project).
// Level-up is gated by required-task completion, never by accumulated XP,
// and XP resets to zero on every level transition.
type Journey struct {
	UserID       string    `json:"user_id"`
	ProjectID    string    `json:"project_id"`
	CurrentLevel int       `json:"current_level"`
	XP           int       `json:"xp"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// JourneyProgress tracks one helper's engagement with one level. Several
// rows may be active at once; they never drive level transitions.
type JourneyProgress struct {
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id"`
	LevelID   int       `json:"level_id"`
	Helper    Helper    `json:"helper"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HelperLevelTask is one task row created when a level is initialized
// for a helper. Only the completion operation mutates it.
type HelperLevelTask struct {
	UserID      string     `json:"user_id"`
	ProjectID   string     `json:"project_id"`
	Helper      Helper     `json:"helper"`
	LevelID     int        `json:"level_id"`
	TaskID      string     `json:"task_id"`
	Title       string     `json:"title"`
	Goal        string     `json:"goal"`
	Required    bool       `json:"required"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	XPReward    int        `json:"xp_reward"`
}

// TaskEvent is an immutable log entry recorded on every task completion.
type TaskEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id"`
	TaskID    string    `json:"task_id"`
	XPAwarded int       `json:"xp_awarded"`
	LeveledUp bool      `json:"leveled_up"`
	CreatedAt time.Time `json:"created_at"`
}

// User carries identity plus the user-wide progression mirror.
type User struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	TotalXP      int       `json:"total_xp"`
	CurrentLevel int       `json:"current_level"`
	LastSeenAt   time.Time `json:"last_seen_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
