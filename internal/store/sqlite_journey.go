package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/questline-app/questline/internal/domain"
)

// GetJourney retrieves the single-track journey row.
func (s *SQLiteStore) GetJourney(ctx context.Context, userID, projectID string) (*domain.Journey, error) {
	query := `
		SELECT user_id, project_id, current_level, xp, created_at, updated_at
		FROM journeys WHERE user_id = ? AND project_id = ?`
	row := s.db.QueryRowContext(ctx, query, userID, projectID)

	var j domain.Journey
	var createdAt, updatedAt int64
	err := row.Scan(&j.UserID, &j.ProjectID, &j.CurrentLevel, &j.XP, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan journey row: %w", err)
	}
	j.CreatedAt = time.Unix(createdAt, 0)
	j.UpdatedAt = time.Unix(updatedAt, 0)
	return &j, nil
}

// UpsertJourney creates or updates the journey row.
func (s *SQLiteStore) UpsertJourney(ctx context.Context, j *domain.Journey) error {
	now := time.Now()
	query := `
		INSERT INTO journeys (user_id, project_id, current_level, xp, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, project_id) DO UPDATE SET
			current_level = excluded.current_level,
			xp = excluded.xp,
			updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query,
		j.UserID, j.ProjectID, j.CurrentLevel, j.XP, now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert journey: %w", err)
	}
	return nil
}

// AddJourneyXP atomically adds XP to the journey row, creating it at level 1
// when missing. The relative update keeps concurrent awards from losing each
// other, same as AddUserXP for the user-wide total.
func (s *SQLiteStore) AddJourneyXP(ctx context.Context, userID, projectID string, xp int) error {
	now := time.Now()
	query := `
		INSERT INTO journeys (user_id, project_id, current_level, xp, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(user_id, project_id) DO UPDATE SET
			xp = xp + excluded.xp,
			updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query, userID, projectID, xp, now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("add journey xp: %w", err)
	}
	return nil
}

// UpsertJourneyProgress creates or touches a per-helper progress row.
func (s *SQLiteStore) UpsertJourneyProgress(ctx context.Context, p *domain.JourneyProgress) error {
	now := time.Now()
	query := `
		INSERT INTO journey_progress (user_id, project_id, level_id, helper, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, project_id, level_id, helper) DO UPDATE SET
			updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query,
		p.UserID, p.ProjectID, p.LevelID, string(p.Helper), now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert journey progress: %w", err)
	}
	return nil
}

type progressRow struct {
	UserID    string `db:"user_id"`
	ProjectID string `db:"project_id"`
	LevelID   int    `db:"level_id"`
	Helper    string `db:"helper"`
	StartedAt int64  `db:"started_at"`
	UpdatedAt int64  `db:"updated_at"`
}

// ListJourneyProgress lists all progress rows for a project.
func (s *SQLiteStore) ListJourneyProgress(ctx context.Context, userID, projectID string) ([]*domain.JourneyProgress, error) {
	var rows []*progressRow
	query := `
		SELECT user_id, project_id, level_id, helper, started_at, updated_at
		FROM journey_progress WHERE user_id = ? AND project_id = ?
		ORDER BY level_id ASC, helper ASC`
	if err := sqlscan.Select(ctx, s.db, &rows, query, userID, projectID); err != nil {
		return nil, fmt.Errorf("list journey progress: %w", err)
	}
	progress := make([]*domain.JourneyProgress, len(rows))
	for i, r := range rows {
		progress[i] = &domain.JourneyProgress{
			UserID:    r.UserID,
			ProjectID: r.ProjectID,
			LevelID:   r.LevelID,
			Helper:    domain.Helper(r.Helper),
			StartedAt: time.Unix(r.StartedAt, 0),
			UpdatedAt: time.Unix(r.UpdatedAt, 0),
		}
	}
	return progress, nil
}

type taskRow struct {
	UserID      string        `db:"user_id"`
	ProjectID   string        `db:"project_id"`
	Helper      string        `db:"helper"`
	LevelID     int           `db:"level_id"`
	TaskID      string        `db:"task_id"`
	Title       string        `db:"title"`
	Goal        string        `db:"goal"`
	Required    bool          `db:"required"`
	Completed   bool          `db:"completed"`
	CompletedAt sql.NullInt64 `db:"completed_at"`
	XPReward    int           `db:"xp_reward"`
}

func (r *taskRow) toDomain() *domain.HelperLevelTask {
	t := &domain.HelperLevelTask{
		UserID:    r.UserID,
		ProjectID: r.ProjectID,
		Helper:    domain.Helper(r.Helper),
		LevelID:   r.LevelID,
		TaskID:    r.TaskID,
		Title:     r.Title,
		Goal:      r.Goal,
		Required:  r.Required,
		Completed: r.Completed,
		XPReward:  r.XPReward,
	}
	if r.CompletedAt.Valid {
		at := time.Unix(r.CompletedAt.Int64, 0)
		t.CompletedAt = &at
	}
	return t
}

const taskColumns = `user_id, project_id, helper, level_id, task_id, title, goal, required, completed, completed_at, xp_reward`

// UpsertLevelTasks bulk-creates task rows for a level. Completion state is
// preserved on re-initialization.
func (s *SQLiteStore) UpsertLevelTasks(ctx context.Context, tasks []*domain.HelperLevelTask) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin task upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO helper_level_tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?)
		ON CONFLICT(user_id, project_id, helper, level_id, task_id) DO UPDATE SET
			title = excluded.title,
			goal = excluded.goal,
			required = excluded.required,
			xp_reward = excluded.xp_reward`
	for _, t := range tasks {
		_, err := tx.ExecContext(ctx, query,
			t.UserID, t.ProjectID, string(t.Helper), t.LevelID, t.TaskID,
			t.Title, t.Goal, t.Required, t.XPReward,
		)
		if err != nil {
			return fmt.Errorf("upsert task %s: %w", t.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit task upsert: %w", err)
	}
	return nil
}

// GetTask retrieves a task row by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, userID, projectID, taskID string) (*domain.HelperLevelTask, error) {
	var rows []*taskRow
	query := `SELECT ` + taskColumns + ` FROM helper_level_tasks WHERE user_id = ? AND project_id = ? AND task_id = ?`
	if err := sqlscan.Select(ctx, s.db, &rows, query, userID, projectID, taskID); err != nil {
		return nil, fmt.Errorf("select task: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

// ListLevelTasks lists every task row at a level across all helpers.
func (s *SQLiteStore) ListLevelTasks(ctx context.Context, userID, projectID string, levelID int) ([]*domain.HelperLevelTask, error) {
	var rows []*taskRow
	query := `SELECT ` + taskColumns + ` FROM helper_level_tasks
		WHERE user_id = ? AND project_id = ? AND level_id = ? ORDER BY helper ASC, task_id ASC`
	if err := sqlscan.Select(ctx, s.db, &rows, query, userID, projectID, levelID); err != nil {
		return nil, fmt.Errorf("list level tasks: %w", err)
	}
	return taskRowsToDomain(rows), nil
}

// ListHelperLevelTasks lists one helper's task rows at a level.
func (s *SQLiteStore) ListHelperLevelTasks(ctx context.Context, userID, projectID string, helper domain.Helper, levelID int) ([]*domain.HelperLevelTask, error) {
	var rows []*taskRow
	query := `SELECT ` + taskColumns + ` FROM helper_level_tasks
		WHERE user_id = ? AND project_id = ? AND helper = ? AND level_id = ? ORDER BY task_id ASC`
	if err := sqlscan.Select(ctx, s.db, &rows, query, userID, projectID, string(helper), levelID); err != nil {
		return nil, fmt.Errorf("list helper level tasks: %w", err)
	}
	return taskRowsToDomain(rows), nil
}

func taskRowsToDomain(rows []*taskRow) []*domain.HelperLevelTask {
	tasks := make([]*domain.HelperLevelTask, len(rows))
	for i, r := range rows {
		tasks[i] = r.toDomain()
	}
	return tasks
}

// CompleteTask marks a task completed. The completed = 0 guard makes the
// operation reject repeats instead of silently overwriting.
func (s *SQLiteStore) CompleteTask(ctx context.Context, userID, projectID, taskID string, at time.Time) error {
	query := `
		UPDATE helper_level_tasks SET completed = 1, completed_at = ?
		WHERE user_id = ? AND project_id = ? AND task_id = ? AND completed = 0`
	res, err := s.db.ExecContext(ctx, query, at.Unix(), userID, projectID, taskID)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete task rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTaskAlreadyCompleted
	}
	return nil
}

// InsertTaskEvent appends an immutable completion event.
func (s *SQLiteStore) InsertTaskEvent(ctx context.Context, e *domain.TaskEvent) error {
	query := `
		INSERT INTO task_events (id, user_id, project_id, task_id, xp_awarded, leveled_up, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.ProjectID, e.TaskID, e.XPAwarded, e.LeveledUp, e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert task event: %w", err)
	}
	return nil
}

type taskEventRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	ProjectID string `db:"project_id"`
	TaskID    string `db:"task_id"`
	XPAwarded int    `db:"xp_awarded"`
	LeveledUp bool   `db:"leveled_up"`
	CreatedAt int64  `db:"created_at"`
}

// ListTaskEvents returns completion events for a project, oldest first.
func (s *SQLiteStore) ListTaskEvents(ctx context.Context, userID, projectID string) ([]*domain.TaskEvent, error) {
	var rows []*taskEventRow
	query := `
		SELECT id, user_id, project_id, task_id, xp_awarded, leveled_up, created_at
		FROM task_events WHERE user_id = ? AND project_id = ? ORDER BY created_at ASC, id ASC`
	if err := sqlscan.Select(ctx, s.db, &rows, query, userID, projectID); err != nil {
		return nil, fmt.Errorf("list task events: %w", err)
	}
	events := make([]*domain.TaskEvent, len(rows))
	for i, r := range rows {
		events[i] = &domain.TaskEvent{
			ID:        r.ID,
			UserID:    r.UserID,
			ProjectID: r.ProjectID,
			TaskID:    r.TaskID,
			XPAwarded: r.XPAwarded,
			LeveledUp: r.LeveledUp,
			CreatedAt: time.Unix(r.CreatedAt, 0),
		}
	}
	return events, nil
}
