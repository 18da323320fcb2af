// Package journey implements the task and level progression state machine.
// Level transitions are gated by required-task completion, never by
// accumulated XP, and per-level XP is discarded on transition.
package journey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/questline-app/questline/internal/catalog"
	"github.com/questline-app/questline/internal/domain"
	"github.com/questline-app/questline/internal/store"
)

// ErrTaskNotFound is returned when the task row does not exist for the caller.
var ErrTaskNotFound = errors.New("task not found")

// ErrTaskAlreadyCompleted mirrors the store sentinel at the service boundary.
var ErrTaskAlreadyCompleted = store.ErrTaskAlreadyCompleted

// ErrStepNotFound is returned when the catalog has no step for a
// (helper, level) pair.
var ErrStepNotFound = errors.New("no catalog step for helper at level")

// Service drives journey initialization and task completion.
type Service struct {
	repo     store.Repository
	cat      *catalog.Catalog
	maxLevel int
}

// NewService creates a progression service.
func NewService(repo store.Repository, cat *catalog.Catalog) *Service {
	return &Service{repo: repo, cat: cat, maxLevel: domain.MaxLevel}
}

// CompletionResult reports the outcome of a task completion.
type CompletionResult struct {
	XPAwarded bool `json:"-"`
	XP        int  `json:"xp_awarded"`
	LeveledUp bool `json:"leveled_up"`
	NewLevel  int  `json:"new_level"`
}

// InitLevel upserts the per-helper progress row and bulk-creates the task
// rows for one level, with titles and goals resolved from the catalog.
// Re-initializing an already started level preserves completion state.
func (s *Service) InitLevel(ctx context.Context, userID, projectID string, helper domain.Helper, levelID int) (*domain.JourneyProgress, []*domain.HelperLevelTask, error) {
	step, ok := s.cat.StepForHelperLevel(helper, levelID)
	if !ok {
		return nil, nil, ErrStepNotFound
	}

	progress := &domain.JourneyProgress{
		UserID:    userID,
		ProjectID: projectID,
		LevelID:   levelID,
		Helper:    helper,
	}
	if err := s.repo.UpsertJourneyProgress(ctx, progress); err != nil {
		return nil, nil, fmt.Errorf("upsert journey progress: %w", err)
	}

	rows := make([]*domain.HelperLevelTask, 0, len(step.Tasks))
	for _, t := range step.Tasks {
		rows = append(rows, &domain.HelperLevelTask{
			UserID:    userID,
			ProjectID: projectID,
			Helper:    helper,
			LevelID:   levelID,
			TaskID:    t.ID,
			Title:     catalog.TaskTitle(t.ID),
			Goal:      catalog.TaskGoal(t.ID),
			Required:  t.Required,
			XPReward:  t.XP,
		})
	}
	if err := s.repo.UpsertLevelTasks(ctx, rows); err != nil {
		return nil, nil, fmt.Errorf("create level tasks: %w", err)
	}

	tasks, err := s.repo.ListHelperLevelTasks(ctx, userID, projectID, helper, levelID)
	if err != nil {
		return nil, nil, fmt.Errorf("list level tasks: %w", err)
	}
	return progress, tasks, nil
}

// CompleteTask marks a task done, awards its XP to the project journey and
// the user-wide total, records the completion event, and evaluates level-up.
// Completing an already-completed task is a conflict, not a no-op.
func (s *Service) CompleteTask(ctx context.Context, userID, projectID, taskID string) (*CompletionResult, error) {
	task, err := s.repo.GetTask(ctx, userID, projectID, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	now := time.Now()
	if err := s.repo.CompleteTask(ctx, userID, projectID, taskID, now); err != nil {
		// ErrTaskAlreadyCompleted passes through for the handler to map to 409.
		return nil, err
	}

	// Both XP awards are relative updates so concurrent completions on the
	// same journey cannot lose each other's increments.
	if err := s.repo.AddJourneyXP(ctx, userID, projectID, task.XPReward); err != nil {
		return nil, fmt.Errorf("award journey xp: %w", err)
	}
	if err := s.repo.AddUserXP(ctx, userID, task.XPReward); err != nil {
		return nil, fmt.Errorf("award user xp: %w", err)
	}

	jny, err := s.repo.GetJourney(ctx, userID, projectID)
	if err != nil {
		return nil, fmt.Errorf("load journey: %w", err)
	}

	leveledUp, err := s.evaluateLevelUp(ctx, userID, projectID, jny)
	if err != nil {
		return nil, err
	}
	if leveledUp {
		// Level transitions write absolute state: the new level with its
		// per-level XP reset to zero.
		if err := s.repo.UpsertJourney(ctx, jny); err != nil {
			return nil, fmt.Errorf("save journey: %w", err)
		}
	}

	event := &domain.TaskEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProjectID: projectID,
		TaskID:    taskID,
		XPAwarded: task.XPReward,
		LeveledUp: leveledUp,
		CreatedAt: now,
	}
	if err := s.repo.InsertTaskEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("record task event: %w", err)
	}

	slog.Info("task completed",
		"user_id", userID,
		"project_id", projectID,
		"task_id", taskID,
		"xp", task.XPReward,
		"leveled_up", leveledUp,
	)

	return &CompletionResult{
		XPAwarded: true,
		XP:        task.XPReward,
		LeveledUp: leveledUp,
		NewLevel:  jny.CurrentLevel,
	}, nil
}

// evaluateLevelUp fires iff every required task at the current level is
// completed and the required set is non-empty. On fire the level increments
// by one up to the ceiling and per-level XP resets to zero.
func (s *Service) evaluateLevelUp(ctx context.Context, userID, projectID string, jny *domain.Journey) (bool, error) {
	tasks, err := s.repo.ListLevelTasks(ctx, userID, projectID, jny.CurrentLevel)
	if err != nil {
		return false, fmt.Errorf("list level tasks: %w", err)
	}

	required := 0
	completed := 0
	for _, t := range tasks {
		if !t.Required {
			continue
		}
		required++
		if t.Completed {
			completed++
		}
	}
	if required == 0 || completed < required {
		return false, nil
	}
	if jny.CurrentLevel >= s.maxLevel {
		return false, nil
	}

	jny.CurrentLevel++
	jny.XP = 0
	if err := s.repo.SetUserLevel(ctx, userID, jny.CurrentLevel); err != nil {
		return false, fmt.Errorf("mirror user level: %w", err)
	}

	slog.Info("level up",
		"user_id", userID,
		"project_id", projectID,
		"new_level", jny.CurrentLevel,
	)
	return true, nil
}
