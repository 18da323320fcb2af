package journey

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/questline-app/questline/internal/catalog"
	"github.com/questline-app/questline/internal/domain"
	"github.com/questline-app/questline/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	cat, err := catalog.Load("")
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, repo.UpsertUser(context.Background(), &domain.User{
		UserID: "u1", Username: "founder", CurrentLevel: 1,
		LastSeenAt: now, CreatedAt: now, UpdatedAt: now,
	}))

	return NewService(repo, cat), repo
}

func TestInitLevelCreatesTasks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	progress, tasks, err := svc.InitLevel(ctx, "u1", "p1", domain.HelperMuse, 1)
	require.NoError(t, err)
	require.Equal(t, 1, progress.LevelID)
	require.Equal(t, domain.HelperMuse, progress.Helper)
	require.Len(t, tasks, 4)

	byID := map[string]*domain.HelperLevelTask{}
	for _, task := range tasks {
		byID[task.TaskID] = task
	}
	dp := byID["define-problem"]
	require.NotNil(t, dp)
	require.Equal(t, "Define Problem", dp.Title)
	require.True(t, dp.Required)
	require.Equal(t, domain.DefaultTaskXP, dp.XPReward)
	require.NotEmpty(t, dp.Goal)

	opt := byID["name-your-project"]
	require.NotNil(t, opt)
	require.False(t, opt.Required)
}

func TestInitLevelUnknownStep(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.InitLevel(context.Background(), "u1", "p1", domain.HelperMuse, 3)
	require.ErrorIs(t, err, ErrStepNotFound)
}

func TestCompleteTaskAwardsXP(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.InitLevel(ctx, "u1", "p1", domain.HelperMuse, 1)
	require.NoError(t, err)

	result, err := svc.CompleteTask(ctx, "u1", "p1", "define-problem")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultTaskXP, result.XP)
	require.False(t, result.LeveledUp)
	require.Equal(t, 1, result.NewLevel)

	jny, err := repo.GetJourney(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultTaskXP, jny.XP)

	user, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultTaskXP, user.TotalXP)

	events, err := repo.ListTaskEvents(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "define-problem", events[0].TaskID)
}

func TestCompleteTaskAccumulatesJourneyXP(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// XP already on the row must survive later awards: completions add to
	// the stored value rather than writing back a snapshot.
	require.NoError(t, repo.UpsertJourney(ctx, &domain.Journey{
		UserID: "u1", ProjectID: "p1", CurrentLevel: 1, XP: 7,
	}))

	_, _, err := svc.InitLevel(ctx, "u1", "p1", domain.HelperMuse, 1)
	require.NoError(t, err)

	for _, id := range []string{"define-problem", "identify-audience"} {
		_, err := svc.CompleteTask(ctx, "u1", "p1", id)
		require.NoError(t, err)
	}

	jny, err := repo.GetJourney(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Equal(t, 7+2*domain.DefaultTaskXP, jny.XP)
}

func TestCompleteTaskRepeatIsConflict(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.InitLevel(ctx, "u1", "p1", domain.HelperMuse, 1)
	require.NoError(t, err)

	_, err = svc.CompleteTask(ctx, "u1", "p1", "define-problem")
	require.NoError(t, err)

	_, err = svc.CompleteTask(ctx, "u1", "p1", "define-problem")
	require.ErrorIs(t, err, ErrTaskAlreadyCompleted)

	// No double award and no extra event.
	user, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultTaskXP, user.TotalXP)

	events, err := repo.ListTaskEvents(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestCompleteTaskUnknownTask(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CompleteTask(context.Background(), "u1", "p1", "no-such-task")
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestLevelUpRequiresAllRequiredTasks(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.InitLevel(ctx, "u1", "p1", domain.HelperMuse, 1)
	require.NoError(t, err)

	// Two of three required tasks: no transition yet.
	for _, id := range []string{"define-problem", "identify-audience"} {
		result, err := svc.CompleteTask(ctx, "u1", "p1", id)
		require.NoError(t, err)
		require.False(t, result.LeveledUp)
	}

	// Third required task fires the level-up; the optional one is not needed.
	result, err := svc.CompleteTask(ctx, "u1", "p1", "sketch-value-prop")
	require.NoError(t, err)
	require.True(t, result.LeveledUp)
	require.Equal(t, 2, result.NewLevel)

	jny, err := repo.GetJourney(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Equal(t, 2, jny.CurrentLevel)
	require.Equal(t, 0, jny.XP, "per-level XP resets on transition")

	user, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, user.CurrentLevel, "user mirror follows the journey level")
	require.Equal(t, 3*domain.DefaultTaskXP, user.TotalXP, "lifetime XP never resets")
}

func TestNoLevelUpWithoutRequiredTasks(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// A level whose task set is entirely optional can never advance.
	require.NoError(t, repo.UpsertLevelTasks(ctx, []*domain.HelperLevelTask{{
		UserID: "u1", ProjectID: "p1", Helper: domain.HelperMuse, LevelID: 1,
		TaskID: "optional-only", Title: "Optional Only", Goal: "g",
		Required: false, XPReward: 10,
	}}))

	result, err := svc.CompleteTask(ctx, "u1", "p1", "optional-only")
	require.NoError(t, err)
	require.False(t, result.LeveledUp)
	require.Equal(t, 1, result.NewLevel)
}

func TestNoLevelUpPastCeiling(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertJourney(ctx, &domain.Journey{
		UserID: "u1", ProjectID: "p1", CurrentLevel: domain.MaxLevel, XP: 0,
	}))

	_, _, err := svc.InitLevel(ctx, "u1", "p1", domain.HelperSteward, domain.MaxLevel)
	require.NoError(t, err)

	var last *CompletionResult
	for _, id := range []string{"pick-revenue-model", "set-monthly-budget"} {
		last, err = svc.CompleteTask(ctx, "u1", "p1", id)
		require.NoError(t, err)
	}
	require.False(t, last.LeveledUp)
	require.Equal(t, domain.MaxLevel, last.NewLevel)
}
