package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/questline-app/questline/internal/identity"
	"github.com/questline-app/questline/internal/journey"
)

// CompleteTaskRequest marks one task done.
type CompleteTaskRequest struct {
	ProjectID string `json:"projectId" validate:"required"`
	TaskID    string `json:"taskId" validate:"required"`
}

// CompleteTaskResponse reports the award and any level transition.
type CompleteTaskResponse struct {
	Success   bool `json:"success"`
	XPAwarded int  `json:"xpAwarded"`
	LeveledUp bool `json:"leveledUp"`
	NewLevel  int  `json:"newLevel"`
}

// HandleCompleteTask handles POST /api/tasks/complete requests.
func (h *Handler) HandleCompleteTask(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CompleteTaskRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.journeys.CompleteTask(r.Context(), userID, req.ProjectID, req.TaskID)
	if err != nil {
		switch {
		case errors.Is(err, journey.ErrTaskNotFound):
			Error(w, http.StatusNotFound, "task not found")
		case errors.Is(err, journey.ErrTaskAlreadyCompleted):
			Error(w, http.StatusConflict, "Task already completed")
		default:
			slog.Error("failed to complete task", "user_id", userID, "task_id", req.TaskID, "error", err)
			storeError(w, err)
		}
		return
	}

	JSON(w, http.StatusOK, CompleteTaskResponse{
		Success:   true,
		XPAwarded: result.XP,
		LeveledUp: result.LeveledUp,
		NewLevel:  result.NewLevel,
	})
}
