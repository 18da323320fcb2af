package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/questline-app/questline/internal/domain"
	"github.com/questline-app/questline/internal/identity"
	"github.com/questline-app/questline/internal/journey"
)

// JourneyInitRequest initializes one helper's tasks at a level.
type JourneyInitRequest struct {
	ProjectID string `json:"projectId" validate:"required"`
	Helper    string `json:"helper" validate:"required"`
	LevelID   int    `json:"levelId" validate:"required"`
}

// JourneyInitResponse returns the progress row and the created task list.
type JourneyInitResponse struct {
	Progress *domain.JourneyProgress   `json:"progress"`
	Tasks    []*domain.HelperLevelTask `json:"tasks"`
}

// HandleJourneyInit handles POST /api/journey/init requests.
func (h *Handler) HandleJourneyInit(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req JourneyInitRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	helper, err := domain.ParseHelper(req.Helper)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	progress, tasks, err := h.journeys.InitLevel(r.Context(), userID, req.ProjectID, helper, req.LevelID)
	if err != nil {
		if errors.Is(err, journey.ErrStepNotFound) {
			Error(w, http.StatusNotFound, "no step for helper at this level")
			return
		}
		slog.Error("failed to initialize level", "user_id", userID, "helper", helper, "level", req.LevelID, "error", err)
		storeError(w, err)
		return
	}

	JSON(w, http.StatusOK, JourneyInitResponse{Progress: progress, Tasks: tasks})
}

// JourneyStatusResponse aggregates the project journey with its tasks,
// per-helper progress, and the completion event log.
type JourneyStatusResponse struct {
	Journey  *domain.Journey           `json:"journey"`
	Tasks    []*domain.HelperLevelTask `json:"tasks"`
	Progress []*domain.JourneyProgress `json:"progress"`
	Events   []*domain.TaskEvent       `json:"events"`
}

// HandleJourneyStatus handles GET /api/journey?projectId= requests.
func (h *Handler) HandleJourneyStatus(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		Error(w, http.StatusBadRequest, "projectId is required")
		return
	}

	jny, err := h.repo.GetJourney(r.Context(), userID, projectID)
	if err != nil {
		slog.Error("failed to load journey", "user_id", userID, "project_id", projectID, "error", err)
		storeError(w, err)
		return
	}
	if jny == nil {
		jny = &domain.Journey{
			UserID:       userID,
			ProjectID:    projectID,
			CurrentLevel: 1,
		}
	}

	tasks, err := h.repo.ListLevelTasks(r.Context(), userID, projectID, jny.CurrentLevel)
	if err != nil {
		slog.Error("failed to list level tasks", "user_id", userID, "project_id", projectID, "error", err)
		storeError(w, err)
		return
	}

	progress, err := h.repo.ListJourneyProgress(r.Context(), userID, projectID)
	if err != nil {
		slog.Error("failed to list journey progress", "user_id", userID, "project_id", projectID, "error", err)
		storeError(w, err)
		return
	}

	events, err := h.repo.ListTaskEvents(r.Context(), userID, projectID)
	if err != nil {
		slog.Error("failed to list task events", "user_id", userID, "project_id", projectID, "error", err)
		storeError(w, err)
		return
	}

	JSON(w, http.StatusOK, JourneyStatusResponse{
		Journey:  jny,
		Tasks:    tasks,
		Progress: progress,
		Events:   events,
	})
}
