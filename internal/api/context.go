package api

import (
	"log/slog"
	"net/http"

	"github.com/questline-app/questline/internal/domain"
	"github.com/questline-app/questline/internal/identity"
)

// ExtractContextRequest submits a transcript segment for knowledge extraction.
type ExtractContextRequest struct {
	ProjectID   string                    `json:"projectId" validate:"required"`
	ProjectName string                    `json:"projectName"`
	Helper      string                    `json:"helper" validate:"required"`
	Turns       []domain.ConversationTurn `json:"turns" validate:"required,min=1"`
}

// ExtractContextResponse returns the merged row and the delta that produced it.
type ExtractContextResponse struct {
	Context *domain.HelperContext `json:"context"`
	Delta   *domain.ContextDelta  `json:"delta"`
}

// HandleExtractContext handles POST /api/context/extract requests.
// Extraction failures are absorbed upstream: the response always carries
// the current stored context, with an empty delta in the degraded case.
func (h *Handler) HandleExtractContext(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ExtractContextRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	helper, err := domain.ParseHelper(req.Helper)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	projectName := req.ProjectName
	if projectName == "" {
		projectName = req.ProjectID
	}

	merged, delta, err := h.synchro.Sync(r.Context(), userID, req.ProjectID, projectName, helper, req.Turns)
	if err != nil {
		slog.Error("context sync failed", "user_id", userID, "helper", helper, "error", err)
		storeError(w, err)
		return
	}

	JSON(w, http.StatusOK, ExtractContextResponse{Context: merged, Delta: delta})
}
