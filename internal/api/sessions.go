package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/questline-app/questline/internal/domain"
	"github.com/questline-app/questline/internal/identity"
)

// HandleListSessions handles GET /api/sessions?projectId= requests. Sessions
// are ordered by most recent activity; each carries its derived title and
// preview for listing without loading messages.
func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
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

	sessions, err := h.repo.ListSessions(r.Context(), userID, projectID)
	if err != nil {
		slog.Error("failed to list sessions", "user_id", userID, "project_id", projectID, "error", err)
		storeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*domain.ChatSession{}
	}

	JSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// AppendMessageRequest appends one message to a session's ledger.
type AppendMessageRequest struct {
	Role       string  `json:"role" validate:"required,oneof=user assistant"`
	Content    string  `json:"content" validate:"required"`
	ToolCall   *string `json:"toolCall"`
	ToolResult *string `json:"toolResult"`
}

// HandleAppendMessage handles POST /api/sessions/{sessionID}/messages requests.
// The client drives persistence; streaming never writes the ledger itself.
func (h *Handler) HandleAppendMessage(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		Error(w, http.StatusBadRequest, "session id is required")
		return
	}

	var req AppendMessageRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.repo.GetSession(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to load session", "session_id", sessionID, "error", err)
		storeError(w, err)
		return
	}
	// Foreign sessions look identical to missing ones.
	if session == nil || session.UserID != userID {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	msg := &domain.Message{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Role:       req.Role,
		Content:    req.Content,
		ToolCall:   req.ToolCall,
		ToolResult: req.ToolResult,
		CreatedAt:  time.Now(),
	}
	if err := h.repo.InsertMessage(r.Context(), msg); err != nil {
		slog.Error("failed to append message", "session_id", sessionID, "error", err)
		storeError(w, err)
		return
	}

	JSON(w, http.StatusCreated, msg)
}
