// Package api provides HTTP handlers for the Questline API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/questline-app/questline/internal/catalog"
	"github.com/questline-app/questline/internal/coach"
	"github.com/questline-app/questline/internal/config"
	"github.com/questline-app/questline/internal/journey"
	"github.com/questline-app/questline/internal/shared"
	"github.com/questline-app/questline/internal/store"
	"github.com/questline-app/questline/internal/synchro"
)

// Handler provides the HTTP surface over the coaching services.
type Handler struct {
	repo     store.Repository
	cat      *catalog.Catalog
	orch     *coach.Orchestrator
	synchro  *synchro.Service
	journeys *journey.Service
	cfg      *config.Config
	validate *validator.Validate
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, cat *catalog.Catalog, orch *coach.Orchestrator, sync *synchro.Service, journeys *journey.Service, cfg *config.Config) *Handler {
	return &Handler{
		repo:     repo,
		cat:      cat,
		orch:     orch,
		synchro:  sync,
		journeys: journeys,
		cfg:      cfg,
		validate: validator.New(),
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)
		r.Post("/chat", h.HandleChat)
		r.Get("/sessions", h.HandleListSessions)
		r.Post("/sessions/{sessionID}/messages", h.HandleAppendMessage)
		r.Post("/tasks/complete", h.HandleCompleteTask)
		r.Post("/journey/init", h.HandleJourneyInit)
		r.Get("/journey", h.HandleJourneyStatus)
		r.Post("/context/extract", h.HandleExtractContext)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeAndValidate reads a bounded JSON body into v and applies validation tags.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Stream.MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			Error(w, http.StatusBadRequest, verrs[0].Field()+" is required")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

// storeError maps persistence failures to responses, surfacing SQLite
// contention as a retryable status instead of a generic 500.
func storeError(w http.ResponseWriter, err error) {
	if shared.IsSQLiteConflictError(err) {
		Error(w, http.StatusServiceUnavailable, "storage busy, retry shortly")
		return
	}
	Error(w, http.StatusInternalServerError, "internal error")
}
