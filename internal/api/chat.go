package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/questline-app/questline/internal/coach"
	"github.com/questline-app/questline/internal/domain"
	"github.com/questline-app/questline/internal/identity"
	"github.com/questline-app/questline/internal/synchro"
)

// historyWindow bounds how much transcript is replayed to the stateless backend.
const historyWindow = 20

// ChatContextSection is a client-supplied prior-helper context block. When
// present it skips the server-side context fetch.
type ChatContextSection struct {
	Helper   string   `json:"helper"`
	Insights []string `json:"insights"`
	Summary  string   `json:"summary"`
}

// ChatRequest starts or continues a helper conversation.
type ChatRequest struct {
	Helper       string               `json:"helper" validate:"required"`
	Message      string               `json:"message"`
	ThreadID     string               `json:"threadId"`
	ProjectID    string               `json:"projectId" validate:"required"`
	ProjectName  string               `json:"projectName"`
	StartJourney bool                 `json:"startJourney"`
	Context      []ChatContextSection `json:"context"`
}

// HandleChat handles POST /api/chat requests and streams normalized events
// back as server-sent data frames.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChatRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	helper, err := domain.ParseHelper(req.Helper)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.StartJourney && req.Message == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	session, err := h.resolveSession(r, userID, req.ProjectID, helper)
	if err != nil {
		slog.Error("failed to resolve chat session", "user_id", userID, "error", err)
		storeError(w, err)
		return
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = session.ThreadID
	}

	prior, err := h.resolvePrior(r, userID, req.ProjectID, helper, req.Context)
	if err != nil {
		slog.Error("failed to load prior context", "user_id", userID, "error", err)
		storeError(w, err)
		return
	}

	level := 1
	if jny, err := h.repo.GetJourney(r.Context(), userID, req.ProjectID); err != nil {
		slog.Warn("failed to load journey, defaulting to level 1", "user_id", userID, "project_id", req.ProjectID, "error", err)
	} else if jny != nil {
		level = jny.CurrentLevel
	}

	history, err := h.recentHistory(r, session.ID)
	if err != nil {
		slog.Warn("failed to load history, continuing without", "session_id", session.ID, "error", err)
	}

	projectName := req.ProjectName
	if projectName == "" {
		projectName = req.ProjectID
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	slog.Info("chat stream started",
		"user_id", userID,
		"project_id", req.ProjectID,
		"helper", helper,
		"start_journey", req.StartJourney,
		"thread_id", threadID,
	)

	for ev, err := range h.orch.Stream(r.Context(), coach.Request{
		Helper:       helper,
		ProjectName:  projectName,
		Level:        level,
		Message:      req.Message,
		StartJourney: req.StartJourney,
		ThreadID:     threadID,
		Prior:        prior,
		History:      history,
	}) {
		if err != nil {
			// Transport-level failure; emit a terminal error frame if possible.
			slog.Error("chat stream failed", "user_id", userID, "error", err)
			writeEvent(w, &coach.Event{Type: coach.EventError, Error: "stream failed"})
			flusher.Flush()
			return
		}

		if ev.Type == coach.EventThreadID && session.ThreadID == "" && ev.ThreadID != "" {
			// Best-effort: losing this write only costs a thread re-create.
			if err := h.repo.SetSessionThread(r.Context(), session.ID, ev.ThreadID); err != nil {
				slog.Warn("failed to persist session thread", "session_id", session.ID, "error", err)
			}
			session.ThreadID = ev.ThreadID
		}

		if err := writeEvent(w, ev); err != nil {
			slog.Warn("client disconnected mid-stream", "session_id", session.ID, "error", err)
			return
		}
		flusher.Flush()
	}
}

func (h *Handler) resolveSession(r *http.Request, userID, projectID string, helper domain.Helper) (*domain.ChatSession, error) {
	session, err := h.repo.GetSessionByKey(r.Context(), userID, projectID, helper)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	now := time.Now()
	session = &domain.ChatSession{
		ID:            uuid.NewString(),
		UserID:        userID,
		ProjectID:     projectID,
		Helper:        helper,
		LastMessageAt: now,
		CreatedAt:     now,
	}
	if err := h.repo.InsertSession(r.Context(), session); err != nil {
		return nil, err
	}
	return session, nil
}

// resolvePrior uses client-supplied context when given, otherwise fetches
// and gates the stored knowledge base. Supplied sections go through the same
// relevance gate and insight cap as stored ones.
func (h *Handler) resolvePrior(r *http.Request, userID, projectID string, helper domain.Helper, supplied []ChatContextSection) ([]synchro.PriorSection, error) {
	if len(supplied) > 0 {
		sections := make([]synchro.PriorSection, 0, len(supplied))
		for _, s := range supplied {
			prior, err := domain.ParseHelper(s.Helper)
			if err != nil {
				continue
			}
			sections = append(sections, synchro.PriorSection{
				Helper:   prior,
				Insights: s.Insights,
				Summary:  s.Summary,
			})
		}
		return synchro.GateSections(h.cat, helper, sections), nil
	}

	contexts, err := h.repo.ListHelperContexts(r.Context(), userID, projectID)
	if err != nil {
		return nil, err
	}
	return synchro.PriorSections(h.cat, helper, contexts), nil
}

func (h *Handler) recentHistory(r *http.Request, sessionID string) ([]domain.ConversationTurn, error) {
	messages, err := h.repo.ListMessages(r.Context(), sessionID)
	if err != nil {
		return nil, err
	}
	if len(messages) > historyWindow {
		messages = messages[len(messages)-historyWindow:]
	}
	turns := make([]domain.ConversationTurn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, domain.ConversationTurn{Role: m.Role, Content: m.Content})
	}
	return turns, nil
}

// writeEvent writes one stream event as a data frame.
func writeEvent(w http.ResponseWriter, ev *coach.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
