package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/questline-app/questline/internal/domain"
)

type sessionRow struct {
	ID            string         `db:"id"`
	UserID        string         `db:"user_id"`
	ProjectID     string         `db:"project_id"`
	Helper        string         `db:"helper"`
	ThreadID      sql.NullString `db:"thread_id"`
	Title         sql.NullString `db:"title"`
	Preview       sql.NullString `db:"preview"`
	LastMessageAt int64          `db:"last_message_at"`
	CreatedAt     int64          `db:"created_at"`
}

func (r *sessionRow) toDomain() *domain.ChatSession {
	return &domain.ChatSession{
		ID:            r.ID,
		UserID:        r.UserID,
		ProjectID:     r.ProjectID,
		Helper:        domain.Helper(r.Helper),
		ThreadID:      r.ThreadID.String,
		Title:         r.Title.String,
		Preview:       r.Preview.String,
		LastMessageAt: time.Unix(r.LastMessageAt, 0),
		CreatedAt:     time.Unix(r.CreatedAt, 0),
	}
}

const sessionColumns = `id, user_id, project_id, helper, thread_id, title, preview, last_message_at, created_at`

// GetSession retrieves a chat session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	var rows []*sessionRow
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id = ?`
	if err := sqlscan.Select(ctx, s.db, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

// GetSessionByKey retrieves the session for one (user, project, helper).
func (s *SQLiteStore) GetSessionByKey(ctx context.Context, userID, projectID string, helper domain.Helper) (*domain.ChatSession, error) {
	var rows []*sessionRow
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE user_id = ? AND project_id = ? AND helper = ?`
	if err := sqlscan.Select(ctx, s.db, &rows, query, userID, projectID, string(helper)); err != nil {
		return nil, fmt.Errorf("select session by key: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

// InsertSession creates a new chat session.
func (s *SQLiteStore) InsertSession(ctx context.Context, sess *domain.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (id, user_id, project_id, helper, thread_id, title, preview, last_message_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		sess.ID, sess.UserID, sess.ProjectID, string(sess.Helper),
		nullIfEmpty(sess.ThreadID), nullIfEmpty(sess.Title), nullIfEmpty(sess.Preview),
		sess.LastMessageAt.Unix(), sess.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// SetSessionThread records the backend thread owned by a session.
func (s *SQLiteStore) SetSessionThread(ctx context.Context, sessionID, threadID string) error {
	query := `UPDATE chat_sessions SET thread_id = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, threadID, sessionID); err != nil {
		return fmt.Errorf("set session thread: %w", err)
	}
	return nil
}

// ListSessions lists sessions for a project, most recent activity first.
func (s *SQLiteStore) ListSessions(ctx context.Context, userID, projectID string) ([]*domain.ChatSession, error) {
	var rows []*sessionRow
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions
		WHERE user_id = ? AND project_id = ? ORDER BY last_message_at DESC`
	if err := sqlscan.Select(ctx, s.db, &rows, query, userID, projectID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions := make([]*domain.ChatSession, len(rows))
	for i, r := range rows {
		sessions[i] = r.toDomain()
	}
	return sessions, nil
}

type messageRow struct {
	ID         string         `db:"id"`
	SessionID  string         `db:"session_id"`
	Role       string         `db:"role"`
	Content    string         `db:"content"`
	ToolCall   sql.NullString `db:"tool_call"`
	ToolResult sql.NullString `db:"tool_result"`
	CreatedAt  int64          `db:"created_at"`
}

func (r *messageRow) toDomain() *domain.Message {
	m := &domain.Message{
		ID:        r.ID,
		SessionID: r.SessionID,
		Role:      r.Role,
		Content:   r.Content,
		CreatedAt: time.Unix(r.CreatedAt, 0),
	}
	if r.ToolCall.Valid {
		m.ToolCall = &r.ToolCall.String
	}
	if r.ToolResult.Valid {
		m.ToolResult = &r.ToolResult.String
	}
	return m
}

// InsertMessage appends a message to the session log and refreshes the
// session's denormalized listing fields. The insert is the primary write;
// the session update is best-effort and only logged on failure.
func (s *SQLiteStore) InsertMessage(ctx context.Context, m *domain.Message) error {
	query := `
		INSERT INTO messages (id, session_id, role, content, tool_call, tool_result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	var toolCall, toolResult any
	if m.ToolCall != nil {
		toolCall = *m.ToolCall
	}
	if m.ToolResult != nil {
		toolResult = *m.ToolResult
	}
	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.SessionID, m.Role, m.Content, toolCall, toolResult, m.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	s.refreshSessionDenorm(ctx, m)
	return nil
}

// refreshSessionDenorm updates last_message_at always, preview from the
// first content recorded, and title from the first user message.
func (s *SQLiteStore) refreshSessionDenorm(ctx context.Context, m *domain.Message) {
	query := `UPDATE chat_sessions SET last_message_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, m.CreatedAt.Unix(), m.SessionID); err != nil {
		slog.Warn("failed to update session timestamp", "session_id", m.SessionID, "error", err)
	}

	if m.Content == "" {
		return
	}

	preview := `UPDATE chat_sessions SET preview = ? WHERE id = ? AND (preview IS NULL OR preview = '')`
	if _, err := s.db.ExecContext(ctx, preview, domain.DerivePreview(m.Content), m.SessionID); err != nil {
		slog.Warn("failed to update session preview", "session_id", m.SessionID, "error", err)
	}

	if m.Role != domain.RoleUser {
		return
	}
	title := `UPDATE chat_sessions SET title = ? WHERE id = ? AND (title IS NULL OR title = '')`
	if _, err := s.db.ExecContext(ctx, title, domain.DeriveTitle(m.Content), m.SessionID); err != nil {
		slog.Warn("failed to update session title", "session_id", m.SessionID, "error", err)
	}
}

// ListMessages returns a session's messages ordered by creation time.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	var rows []*messageRow
	query := `
		SELECT id, session_id, role, content, tool_call, tool_result, created_at
		FROM messages WHERE session_id = ? ORDER BY created_at ASC, id ASC`
	if err := sqlscan.Select(ctx, s.db, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	messages := make([]*domain.Message, len(rows))
	for i, r := range rows {
		messages[i] = r.toDomain()
	}
	return messages, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
