package domain

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one role/content pair of a transcript, ordered oldest first.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message is an immutable chat message owned by a session.
type Message struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	ToolCall   *string   `json:"tool_call,omitempty"`   // JSON-encoded tool invocation
	ToolResult *string   `json:"tool_result,omitempty"` // JSON-encoded tool/search result
	CreatedAt  time.Time `json:"created_at"`
}

// ChatSession groups messages for one (user, project, helper).
type ChatSession struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ProjectID     string    `json:"project_id"`
	Helper        Helper    `json:"helper"`
	ThreadID      string    `json:"thread_id,omitempty"`
	Title         string    `json:"title,omitempty"`
	Preview       string    `json:"preview,omitempty"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	sessionTitleMax   = 50
	sessionPreviewMax = 100
)

// DeriveTitle truncates the first user message into a listing title.
func DeriveTitle(content string) string {
	return truncateRunes(content, sessionTitleMax)
}

// DerivePreview truncates the first message content into a listing preview.
func DerivePreview(content string) string {
	return truncateRunes(content, sessionPreviewMax)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
