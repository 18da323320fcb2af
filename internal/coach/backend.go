package coach

import (
	"context"
	"iter"

	"github.com/questline-app/questline/internal/domain"
)

// TurnRequest is one conversational turn submitted to a backend.
type TurnRequest struct {
	// ThreadID scopes the turn to a backend conversation. The stateless
	// backend ignores it beyond echoing; the thread backend requires it.
	ThreadID string
	// System carries instructions and synchronized cross-helper context.
	System string
	// Prompt is the outbound user-role content for this turn.
	Prompt string
	// History is the recent transcript, oldest first. Only the stateless
	// backend consumes it; the thread backend holds history server-side.
	History []domain.ConversationTurn
}

// Backend is the completion capability behind the orchestrator. The two
// implementations (stateful threads, stateless completion) are chosen once
// at startup by configuration.
//
// Stream yields content events (text, tool_call, tool_result) and returns;
// terminal done/error events are the orchestrator's responsibility. A
// backend must never run two turns concurrently on the same thread.
type Backend interface {
	// CreateThread allocates a new conversation thread identifier.
	CreateThread(ctx context.Context) (string, error)

	// Stream submits one turn and yields its output incrementally.
	Stream(ctx context.Context, turn TurnRequest) iter.Seq2[*Event, error]

	// Close releases backend resources.
	Close()
}
