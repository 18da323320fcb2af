// Package coach implements the streaming conversation orchestrator: it
// resolves backend threads, builds outbound prompts, and re-emits the
// completion backend's output as a normalized typed event stream.
package coach

import "encoding/json"

// EventType discriminates stream events on the wire.
type EventType string

const (
	EventThreadID   EventType = "thread_id"
	EventText       EventType = "text"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is one element of the normalized stream. A well-formed sequence
// starts with exactly one thread_id event and ends with exactly one of
// done or error; a cancelled sequence may end without either.
type Event struct {
	Type       EventType       `json:"type"`
	ThreadID   string          `json:"thread_id,omitempty"`
	Content    string          `json:"content,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	ToolArgs   json.RawMessage `json:"tool_args,omitempty"`
	ToolResult json.RawMessage `json:"tool_result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func threadEvent(threadID string) *Event {
	return &Event{Type: EventThreadID, ThreadID: threadID}
}

func textEvent(content string) *Event {
	return &Event{Type: EventText, Content: content}
}

func toolCallEvent(name string, args json.RawMessage) *Event {
	return &Event{Type: EventToolCall, ToolName: name, ToolArgs: args}
}

func doneEvent() *Event {
	return &Event{Type: EventDone}
}

func errorEvent(msg string) *Event {
	return &Event{Type: EventError, Error: msg}
}
