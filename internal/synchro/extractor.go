package synchro

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/questline-app/questline/internal/domain"
)

// Completer is the single-shot completion capability the extractor needs.
// It is satisfied by the stateless completion backend.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ExtractionRequest carries one transcript to extract insights from.
type ExtractionRequest struct {
	Helper      domain.Helper
	ProjectName string
	Turns       []domain.ConversationTurn
	Existing    *domain.HelperContext
}

// Extractor turns a conversation transcript into a structured context delta.
type Extractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (*domain.ContextDelta, error)
}

// LLMExtractor implements Extractor on top of a completion backend asked
// for strict JSON output.
type LLMExtractor struct {
	completer Completer
}

// NewLLMExtractor creates an extractor backed by the given completer.
func NewLLMExtractor(c Completer) *LLMExtractor {
	return &LLMExtractor{completer: c}
}

const extractSystemPrompt = `You extract structured facts from a coaching conversation.
Respond with a single JSON object and nothing else. Schema:
{
  "key_insights": [string],
  "decisions_made": [string],
  "artifacts_created": [string],
  "context_summary": string,
  "data": object,
  "superseded_insights": [string],
  "superseded_decisions": [string]
}
key_insights: new facts learned about the project in this conversation.
decisions_made: concrete choices the founder committed to.
artifacts_created: things produced (documents, code, plans).
context_summary: 2-3 sentences describing the CURRENT state of this workstream, not its history.
superseded_insights/superseded_decisions: previously stored entries (quoted exactly) that this conversation invalidated.
Omit nothing from the schema; use empty arrays and strings when there is nothing to report.`

// Extract prompts the backend and parses its JSON reply. Any transport or
// parse failure is returned to the caller, which treats it as a no-op delta.
func (e *LLMExtractor) Extract(ctx context.Context, req ExtractionRequest) (*domain.ContextDelta, error) {
	prompt, err := buildExtractionPrompt(req)
	if err != nil {
		return nil, err
	}

	raw, err := e.completer.Complete(ctx, extractSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("extraction completion: %w", err)
	}

	var delta domain.ContextDelta
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &delta); err != nil {
		return nil, fmt.Errorf("parse extraction output: %w", err)
	}
	return &delta, nil
}

func buildExtractionPrompt(req ExtractionRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\nHelper role: %s\n\n", req.ProjectName, req.Helper.DisplayName())

	if req.Existing != nil {
		snapshot, err := json.Marshal(map[string]any{
			"key_insights":   req.Existing.KeyInsights,
			"decisions_made": req.Existing.DecisionsMade,
			"summary":        req.Existing.ContextSummary,
		})
		if err != nil {
			return "", fmt.Errorf("encode existing context: %w", err)
		}
		fmt.Fprintf(&b, "Previously stored context:\n%s\n\n", snapshot)
	}

	b.WriteString("Conversation (oldest first):\n")
	for _, t := range req.Turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	return b.String(), nil
}

// stripCodeFence removes a markdown fence some models wrap JSON output in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
