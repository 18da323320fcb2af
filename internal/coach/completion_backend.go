package coach

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/questline-app/questline/internal/domain"
)

// CompletionBackend implements Backend over a stateless chat-completions
// API. There is no server-side thread: each turn ships the recent history,
// and thread identifiers are minted locally so the event contract stays
// identical to the stateful backend.
type CompletionBackend struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// CompletionBackendConfig configures the stateless backend.
type CompletionBackendConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NewCompletionBackend creates a stateless completion backend.
func NewCompletionBackend(cfg CompletionBackendConfig) *CompletionBackend {
	return &CompletionBackend{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Close releases backend resources.
func (b *CompletionBackend) Close() {
	b.httpClient.CloseIdleConnections()
}

// CreateThread mints a local identifier; no backend state exists.
func (b *CompletionBackend) CreateThread(_ context.Context) (string, error) {
	return "local-" + uuid.NewString(), nil
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string              `json:"model"`
	Messages []completionMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Stream sends one completion request with stream enabled and yields text
// chunks as the backend produces them.
func (b *CompletionBackend) Stream(ctx context.Context, turn TurnRequest) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		resp, err := b.send(ctx, turn, true)
		if err != nil {
			yield(nil, err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				yield(nil, fmt.Errorf("decode stream chunk: %w", err))
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta
			for _, tc := range delta.ToolCalls {
				if tc.Function.Name == "" {
					continue
				}
				if !yield(toolCallEvent(tc.Function.Name, json.RawMessage(tc.Function.Arguments)), nil) {
					return
				}
			}
			if delta.Content != "" {
				if !yield(textEvent(delta.Content), nil) {
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("read stream: %w", err))
		}
	}
}

// Complete runs a single non-streaming completion. The context synchronizer
// uses this for structured extraction.
func (b *CompletionBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := b.send(ctx, TurnRequest{System: system, Prompt: prompt}, false)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var out struct {
		Choices []struct {
			Message completionMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func (b *CompletionBackend) send(ctx context.Context, turn TurnRequest, stream bool) (*http.Response, error) {
	messages := make([]completionMessage, 0, len(turn.History)+2)
	if turn.System != "" {
		messages = append(messages, completionMessage{Role: "system", Content: turn.System})
	}
	for _, t := range turn.History {
		messages = append(messages, completionMessage{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, completionMessage{Role: domain.RoleUser, Content: turn.Prompt})

	payload, err := json.Marshal(completionRequest{
		Model:    b.model,
		Messages: messages,
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send completion request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, body)
	}
	return resp, nil
}
