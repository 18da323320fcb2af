package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"time"
)

// ThreadBackend implements Backend against a stateful assistants-style API:
// threads hold conversation history server-side, and each turn is a run that
// must finish before the next one starts.
type ThreadBackend struct {
	baseURL     string
	apiKey      string
	assistantID string
	httpClient  *http.Client
	locks       *threadLocks

	pollInterval time.Duration
	lockTimeout  time.Duration
}

// ThreadBackendConfig configures the stateful backend.
type ThreadBackendConfig struct {
	BaseURL     string
	APIKey      string
	AssistantID string
	LockTimeout time.Duration
}

// NewThreadBackend creates a stateful thread backend.
func NewThreadBackend(cfg ThreadBackendConfig) *ThreadBackend {
	lockTimeout := cfg.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = 30 * time.Second
	}
	return &ThreadBackend{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		assistantID:  cfg.AssistantID,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		locks:        newThreadLocks(),
		pollInterval: 500 * time.Millisecond,
		lockTimeout:  lockTimeout,
	}
}

// Close releases backend resources.
func (b *ThreadBackend) Close() {
	b.httpClient.CloseIdleConnections()
}

type apiThread struct {
	ID string `json:"id"`
}

type apiRun struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text *struct {
			Value string `json:"value"`
		} `json:"text,omitempty"`
	} `json:"content"`
}

// CreateThread allocates a new server-side thread.
func (b *ThreadBackend) CreateThread(ctx context.Context) (string, error) {
	var thread apiThread
	if err := b.post(ctx, "/threads", map[string]any{}, &thread); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

// Stream submits one turn: append the prompt as a user message, start a run
// with the system instructions attached, poll until it completes, and yield
// the assistant reply. The per-thread lock guarantees no two turns execute
// concurrently on one thread.
func (b *ThreadBackend) Stream(ctx context.Context, turn TurnRequest) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		release, err := b.locks.acquire(ctx, turn.ThreadID, b.lockTimeout)
		if err != nil {
			yield(nil, err)
			return
		}
		defer release()

		if err := b.post(ctx, "/threads/"+turn.ThreadID+"/messages", map[string]any{
			"role":    "user",
			"content": turn.Prompt,
		}, nil); err != nil {
			yield(nil, fmt.Errorf("append message: %w", err))
			return
		}

		var run apiRun
		if err := b.post(ctx, "/threads/"+turn.ThreadID+"/runs", map[string]any{
			"assistant_id":            b.assistantID,
			"additional_instructions": turn.System,
		}, &run); err != nil {
			yield(nil, fmt.Errorf("create run: %w", err))
			return
		}

		if err := b.waitForRun(ctx, turn.ThreadID, run.ID); err != nil {
			yield(nil, err)
			return
		}

		reply, err := b.latestAssistantMessage(ctx, turn.ThreadID)
		if err != nil {
			yield(nil, err)
			return
		}
		yield(textEvent(reply), nil)
	}
}

func (b *ThreadBackend) waitForRun(ctx context.Context, threadID, runID string) error {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		var run apiRun
		if err := b.get(ctx, "/threads/"+threadID+"/runs/"+runID, &run); err != nil {
			return fmt.Errorf("poll run: %w", err)
		}
		switch run.Status {
		case "completed":
			return nil
		case "failed", "cancelled", "expired":
			return fmt.Errorf("run %s ended with status %s", runID, run.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *ThreadBackend) latestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	var list struct {
		Data []apiMessage `json:"data"`
	}
	if err := b.get(ctx, "/threads/"+threadID+"/messages", &list); err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	// Messages come back newest first.
	for _, msg := range list.Data {
		if msg.Role != "assistant" {
			continue
		}
		for _, c := range msg.Content {
			if c.Type == "text" && c.Text != nil {
				return c.Text.Value, nil
			}
		}
	}
	return "", fmt.Errorf("no assistant message on thread %s", threadID)
}

func (b *ThreadBackend) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return b.do(req, out)
}

func (b *ThreadBackend) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return b.do(req, out)
}

func (b *ThreadBackend) do(req *http.Request, out any) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
