package coach

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// assistantStub mimics the minimal thread/run/message surface the backend
// talks to: a run stays queued for the first poll, then completes.
func assistantStub(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /threads", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":"thread_abc"}`)
	})
	mux.HandleFunc("POST /threads/thread_abc/messages", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":"msg_1"}`)
	})
	mux.HandleFunc("POST /threads/thread_abc/runs", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":"run_1","status":"queued"}`)
	})
	mux.HandleFunc("GET /threads/thread_abc/runs/run_1", func(w http.ResponseWriter, _ *http.Request) {
		if polls.Add(1) == 1 {
			fmt.Fprint(w, `{"id":"run_1","status":"in_progress"}`)
			return
		}
		fmt.Fprint(w, `{"id":"run_1","status":"completed"}`)
	})
	mux.HandleFunc("GET /threads/thread_abc/messages", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"data":[
			{"role":"assistant","content":[{"type":"text","text":{"value":%q}}]},
			{"role":"user","content":[{"type":"text","text":{"value":"hi"}}]}
		]}`, reply)
	})
	return httptest.NewServer(mux)
}

func newTestThreadBackend(url string) *ThreadBackend {
	b := NewThreadBackend(ThreadBackendConfig{
		BaseURL:     url,
		APIKey:      "k",
		AssistantID: "asst_1",
	})
	b.pollInterval = 1 // poll immediately in tests
	return b
}

func TestThreadBackendCreateThread(t *testing.T) {
	srv := assistantStub(t, "")
	defer srv.Close()

	b := newTestThreadBackend(srv.URL)
	defer b.Close()

	id, err := b.CreateThread(context.Background())
	if err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}
	if id != "thread_abc" {
		t.Errorf("Expected thread_abc, got %q", id)
	}
}

func TestThreadBackendStreamYieldsReply(t *testing.T) {
	srv := assistantStub(t, "Welcome, founder.")
	defer srv.Close()

	b := newTestThreadBackend(srv.URL)
	defer b.Close()

	var events []*Event
	for ev, err := range b.Stream(context.Background(), TurnRequest{
		ThreadID: "thread_abc",
		System:   "persona",
		Prompt:   "hello",
	}) {
		if err != nil {
			t.Fatalf("Stream failed: %v", err)
		}
		events = append(events, ev)
	}

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Type != EventText || events[0].Content != "Welcome, founder." {
		t.Errorf("Unexpected event: %+v", events[0])
	}
}

func TestThreadBackendRunFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /threads/thread_abc/messages", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":"msg_1"}`)
	})
	mux.HandleFunc("POST /threads/thread_abc/runs", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":"run_1","status":"queued"}`)
	})
	mux.HandleFunc("GET /threads/thread_abc/runs/run_1", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":"run_1","status":"failed"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := newTestThreadBackend(srv.URL)
	defer b.Close()

	var streamErr error
	for _, err := range b.Stream(context.Background(), TurnRequest{ThreadID: "thread_abc", Prompt: "x"}) {
		if err != nil {
			streamErr = err
		}
	}
	if streamErr == nil {
		t.Fatal("Expected run failure to surface as an error")
	}
}
