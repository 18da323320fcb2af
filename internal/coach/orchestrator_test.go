package coach

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/questline-app/questline/internal/domain"
)

type fakeBackend struct {
	threadID     string
	createErr    error
	events       []*Event
	streamErr    error
	createdCount int
	lastTurn     TurnRequest
}

func (f *fakeBackend) CreateThread(_ context.Context) (string, error) {
	f.createdCount++
	return f.threadID, f.createErr
}

func (f *fakeBackend) Stream(_ context.Context, turn TurnRequest) iter.Seq2[*Event, error] {
	f.lastTurn = turn
	return func(yield func(*Event, error) bool) {
		for _, ev := range f.events {
			if !yield(ev, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield(nil, f.streamErr)
		}
	}
}

func (f *fakeBackend) Close() {}

func collect(t *testing.T, seq iter.Seq2[*Event, error]) []*Event {
	t.Helper()
	var events []*Event
	for ev, err := range seq {
		if err != nil {
			t.Fatalf("Unexpected iterator error: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

func TestStreamEventOrdering(t *testing.T) {
	backend := &fakeBackend{
		threadID: "t1",
		events:   []*Event{textEvent("hello"), textEvent(" world")},
	}
	orch := NewOrchestrator(backend, loadCatalog(t), time.Minute)

	events := collect(t, orch.Stream(context.Background(), Request{
		Helper:  domain.HelperMuse,
		Message: "hi",
	}))

	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}
	if events[0].Type != EventThreadID || events[0].ThreadID != "t1" {
		t.Errorf("Expected thread_id event first, got %+v", events[0])
	}
	if events[1].Type != EventText || events[1].Content != "hello" {
		t.Errorf("Unexpected second event: %+v", events[1])
	}
	if events[3].Type != EventDone {
		t.Errorf("Expected done event last, got %+v", events[3])
	}
}

func TestStreamReusesExistingThread(t *testing.T) {
	backend := &fakeBackend{threadID: "fresh"}
	orch := NewOrchestrator(backend, loadCatalog(t), time.Minute)

	events := collect(t, orch.Stream(context.Background(), Request{
		Helper:   domain.HelperMuse,
		Message:  "hi",
		ThreadID: "existing",
	}))

	if backend.createdCount != 0 {
		t.Errorf("Expected no thread creation, got %d", backend.createdCount)
	}
	if events[0].ThreadID != "existing" {
		t.Errorf("Expected existing thread id, got %q", events[0].ThreadID)
	}
}

func TestStreamBackendFailure(t *testing.T) {
	backend := &fakeBackend{
		threadID:  "t1",
		events:    []*Event{textEvent("partial")},
		streamErr: errors.New("connection reset"),
	}
	orch := NewOrchestrator(backend, loadCatalog(t), time.Minute)

	events := collect(t, orch.Stream(context.Background(), Request{
		Helper:  domain.HelperMuse,
		Message: "hi",
	}))

	last := events[len(events)-1]
	if last.Type != EventError {
		t.Fatalf("Expected error event, got %+v", last)
	}
	if last.Error != "conversation backend failed" {
		t.Errorf("Unexpected error message: %q", last.Error)
	}
	for _, ev := range events {
		if ev.Type == EventDone {
			t.Error("A failed stream must not also emit done")
		}
	}
}

func TestStreamTimeoutMessage(t *testing.T) {
	backend := &fakeBackend{
		threadID:  "t1",
		streamErr: context.DeadlineExceeded,
	}
	orch := NewOrchestrator(backend, loadCatalog(t), time.Minute)

	events := collect(t, orch.Stream(context.Background(), Request{
		Helper:  domain.HelperMuse,
		Message: "hi",
	}))

	last := events[len(events)-1]
	if last.Type != EventError || last.Error != "conversation backend timed out" {
		t.Errorf("Expected timeout error event, got %+v", last)
	}
}

func TestStreamCancelledClientGetsNoTerminal(t *testing.T) {
	backend := &fakeBackend{
		threadID:  "t1",
		streamErr: context.Canceled,
	}
	orch := NewOrchestrator(backend, loadCatalog(t), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var events []*Event
	for ev, err := range orch.Stream(ctx, Request{Helper: domain.HelperMuse, Message: "hi"}) {
		if err != nil {
			t.Fatalf("Unexpected iterator error: %v", err)
		}
		events = append(events, ev)
		cancel()
	}

	for _, ev := range events {
		if ev.Type == EventDone || ev.Type == EventError {
			t.Errorf("Cancelled stream emitted terminal event %+v", ev)
		}
	}
}

func TestStreamCreateThreadFailure(t *testing.T) {
	backend := &fakeBackend{createErr: errors.New("backend down")}
	orch := NewOrchestrator(backend, loadCatalog(t), time.Minute)

	events := collect(t, orch.Stream(context.Background(), Request{
		Helper:  domain.HelperMuse,
		Message: "hi",
	}))

	if len(events) != 1 || events[0].Type != EventError {
		t.Fatalf("Expected a single error event, got %+v", events)
	}
	if events[0].Error != "failed to start conversation" {
		t.Errorf("Unexpected error message: %q", events[0].Error)
	}
}

func TestStreamJourneyOpening(t *testing.T) {
	backend := &fakeBackend{threadID: "t1", events: []*Event{textEvent("welcome")}}
	orch := NewOrchestrator(backend, loadCatalog(t), time.Minute)

	collect(t, orch.Stream(context.Background(), Request{
		Helper:       domain.HelperMuse,
		ProjectName:  "questline",
		Level:        1,
		StartJourney: true,
	}))

	if backend.lastTurn.Prompt == "" {
		t.Fatal("Expected a synthesized opening prompt")
	}
	if backend.lastTurn.System == "" {
		t.Error("Expected system instructions")
	}
}

func TestStreamJourneyOpeningUnknownLevel(t *testing.T) {
	backend := &fakeBackend{threadID: "t1"}
	orch := NewOrchestrator(backend, loadCatalog(t), time.Minute)

	events := collect(t, orch.Stream(context.Background(), Request{
		Helper:       domain.HelperMuse,
		Level:        4,
		StartJourney: true,
	}))

	if len(events) != 1 || events[0].Type != EventError {
		t.Fatalf("Expected a single error event, got %+v", events)
	}
}

func TestStreamMissingMessage(t *testing.T) {
	backend := &fakeBackend{threadID: "t1"}
	orch := NewOrchestrator(backend, loadCatalog(t), time.Minute)

	events := collect(t, orch.Stream(context.Background(), Request{
		Helper: domain.HelperMuse,
	}))

	if len(events) != 1 || events[0].Type != EventError {
		t.Fatalf("Expected a single error event, got %+v", events)
	}
}
