package coach

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/questline-app/questline/internal/catalog"
	"github.com/questline-app/questline/internal/domain"
	"github.com/questline-app/questline/internal/synchro"
)

// Request describes one conversation turn or a journey opening.
type Request struct {
	Helper       domain.Helper
	ProjectName  string
	Level        int
	Message      string
	StartJourney bool
	ThreadID     string
	Prior        []synchro.PriorSection
	History      []domain.ConversationTurn
}

// Orchestrator multiplexes backend output into the normalized event stream.
type Orchestrator struct {
	backend Backend
	cat     *catalog.Catalog
	timeout time.Duration
}

// NewOrchestrator creates an orchestrator over the configured backend.
func NewOrchestrator(backend Backend, cat *catalog.Catalog, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Orchestrator{backend: backend, cat: cat, timeout: timeout}
}

// Stream produces the lazy event sequence for one turn. The sequence begins
// with exactly one thread_id event and ends with done or error; when the
// consumer abandons it (ctx cancelled) it stops without a terminal event.
func (o *Orchestrator) Stream(ctx context.Context, req Request) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		prompt, system, err := o.buildTurn(req)
		if err != nil {
			yield(errorEvent(err.Error()), nil)
			return
		}

		threadID := req.ThreadID
		if threadID == "" {
			created, err := o.backend.CreateThread(ctx)
			if err != nil {
				slog.Error("failed to create backend thread", "helper", req.Helper, "error", err)
				yield(errorEvent("failed to start conversation"), nil)
				return
			}
			threadID = created
		}

		if !yield(threadEvent(threadID), nil) {
			return
		}

		// A hung backend must not stall the consumer indefinitely.
		turnCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		for ev, err := range o.backend.Stream(turnCtx, TurnRequest{
			ThreadID: threadID,
			System:   system,
			Prompt:   prompt,
			History:  req.History,
		}) {
			if err != nil {
				if ctx.Err() != nil {
					// Client went away; no terminal event is owed.
					return
				}
				msg := "conversation backend failed"
				if errors.Is(err, context.DeadlineExceeded) {
					msg = "conversation backend timed out"
				}
				slog.Error("backend stream failed", "helper", req.Helper, "thread_id", threadID, "error", err)
				yield(errorEvent(msg), nil)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}

		if ctx.Err() != nil {
			return
		}
		yield(doneEvent(), nil)
	}
}

// buildTurn resolves the outbound prompt and system instructions.
func (o *Orchestrator) buildTurn(req Request) (prompt, system string, err error) {
	info := o.cat.Helper(req.Helper)

	if req.StartJourney {
		step, ok := o.cat.StepForHelperLevel(req.Helper, req.Level)
		if !ok {
			return "", "", fmt.Errorf("helper %s has no step at level %d", req.Helper, req.Level)
		}
		return BuildOpeningPrompt(step, info, req.ProjectName, req.Prior), BuildContinuationSystem(info, req.ProjectName, nil), nil
	}

	if req.Message == "" {
		return "", "", fmt.Errorf("message is required")
	}
	return req.Message, BuildContinuationSystem(info, req.ProjectName, req.Prior), nil
}
