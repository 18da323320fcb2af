package synchro

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/questline-app/questline/internal/domain"
	"github.com/questline-app/questline/internal/store"
)

// casRetries bounds re-merge attempts when a concurrent writer wins the
// conditional update.
const casRetries = 3

// Service coordinates extraction and the read-merge-write cycle against the
// shared knowledge base.
type Service struct {
	repo      store.Repository
	extractor Extractor
}

// NewService creates a synchronizer service.
func NewService(repo store.Repository, extractor Extractor) *Service {
	return &Service{repo: repo, extractor: extractor}
}

// Sync extracts insights from a transcript and merges them into the stored
// context for (user, project, helper). An extraction failure degrades to a
// no-op merge: existing state is never corrupted and the caller still gets
// the current row back.
func (s *Service) Sync(ctx context.Context, userID, projectID, projectName string, helper domain.Helper, turns []domain.ConversationTurn) (*domain.HelperContext, *domain.ContextDelta, error) {
	existing, err := s.repo.GetHelperContext(ctx, userID, projectID, helper)
	if err != nil {
		return nil, nil, fmt.Errorf("load helper context: %w", err)
	}

	delta, err := s.extractor.Extract(ctx, ExtractionRequest{
		Helper:      helper,
		ProjectName: projectName,
		Turns:       turns,
		Existing:    existing,
	})
	if err != nil {
		slog.Warn("context extraction failed, applying no-op merge",
			"helper", helper, "project_id", projectID, "error", err)
		delta = &domain.ContextDelta{}
	}

	merged, err := s.apply(ctx, userID, projectID, helper, existing, delta)
	if err != nil {
		return nil, nil, err
	}
	return merged, delta, nil
}

// apply runs the read-merge-write loop. The conditional update on the row
// version keeps two concurrent extractions for the same key from
// interleaving: the loser re-reads and re-merges on top of the winner.
func (s *Service) apply(ctx context.Context, userID, projectID string, helper domain.Helper, existing *domain.HelperContext, delta *domain.ContextDelta) (*domain.HelperContext, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		merged := Merge(existing, delta)
		merged.UserID = userID
		merged.ProjectID = projectID
		merged.Helper = helper

		if existing == nil {
			err := s.repo.InsertHelperContext(ctx, merged)
			if err == nil {
				return merged, nil
			}
			// Another writer may have created the row first; re-read and retry.
			slog.Warn("helper context insert raced, retrying as update",
				"helper", helper, "project_id", projectID, "error", err)
		} else {
			err := s.repo.UpdateHelperContext(ctx, merged, existing.Version)
			if err == nil {
				return merged, nil
			}
			if !errors.Is(err, store.ErrVersionConflict) {
				return nil, fmt.Errorf("store helper context: %w", err)
			}
		}

		reread, err := s.repo.GetHelperContext(ctx, userID, projectID, helper)
		if err != nil {
			return nil, fmt.Errorf("reload helper context: %w", err)
		}
		existing = reread
	}
	return nil, fmt.Errorf("helper context merge for %s/%s contended %d times", projectID, helper, casRetries)
}
