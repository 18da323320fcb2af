package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/questline-app/questline/internal/domain"
)

type contextRow struct {
	UserID           string `db:"user_id"`
	ProjectID        string `db:"project_id"`
	Helper           string `db:"helper"`
	KeyInsights      string `db:"key_insights"`
	DecisionsMade    string `db:"decisions_made"`
	ArtifactsCreated string `db:"artifacts_created"`
	ContextSummary   string `db:"context_summary"`
	Data             string `db:"data"`
	Version          int64  `db:"version"`
	CreatedAt        int64  `db:"created_at"`
	UpdatedAt        int64  `db:"updated_at"`
}

func (r *contextRow) toDomain() (*domain.HelperContext, error) {
	hc := &domain.HelperContext{
		UserID:         r.UserID,
		ProjectID:      r.ProjectID,
		Helper:         domain.Helper(r.Helper),
		ContextSummary: r.ContextSummary,
		Version:        r.Version,
		CreatedAt:      time.Unix(r.CreatedAt, 0),
		UpdatedAt:      time.Unix(r.UpdatedAt, 0),
	}
	if err := json.Unmarshal([]byte(r.KeyInsights), &hc.KeyInsights); err != nil {
		return nil, fmt.Errorf("decode key insights: %w", err)
	}
	if err := json.Unmarshal([]byte(r.DecisionsMade), &hc.DecisionsMade); err != nil {
		return nil, fmt.Errorf("decode decisions: %w", err)
	}
	if err := json.Unmarshal([]byte(r.ArtifactsCreated), &hc.ArtifactsCreated); err != nil {
		return nil, fmt.Errorf("decode artifacts: %w", err)
	}
	if err := json.Unmarshal([]byte(r.Data), &hc.Data); err != nil {
		return nil, fmt.Errorf("decode helper data: %w", err)
	}
	return hc, nil
}

func encodeContext(hc *domain.HelperContext) (insights, decisions, artifacts, data string, err error) {
	enc := func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	if insights, err = enc(emptyIfNil(hc.KeyInsights)); err != nil {
		return "", "", "", "", fmt.Errorf("encode key insights: %w", err)
	}
	if decisions, err = enc(emptyIfNil(hc.DecisionsMade)); err != nil {
		return "", "", "", "", fmt.Errorf("encode decisions: %w", err)
	}
	if artifacts, err = enc(emptyIfNil(hc.ArtifactsCreated)); err != nil {
		return "", "", "", "", fmt.Errorf("encode artifacts: %w", err)
	}
	if data, err = enc(hc.Data); err != nil {
		return "", "", "", "", fmt.Errorf("encode helper data: %w", err)
	}
	return insights, decisions, artifacts, data, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

const contextColumns = `user_id, project_id, helper, key_insights, decisions_made, artifacts_created, context_summary, data, version, created_at, updated_at`

// GetHelperContext retrieves the context row for one (user, project, helper).
func (s *SQLiteStore) GetHelperContext(ctx context.Context, userID, projectID string, helper domain.Helper) (*domain.HelperContext, error) {
	var rows []*contextRow
	query := `SELECT ` + contextColumns + ` FROM helper_contexts WHERE user_id = ? AND project_id = ? AND helper = ?`
	if err := sqlscan.Select(ctx, s.db, &rows, query, userID, projectID, string(helper)); err != nil {
		return nil, fmt.Errorf("select helper context: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain()
}

// ListHelperContexts lists all context rows for a project.
func (s *SQLiteStore) ListHelperContexts(ctx context.Context, userID, projectID string) ([]*domain.HelperContext, error) {
	var rows []*contextRow
	query := `SELECT ` + contextColumns + ` FROM helper_contexts WHERE user_id = ? AND project_id = ?`
	if err := sqlscan.Select(ctx, s.db, &rows, query, userID, projectID); err != nil {
		return nil, fmt.Errorf("list helper contexts: %w", err)
	}
	contexts := make([]*domain.HelperContext, 0, len(rows))
	for _, r := range rows {
		hc, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, hc)
	}
	return contexts, nil
}

// InsertHelperContext creates a context row at version 1.
func (s *SQLiteStore) InsertHelperContext(ctx context.Context, hc *domain.HelperContext) error {
	insights, decisions, artifacts, data, err := encodeContext(hc)
	if err != nil {
		return err
	}

	now := time.Now()
	hc.Version = 1
	hc.CreatedAt = now
	hc.UpdatedAt = now

	query := `
		INSERT INTO helper_contexts (` + contextColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		hc.UserID, hc.ProjectID, string(hc.Helper),
		insights, decisions, artifacts, hc.ContextSummary, data,
		hc.Version, now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert helper context: %w", err)
	}
	return nil
}

// UpdateHelperContext conditionally replaces a context row. The WHERE clause
// on version is the compare-and-swap that serializes concurrent merges for
// the same key; a stale writer gets ErrVersionConflict and must re-read.
func (s *SQLiteStore) UpdateHelperContext(ctx context.Context, hc *domain.HelperContext, expectedVersion int64) error {
	insights, decisions, artifacts, data, err := encodeContext(hc)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
		UPDATE helper_contexts SET
			key_insights = ?, decisions_made = ?, artifacts_created = ?,
			context_summary = ?, data = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND project_id = ? AND helper = ? AND version = ?`
	res, err := s.db.ExecContext(ctx, query,
		insights, decisions, artifacts, hc.ContextSummary, data, now.Unix(),
		hc.UserID, hc.ProjectID, string(hc.Helper), expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update helper context: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update helper context rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	hc.Version = expectedVersion + 1
	hc.UpdatedAt = now
	return nil
}
