package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storystudio/internal/domain"
	"storystudio/internal/infra"
	"storystudio/internal/sqlinline"
)

// StoryRepositoryPG implements domain.StoryRepository on top of the marker-tagged SQL runner.
type StoryRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewStoryRepository creates a new story repository backed by PostgreSQL.
func NewStoryRepository(sql infra.SQLExecutor) *StoryRepositoryPG {
	return &StoryRepositoryPG{sql: sql}
}

// Create records a submission with status queued.
func (r *StoryRepositoryPG) Create(ctx context.Context, sub *domain.Submission) error {
	if sub == nil || sub.JobID == "" {
		return fmt.Errorf("create story: job id is required")
	}
	settings, err := json.Marshal(sub.Settings)
	if err != nil {
		return fmt.Errorf("create story: encode settings: %w", err)
	}
	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertStory, sub.JobID, sub.StoryText, sub.FileName, settings, createdAt); err != nil {
		return fmt.Errorf("create story: %w", err)
	}
	return nil
}

// Status reads the current status row for a job. A missing row is domain.ErrNotFound.
func (r *StoryRepositoryPG) Status(ctx context.Context, jobID string) (*domain.StatusRecord, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectStoryStatus, jobID)
	var rec domain.StatusRecord
	var status string
	if err := row.Scan(&rec.JobID, &status, &rec.CurrentStep, &rec.ErrorMessage, &rec.Result, &rec.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("story %s: %w", jobID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read story status: %w", err)
	}
	rec.Status = domain.JobStatus(status)
	return &rec, nil
}

// GetSubmission re-reads the original submission, used to retry after a restart.
func (r *StoryRepositoryPG) GetSubmission(ctx context.Context, jobID string) (*domain.Submission, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectStorySubmission, jobID)
	var sub domain.Submission
	var settings []byte
	if err := row.Scan(&sub.JobID, &sub.StoryText, &sub.FileName, &settings, &sub.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("story %s: %w", jobID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read story submission: %w", err)
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &sub.Settings); err != nil {
			return nil, fmt.Errorf("decode story settings: %w", err)
		}
	}
	return &sub, nil
}

// ListStories returns the newest stories first, with titles derived from the source text.
func (r *StoryRepositoryPG) ListStories(ctx context.Context, limit int) ([]domain.StorySummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListStories, limit)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	var stories []domain.StorySummary
	for rows.Next() {
		var s domain.StorySummary
		var source string
		if err := rows.Scan(&s.ID, &source, &s.Theme, &s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		s.Title = domain.ExtractTitle(source)
		stories = append(stories, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	return stories, nil
}

var _ domain.StoryRepository = (*StoryRepositoryPG)(nil)
