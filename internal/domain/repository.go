package domain

import "context"

// JobStore is the read side of the job records the external executor maintains.
type JobStore interface {
	Status(ctx context.Context, jobID string) (*StatusRecord, error)
	ListPageAssets(ctx context.Context, jobID string) ([]PageAsset, error)
	ListCharacterAssets(ctx context.Context, jobID string) ([]CharacterAsset, error)
}

// StoryRepository records submissions and serves the story library.
type StoryRepository interface {
	JobStore
	Create(ctx context.Context, sub *Submission) error
	GetSubmission(ctx context.Context, jobID string) (*Submission, error)
	ListStories(ctx context.Context, limit int) ([]StorySummary, error)
}
