package repo

import (
	"context"
	"fmt"

	"storystudio/internal/domain"
	"storystudio/internal/sqlinline"
)

// ListPageAssets returns the illustrated pages recorded for a job, ordered by page number.
func (r *StoryRepositoryPG) ListPageAssets(ctx context.Context, jobID string) ([]domain.PageAsset, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectPageImages, jobID)
	if err != nil {
		return nil, fmt.Errorf("list page assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.PageAsset
	for rows.Next() {
		var a domain.PageAsset
		if err := rows.Scan(&a.PageNumber, &a.ImageRef, &a.Caption); err != nil {
			return nil, fmt.Errorf("scan page asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list page assets: %w", err)
	}
	return assets, nil
}

// ListCharacterAssets returns the character portraits recorded for a job.
func (r *StoryRepositoryPG) ListCharacterAssets(ctx context.Context, jobID string) ([]domain.CharacterAsset, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectCharacterImages, jobID)
	if err != nil {
		return nil, fmt.Errorf("list character assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.CharacterAsset
	for rows.Next() {
		var a domain.CharacterAsset
		if err := rows.Scan(&a.Name, &a.Role, &a.ImageRef, &a.IsHero); err != nil {
			return nil, fmt.Errorf("scan character asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list character assets: %w", err)
	}
	return assets, nil
}
