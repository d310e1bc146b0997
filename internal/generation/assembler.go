package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"storystudio/internal/domain"
)

// Assembler merges the executor's asset records into a base result.
type Assembler struct {
	Store domain.JobStore
}

// Assemble fetches page then character assets and overlays their image
// references onto the matching base entries. The base is authoritative: assets
// without a matching page or character are ignored and unmatched base entries
// are kept as they are. base is never modified. A nil base is synthesized from
// the asset records so a completed job always has something to render.
func (a *Assembler) Assemble(ctx context.Context, jobID string, base *domain.GenerationResult) (*domain.GenerationResult, error) {
	pages, err := a.Store.ListPageAssets(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	chars, err := a.Store.ListCharacterAssets(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	var out *domain.GenerationResult
	if base == nil {
		out = synthesize(pages, chars)
	} else {
		out = base.Clone()
	}
	if out.JobID == "" {
		out.JobID = jobID
	}

	pageRefs := make(map[int]string, len(pages))
	for _, p := range pages {
		if _, ok := pageRefs[p.PageNumber]; !ok && p.ImageRef != "" {
			pageRefs[p.PageNumber] = p.ImageRef
		}
	}
	for i := range out.Pages {
		if ref, ok := pageRefs[out.Pages[i].PageNumber]; ok {
			out.Pages[i].ImageData = ref
		}
	}

	charRefs := make(map[string]string, len(chars))
	for _, c := range chars {
		if _, ok := charRefs[c.Name]; !ok && c.ImageRef != "" {
			charRefs[c.Name] = c.ImageRef
		}
	}
	for i := range out.Characters {
		if ref, ok := charRefs[out.Characters[i].Name]; ok {
			out.Characters[i].ReferenceImage = ref
		}
	}

	out.Normalize()
	return out, nil
}

func synthesize(pages []domain.PageAsset, chars []domain.CharacterAsset) *domain.GenerationResult {
	out := &domain.GenerationResult{
		Pages:      make([]domain.Page, 0, len(pages)),
		Characters: make([]domain.Character, 0, len(chars)),
	}
	for _, p := range pages {
		out.Pages = append(out.Pages, domain.Page{PageNumber: p.PageNumber, Caption: p.Caption})
	}
	for _, c := range chars {
		role := c.Role
		if role == "" && c.IsHero {
			role = "hero"
		}
		out.Characters = append(out.Characters, domain.Character{Name: c.Name, Role: role})
	}
	return out
}

// DecodeBase parses the result document stored with a completed job. An empty
// document yields a nil result.
func DecodeBase(raw []byte) (*domain.GenerationResult, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var result domain.GenerationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &result, nil
}
