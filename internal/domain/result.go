package domain

import "sort"

// Page is one illustrated page of a generated book.
type Page struct {
	PageNumber int    `json:"pageNumber"`
	Caption    string `json:"caption"`
	ImageData  string `json:"imageData,omitempty"`
	WasFixed   bool   `json:"wasFixed,omitempty"`
}

// Character is a recurring character extracted from the story.
type Character struct {
	Name           string `json:"name"`
	Role           string `json:"role"`
	Description    string `json:"description"`
	ReferenceImage string `json:"referenceImage,omitempty"`
}

// ResultMetadata summarizes a generated book.
type ResultMetadata struct {
	PageCount              int  `json:"pageCount"`
	CharacterCount         int  `json:"characterCount"`
	ConsistencyIssuesFound int  `json:"consistencyIssuesFound"`
	PagesFixed             int  `json:"pagesFixed"`
	AnyPageFixed           bool `json:"anyPageFixed"`
}

// GenerationResult is the assembled output of a completed job.
type GenerationResult struct {
	JobID           string         `json:"storyId"`
	Title           string         `json:"title"`
	Theme           string         `json:"theme"`
	StoryArcSummary []string       `json:"storyArcSummary"`
	Pages           []Page         `json:"pages"`
	Characters      []Character    `json:"characters"`
	Metadata        ResultMetadata `json:"metadata"`
}

// Clone returns a deep copy so callers can derive results without aliasing slices.
func (r *GenerationResult) Clone() *GenerationResult {
	if r == nil {
		return nil
	}
	out := *r
	out.StoryArcSummary = append([]string(nil), r.StoryArcSummary...)
	out.Pages = append([]Page(nil), r.Pages...)
	out.Characters = append([]Character(nil), r.Characters...)
	return &out
}

// Normalize sorts pages by number, drops duplicate page numbers and character names
// (first occurrence wins) and recomputes the derived metadata counts.
func (r *GenerationResult) Normalize() {
	if r == nil {
		return
	}
	sort.SliceStable(r.Pages, func(i, j int) bool {
		return r.Pages[i].PageNumber < r.Pages[j].PageNumber
	})
	pages := r.Pages[:0]
	for i, p := range r.Pages {
		if i > 0 && p.PageNumber == pages[len(pages)-1].PageNumber {
			continue
		}
		pages = append(pages, p)
	}
	r.Pages = pages

	seen := make(map[string]struct{}, len(r.Characters))
	chars := r.Characters[:0]
	for _, c := range r.Characters {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		chars = append(chars, c)
	}
	r.Characters = chars

	fixed := 0
	for _, p := range r.Pages {
		if p.WasFixed {
			fixed++
		}
	}
	r.Metadata.PageCount = len(r.Pages)
	r.Metadata.CharacterCount = len(r.Characters)
	if fixed > r.Metadata.PagesFixed {
		r.Metadata.PagesFixed = fixed
	}
	r.Metadata.AnyPageFixed = r.Metadata.PagesFixed > 0
}
