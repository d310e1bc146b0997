package generation

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"storystudio/internal/domain"
)

func basePages(numbers ...int) *domain.GenerationResult {
	r := &domain.GenerationResult{JobID: "job-1", Title: "The Brave Fox"}
	for _, n := range numbers {
		r.Pages = append(r.Pages, domain.Page{PageNumber: n, Caption: "caption"})
	}
	r.Characters = []domain.Character{{Name: "Fox", Role: "hero"}, {Name: "Owl", Role: "mentor"}}
	return r
}

func TestAssembleOverlaysMatchingPagesOnly(t *testing.T) {
	store := &scriptedStore{pages: []domain.PageAsset{
		{PageNumber: 2, ImageRef: "https://cdn/2.png"},
		{PageNumber: 3, ImageRef: "https://cdn/3.png"},
	}}
	a := &Assembler{Store: store}

	out, err := a.Assemble(context.Background(), "job-1", basePages(1, 2, 3))
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	if len(out.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(out.Pages))
	}
	if out.Pages[0].ImageData != "" {
		t.Fatalf("page 1 should have no image, got %q", out.Pages[0].ImageData)
	}
	if out.Pages[1].ImageData != "https://cdn/2.png" || out.Pages[2].ImageData != "https://cdn/3.png" {
		t.Fatalf("pages 2 and 3 not overlaid: %+v", out.Pages)
	}
}

func TestAssembleIgnoresUnmatchedAssets(t *testing.T) {
	store := &scriptedStore{
		pages: []domain.PageAsset{{PageNumber: 9, ImageRef: "https://cdn/9.png"}, {PageNumber: 1, ImageRef: ""}},
		chars: []domain.CharacterAsset{
			{Name: "Fox", ImageRef: "https://cdn/fox.png", IsHero: true},
			{Name: "Bear", ImageRef: "https://cdn/bear.png"},
		},
	}
	out, err := (&Assembler{Store: store}).Assemble(context.Background(), "job-1", basePages(1, 2))
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	if len(out.Pages) != 2 || out.Pages[0].ImageData != "" {
		t.Fatalf("unexpected pages: %+v", out.Pages)
	}
	if len(out.Characters) != 2 {
		t.Fatalf("unmatched character was fabricated: %+v", out.Characters)
	}
	if out.Characters[0].ReferenceImage != "https://cdn/fox.png" || out.Characters[1].ReferenceImage != "" {
		t.Fatalf("unexpected characters: %+v", out.Characters)
	}
}

func TestAssembleDoesNotMutateBase(t *testing.T) {
	store := &scriptedStore{pages: []domain.PageAsset{{PageNumber: 1, ImageRef: "https://cdn/1.png"}}}
	base := basePages(2, 1, 1)
	before := base.Clone()

	if _, err := (&Assembler{Store: store}).Assemble(context.Background(), "job-1", base); err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	if !reflect.DeepEqual(base, before) {
		t.Fatalf("base was modified:\n%+v\n%+v", base, before)
	}
}

func TestAssembleIsIdempotent(t *testing.T) {
	store := &scriptedStore{
		pages: []domain.PageAsset{{PageNumber: 3, ImageRef: "https://cdn/3.png"}, {PageNumber: 1, ImageRef: "https://cdn/1.png"}},
		chars: []domain.CharacterAsset{{Name: "Owl", ImageRef: "https://cdn/owl.png"}},
	}
	a := &Assembler{Store: store}
	base := basePages(3, 1, 2, 2)
	base.Pages[0].WasFixed = true

	once, err := a.Assemble(context.Background(), "job-1", base)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	twice, err := a.Assemble(context.Background(), "job-1", once)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	first, _ := json.Marshal(once)
	second, _ := json.Marshal(twice)
	if string(first) != string(second) {
		t.Fatalf("not idempotent:\n%s\n%s", first, second)
	}
	if once.Metadata.PageCount != 3 || once.Metadata.PagesFixed != 1 || !once.Metadata.AnyPageFixed {
		t.Fatalf("unexpected metadata: %+v", once.Metadata)
	}
}

func TestAssembleSynthesizesMissingBase(t *testing.T) {
	store := &scriptedStore{
		pages: []domain.PageAsset{
			{PageNumber: 2, ImageRef: "https://cdn/2.png", Caption: "Noon"},
			{PageNumber: 1, ImageRef: "https://cdn/1.png", Caption: "Morning"},
		},
		chars: []domain.CharacterAsset{{Name: "Fox", ImageRef: "https://cdn/fox.png", IsHero: true}},
	}
	out, err := (&Assembler{Store: store}).Assemble(context.Background(), "job-7", nil)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	if out.JobID != "job-7" || len(out.Pages) != 2 || out.Pages[0].Caption != "Morning" || out.Pages[0].ImageData != "https://cdn/1.png" {
		t.Fatalf("unexpected synthesized result: %+v", out)
	}
	if len(out.Characters) != 1 || out.Characters[0].Role != "hero" || out.Characters[0].ReferenceImage != "https://cdn/fox.png" {
		t.Fatalf("unexpected characters: %+v", out.Characters)
	}
}

func TestAssembleFetchErrorIsStoreUnavailable(t *testing.T) {
	boom := errors.New("timeout")
	for name, store := range map[string]*scriptedStore{
		"pages":      {pageErr: boom},
		"characters": {charErr: boom},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := (&Assembler{Store: store}).Assemble(context.Background(), "job-1", basePages(1))
			if !errors.Is(err, domain.ErrStoreUnavailable) || !errors.Is(err, boom) {
				t.Fatalf("expected store error, got %v", err)
			}
		})
	}
}

func TestDecodeBase(t *testing.T) {
	if r, err := DecodeBase(nil); r != nil || err != nil {
		t.Fatalf("expected nil for empty document, got %v %v", r, err)
	}
	r, err := DecodeBase([]byte(`{"storyId":"job-1","title":"Fox","pages":[{"pageNumber":1,"caption":"a"}]}`))
	if err != nil || r.Title != "Fox" || len(r.Pages) != 1 {
		t.Fatalf("DecodeBase = %+v, %v", r, err)
	}
	if _, err := DecodeBase([]byte(`{`)); err == nil {
		t.Fatal("expected decode error")
	}
}
