package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"storystudio/internal/domain"
	"storystudio/pkg/zip"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// StoryExport downloads a completed book as a zip archive holding story.json
// and every image kept in the local file store.
func (a *App) StoryExport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	result, err := a.completedResult(r.Context(), jobID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if result == nil {
		a.error(w, http.StatusConflict, "not_ready", "story has not finished generating")
		return
	}

	doc, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	entries := []zip.Entry{{Filename: "story.json", Data: doc}}
	for _, p := range result.Pages {
		if data, ext, ok := a.localFile(r.Context(), p.ImageData); ok {
			entries = append(entries, zip.Entry{Filename: fmt.Sprintf("pages/page-%02d%s", p.PageNumber, ext), Data: data})
		}
	}
	for _, c := range result.Characters {
		if data, ext, ok := a.localFile(r.Context(), c.ReferenceImage); ok {
			entries = append(entries, zip.Entry{Filename: "characters/" + safeName(c.Name) + ext, Data: data})
		}
	}
	if sub, err := a.Stories.GetSubmission(r.Context(), jobID); err == nil {
		if data, ext, ok := a.localFile(r.Context(), sub.Settings.HeroImage); ok {
			entries = append(entries, zip.Entry{Filename: "hero" + ext, Data: data})
		}
	}

	var buf bytes.Buffer
	if err := zip.Write(&buf, entries, time.Now().UTC()); err != nil {
		a.domainError(w, r, err)
		return
	}
	filename := safeName(result.Title)
	if filename == "" {
		filename = "story-" + jobID
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.zip", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// completedResult returns the assembled result, or nil when the story is not complete.
func (a *App) completedResult(ctx context.Context, jobID string) (*domain.GenerationResult, error) {
	if ctrl, ok := a.Sessions.Get(jobID); ok {
		if snap := ctrl.Snapshot(); snap.Phase == domain.PhaseComplete {
			return snap.Result, nil
		}
	}
	rec, err := a.Stories.Status(ctx, jobID)
	if err != nil {
		return nil, storeRead(err)
	}
	if rec.Status != domain.JobStatusCompleted {
		return nil, nil
	}
	return a.assemble(ctx, rec)
}

func (a *App) localFile(ctx context.Context, ref string) ([]byte, string, bool) {
	if a.Files == nil || ref == "" {
		return nil, "", false
	}
	key, ok := a.Files.KeyFromURL(ref)
	if !ok {
		return nil, "", false
	}
	data, err := a.Files.Read(ctx, key)
	if err != nil {
		a.Logger.Warn().Err(err).Str("key", key).Msg("export: stored image missing")
		return nil, "", false
	}
	return data, path.Ext(key), true
}

func safeName(v string) string {
	return strings.Trim(unsafeNameChars.ReplaceAllString(strings.TrimSpace(v), "-"), "-")
}
