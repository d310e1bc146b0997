package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"storystudio/internal/domain"
	"storystudio/internal/domain/jsoncfg"
	"storystudio/internal/generation"
	"storystudio/internal/middleware"
	"storystudio/internal/storage"
)

const (
	maxStoryRunes   = 50000
	maxRequestBytes = 16 << 20
	defaultListSize = 50
	maxListSize     = 200
)

type createStoryRequest struct {
	StoryID   string                `json:"storyId"`
	StoryText string                `json:"storyText"`
	FileName  string                `json:"fileName"`
	Settings  jsoncfg.StorySettings `json:"settings"`
}

type storyResponse struct {
	StoryID     string                   `json:"storyId"`
	Phase       domain.Phase             `json:"phase,omitempty"`
	Status      domain.JobStatus         `json:"status,omitempty"`
	CurrentStep string                   `json:"currentStep,omitempty"`
	Error       string                   `json:"error,omitempty"`
	Attempt     int                      `json:"attempt,omitempty"`
	Result      *domain.GenerationResult `json:"result,omitempty"`
}

// StoriesCreate records a submission and starts tracking its generation.
func (a *App) StoriesCreate(w http.ResponseWriter, r *http.Request) {
	var req createStoryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.StoryText = strings.TrimSpace(req.StoryText)
	if req.StoryText == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "storyText is required")
		return
	}
	if utf8.RuneCountInString(req.StoryText) > maxStoryRunes {
		a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("storyText must be at most %d characters", maxStoryRunes))
		return
	}

	jobID := strings.TrimSpace(req.StoryID)
	if jobID == "" {
		jobID = a.NewID()
	} else if _, err := uuid.Parse(jobID); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "storyId must be a UUID")
		return
	}

	settings := req.Settings
	settings.Normalize()
	if err := settings.Validate(); err != nil {
		a.domainError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidSettings, err.Error()))
		return
	}
	if storage.IsDataURL(settings.HeroImage) {
		ref, err := a.storeHeroImage(r.Context(), jobID, settings.HeroImage)
		if err != nil {
			a.error(w, http.StatusBadRequest, "invalid_settings", "heroImage could not be stored: "+err.Error())
			return
		}
		settings.HeroImage = ref
	}

	sub := &domain.Submission{
		JobID:     jobID,
		StoryText: req.StoryText,
		FileName:  strings.TrimSpace(req.FileName),
		Settings:  settings,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.Stories.Create(r.Context(), sub); err != nil {
		a.domainError(w, r, err)
		return
	}
	ctrl, err := a.Sessions.Start(sub)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.Logger.Info().Str("job_id", jobID).Int("pages", settings.DesiredPageCount).Msg("story submitted")
	a.json(w, http.StatusAccepted, a.snapshotResponse(r, ctrl.Snapshot()))
}

func (a *App) storeHeroImage(ctx context.Context, jobID, dataURL string) (string, error) {
	if a.Files == nil {
		return "", errors.New("file storage is not configured")
	}
	key, err := a.Files.SaveDataURL(ctx, "heroes", jobID, dataURL)
	if err != nil {
		return "", err
	}
	return a.Files.PublicURL(key), nil
}

// StoriesList returns the story library, newest first.
func (a *App) StoriesList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxListSize)
	}
	stories, err := a.Stories.ListStories(r.Context(), limit)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if stories == nil {
		stories = []domain.StorySummary{}
	}
	a.json(w, http.StatusOK, map[string]any{"items": stories})
}

// StoryGet reports the live session when there is one, otherwise the stored state.
func (a *App) StoryGet(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if ctrl, ok := a.Sessions.Get(jobID); ok {
		a.json(w, http.StatusOK, a.snapshotResponse(r, ctrl.Snapshot()))
		return
	}

	rec, err := a.Stories.Status(r.Context(), jobID)
	if err != nil {
		a.domainError(w, r, storeRead(err))
		return
	}
	resp := storyResponse{
		StoryID:     rec.JobID,
		Status:      rec.Status,
		CurrentStep: a.label(r, rec.CurrentStep),
	}
	switch {
	case rec.Status == domain.JobStatusCompleted:
		result, err := a.assemble(r.Context(), rec)
		if err != nil {
			a.domainError(w, r, err)
			return
		}
		resp.Phase = domain.PhaseComplete
		resp.Result = result
	case rec.Status.Failed():
		resp.Phase = domain.PhaseFailed
		resp.Error = domain.ErrGenerationFailed.Error()
		if msg := strings.TrimSpace(rec.ErrorMessage); msg != "" {
			resp.Error += ": " + msg
		}
	}
	a.json(w, http.StatusOK, resp)
}

// StorySource returns the recorded submission.
func (a *App) StorySource(w http.ResponseWriter, r *http.Request) {
	sub, err := a.Stories.GetSubmission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"storyId":   sub.JobID,
		"title":     domain.ExtractTitle(sub.StoryText),
		"storyText": sub.StoryText,
		"fileName":  sub.FileName,
		"settings":  sub.Settings,
		"createdAt": sub.CreatedAt,
	})
}

// StoryRetry restarts a failed generation with its original submission.
func (a *App) StoryRetry(w http.ResponseWriter, r *http.Request) {
	ctrl, err := a.Sessions.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, a.snapshotResponse(r, ctrl.Snapshot()))
}

// StoryCancel stops tracking a generation. The executor is not stopped.
func (a *App) StoryCancel(w http.ResponseWriter, r *http.Request) {
	if !a.Sessions.Cancel(chi.URLParam(r, "id")) {
		a.error(w, http.StatusNotFound, "not_found", "no active session for this story")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) snapshotResponse(r *http.Request, s generation.Snapshot) storyResponse {
	return storyResponse{
		StoryID:     s.JobID,
		Phase:       s.Phase,
		Status:      s.Status,
		CurrentStep: a.label(r, s.StepID),
		Error:       s.Error,
		Attempt:     s.Attempt,
		Result:      s.Result,
	}
}

func (a *App) label(r *http.Request, stepID string) string {
	if stepID == "" {
		return ""
	}
	return a.Labels.Label(middleware.LocaleFromContext(r.Context()), stepID)
}

// assemble rebuilds the result of a completed job from the store.
func (a *App) assemble(ctx context.Context, rec *domain.StatusRecord) (*domain.GenerationResult, error) {
	base, err := generation.DecodeBase(rec.Result)
	if err != nil {
		a.Logger.Warn().Err(err).Str("job_id", rec.JobID).Msg("stored result unreadable, rebuilding from assets")
		base = nil
	}
	result, err := a.Assembler.Assemble(ctx, rec.JobID, base)
	if err != nil {
		return nil, err
	}
	if result.Title == "" {
		if sub, err := a.Stories.GetSubmission(ctx, rec.JobID); err == nil {
			result.Title = domain.ExtractTitle(sub.StoryText)
		}
	}
	return result, nil
}
