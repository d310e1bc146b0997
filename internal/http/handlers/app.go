package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"storystudio/internal/domain"
	"storystudio/internal/generation"
	"storystudio/internal/realtime"
	"storystudio/internal/storage"
)

// App carries the dependencies shared by the HTTP handlers.
type App struct {
	Stories   domain.StoryRepository
	Sessions  *generation.Sessions
	Assembler *generation.Assembler
	Hub       *realtime.Hub
	Files     *storage.FileStore
	Labels    *generation.Translator
	Logger    zerolog.Logger
	// Ping reports database health; nil means no check.
	Ping func(ctx context.Context) error
	// NewID generates story ids.
	NewID func() string
}

func NewApp(stories domain.StoryRepository, sessions *generation.Sessions, hub *realtime.Hub, files *storage.FileStore, logger zerolog.Logger) *App {
	return &App{
		Stories:   stories,
		Sessions:  sessions,
		Assembler: &generation.Assembler{Store: stories},
		Hub:       hub,
		Files:     files,
		Labels:    generation.NewTranslator(),
		Logger:    logger,
		NewID:     uuid.NewString,
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

// domainError maps core errors onto HTTP responses.
func (a *App) domainError(w http.ResponseWriter, r *http.Request, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "story not found")
	case errors.Is(err, domain.ErrDuplicateOperation):
		a.error(w, http.StatusConflict, "duplicate", "a generation is already running for this story")
	case errors.Is(err, domain.ErrInvalidTransition):
		a.error(w, http.StatusConflict, "invalid_state", "story cannot be retried in its current state")
	case errors.Is(err, domain.ErrInvalidSettings):
		a.error(w, http.StatusBadRequest, "invalid_settings", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("job store read failed")
		a.error(w, http.StatusServiceUnavailable, "store_unavailable", domain.ErrStoreUnavailable.Error())
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		a.error(w, http.StatusConflict, "duplicate", "story id already exists")
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// storeRead marks job store read failures so they surface as 503.
func storeRead(err error) error {
	if err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
