package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"storystudio/internal/domain"
	"storystudio/internal/middleware"
	"storystudio/internal/realtime"
)

// StoryEvents streams progress for a story as Server-Sent Events. The stream
// starts with the current state and ends after the terminal event.
func (a *App) StoryEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	locale := middleware.LocaleFromContext(r.Context())
	render := func(ev realtime.Event) realtime.Event {
		if ev.StepID != "" {
			ev.StepLabel = a.Labels.Label(locale, ev.StepID)
		}
		return ev
	}

	// Subscribe before reading state so a terminal event published in between
	// still reaches this client.
	client := a.Hub.Subscribe(jobID)
	defer a.Hub.Unsubscribe(client)

	var initial realtime.Event
	if ctrl, ok := a.Sessions.Get(jobID); ok {
		initial = realtime.FromSnapshot(ctrl.Snapshot())
	} else {
		rec, err := a.Stories.Status(r.Context(), jobID)
		if err != nil {
			a.domainError(w, r, storeRead(err))
			return
		}
		initial = realtime.Event{
			JobID:  rec.JobID,
			Type:   realtime.EventProgress,
			Status: rec.Status,
			StepID: rec.CurrentStep,
		}
		switch {
		case rec.Status == domain.JobStatusCompleted:
			result, err := a.assemble(r.Context(), rec)
			if err != nil {
				a.domainError(w, r, err)
				return
			}
			initial.Type, initial.Phase, initial.Result = realtime.EventComplete, domain.PhaseComplete, result
		case rec.Status.Failed():
			initial.Type, initial.Phase = realtime.EventError, domain.PhaseFailed
			initial.Error = domain.ErrGenerationFailed.Error()
			if msg := strings.TrimSpace(rec.ErrorMessage); msg != "" {
				initial.Error += ": " + msg
			}
		}
	}

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	events := append([]realtime.Event{initial}, client.Resync()...)
	a.Hub.Serve(w, r, client, render, events...)
}
