package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"storystudio/internal/http/handlers"
	"storystudio/internal/middleware"
)

// Options configures the cross-cutting middleware.
type Options struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Route("/v1/stories", func(r chi.Router) {
		r.Get("/", app.StoriesList)
		r.With(submitLimit(opts.RateLimitPerMin)).Post("/", app.StoriesCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.StoryGet)
			r.Get("/source", app.StorySource)
			r.Get("/events", app.StoryEvents)
			r.Get("/export", app.StoryExport)
			r.Post("/retry", app.StoryRetry)
			r.Delete("/session", app.StoryCancel)
		})
	})

	if app.Files != nil {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(app.Files.BasePath())))
		r.Handle("/static/*", fs)
	}

	return r
}

func submitLimit(perMin int) func(http.Handler) http.Handler {
	if perMin <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(perMin, time.Minute)
}
