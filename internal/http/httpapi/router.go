package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"studio/internal/http/handlers"
	"studio/internal/middleware"
)

// Options configures the middleware stack.
type Options struct {
	Logger          zerolog.Logger
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
	AllowedOrigins  []string
	StoragePath     string

	// GenerationLimitPerMin bounds requests that start provider work.
	GenerationLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	if opts.StoragePath != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StoragePath)))
		r.Handle("/static/*", fs)
	}

	general := middleware.NewLimiter(opts.RateLimitPerMin, time.Minute).Scope("api")
	generation := middleware.NewLimiter(opts.GenerationLimitPerMin, time.Minute).Scope("generation")

	r.Route("/v1/projects", func(r chi.Router) {
		r.Use(general)
		r.Post("/", app.CreateProject)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.GetProject)
			r.With(generation).Post("/runs", app.EnqueueRun)
			r.Get("/runs/latest", app.LatestRun)
			r.Get("/assets", app.ListAssets)
			r.With(generation).Post("/scenes/{sceneID}/regenerate", app.RegenerateSceneAsset)
			r.With(generation).Put("/scenes/{sceneID}/narration", app.UpdateNarration)
			r.With(generation).Post("/music/regenerate", app.RegenerateMusic)
			r.Post("/undo", app.Undo)
			r.Post("/redo", app.Redo)
			r.Get("/render-readiness", app.RenderReadiness)
			r.Get("/render-bundle", app.RenderBundle)
		})
	})

	return r
}
