package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/voicebot/voicebot/internal/auth"
	"github.com/voicebot/voicebot/internal/capture"
	"github.com/voicebot/voicebot/internal/observability"
	"github.com/voicebot/voicebot/internal/platform/httpx"
	"github.com/voicebot/voicebot/internal/shared"
	"github.com/voicebot/voicebot/internal/view"
	"github.com/voicebot/voicebot/jobs"
	"github.com/voicebot/voicebot/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Renderer       *view.Renderer
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	CaptureHandler *capture.Handler
	Sequencer      *capture.Sequencer
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with the application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	pages := &pageHandler{
		logger:    params.Logger,
		renderer:  params.Renderer,
		sequencer: params.Sequencer,
	}
	r.Get("/", pages.bootstrap)
	r.Get("/welcome", pages.landing)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequirePage(params.Renderer))
		r.Get("/dashboard", pages.dashboard)
	})
	r.With(auth.RequireAPI).Get("/profile", pages.profile)

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.CaptureHandler != nil {
		r.Route("/capture", func(r chi.Router) {
			r.Use(auth.RequireAPI)
			params.CaptureHandler.MountRoutes(r)
		})
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
