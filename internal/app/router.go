package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lit-program/lit-portal/internal/accounts"
	"github.com/lit-program/lit-portal/internal/alumni"
	"github.com/lit-program/lit-portal/internal/applications"
	"github.com/lit-program/lit-portal/internal/auth"
	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/feed"
	"github.com/lit-program/lit-portal/internal/mentorship"
	"github.com/lit-program/lit-portal/internal/observability"
	"github.com/lit-program/lit-portal/internal/platform/httpx"
	"github.com/lit-program/lit-portal/internal/resources"
	"github.com/lit-program/lit-portal/internal/shared"
	"github.com/lit-program/lit-portal/internal/view"
	"github.com/lit-program/lit-portal/jobs"
	"github.com/lit-program/lit-portal/web"
)

// RouterParams aggregates everything the HTTP router needs.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Pool           *pgxpool.Pool
	Redis          *redis.Client
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
	Authz          authz.Middleware

	AuthHandler         *auth.Handler
	AccountsHandler     *accounts.Handler
	ApplicationsHandler *applications.Handler
	FeedHandler         *feed.Handler
	ResourcesHandler    *resources.Handler
	MentorshipHandler   *mentorship.Handler
	AlumniHandler       *alumni.Handler
	JobsHandler         *jobs.Handler

	AlumniService *alumni.Service
}

// NewRouter assembles the portal's route tree.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         p.Logger,
		Config:         p.Config,
		SessionManager: p.SessionManager,
		CSRFManager:    p.CSRFManager,
		Metrics:        p.Metrics,
	}) {
		r.Use(mw)
	}

	pages := pagesHandler{
		logger:    p.Logger,
		templates: p.Templates,
		csrf:      p.CSRFManager,
		alumni:    p.AlumniService,
	}

	r.Get("/", pages.landing)
	r.Get("/about", pages.about)
	r.Get("/policies", pages.policies)
	r.Group(func(r chi.Router) {
		r.Use(p.Authz.RequireAuthenticated)
		r.Get("/home", pages.home)
	})

	p.AuthHandler.MountRoutes(r)
	r.Route("/apply", p.ApplicationsHandler.MountPublicRoutes)
	r.Route("/feed", p.FeedHandler.MountRoutes)
	r.Route("/resources", p.ResourcesHandler.MountRoutes)
	r.Route("/mentorship", p.MentorshipHandler.MountRoutes)
	r.Route("/alumni", p.AlumniHandler.MountRoutes)
	r.Route("/network", p.AccountsHandler.MountDirectoryRoutes)
	r.Route("/profile", p.AccountsHandler.MountProfileRoutes)

	r.Route("/admin", func(r chi.Router) {
		r.Route("/users", p.AccountsHandler.MountAdminRoutes)
		r.Route("/applications", p.ApplicationsHandler.MountAdminRoutes)
		if p.JobsHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(p.Authz.RequireStaff())
				r.Route("/jobs", p.JobsHandler.MountRoutes)
			})
		}
	})

	r.Get("/healthz", healthz(p.Pool, p.Redis))
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err == nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	return r
}

func healthz(pool *pgxpool.Pool, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				httpx.Problem(w, http.StatusServiceUnavailable, "Unhealthy", "database unavailable")
				return
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				httpx.Problem(w, http.StatusServiceUnavailable, "Unhealthy", "redis unavailable")
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// pagesHandler serves the public landing page and the member dashboard.
type pagesHandler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	alumni    *alumni.Service
}

func (h pagesHandler) landing(w http.ResponseWriter, r *http.Request) {
	var stories []alumni.SuccessStory
	if h.alumni != nil {
		var err error
		stories, err = h.alumni.ListStories(r.Context(), 3)
		if err != nil {
			h.logger.Error("load landing stories failed", slog.Any("error", err))
			stories = nil
		}
	}
	h.render(w, r, "pages/landing.html", "LIT Program", map[string]any{"Stories": stories})
}

func (h pagesHandler) about(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/about.html", "About the LIT Program", nil)
}

func (h pagesHandler) policies(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/policies.html", "Policies & Procedures", nil)
}

func (h pagesHandler) home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/home.html", "Dashboard", nil)
}

func (h pagesHandler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken := ""
	if sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		CurrentUser: authz.ActorFromContext(r.Context()),
		Data:        data,
	}
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", template), slog.Any("error", err))
	}
}
