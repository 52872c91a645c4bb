package alumni

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
	"github.com/lit-program/lit-portal/internal/view"
)

// Handler exposes the alumni directory and story management pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	authz     authz.Middleware
}

// NewHandler builds an alumni Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, authz: mw}
}

// MountRoutes registers the directory view for members and the staff-only
// management actions.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAuthenticated)
		r.Get("/", h.showDirectory)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireStaff())
		r.Post("/", h.addAlumnus)
		r.Post("/{id}/delete", h.removeAlumnus)
		r.Post("/stories", h.addStory)
		r.Post("/stories/{id}/delete", h.removeStory)
	})
}

func (h *Handler) showDirectory(w http.ResponseWriter, r *http.Request) {
	alumni, err := h.service.ListAlumni(r.Context())
	if err != nil {
		h.logger.Error("list alumni failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	stories, err := h.service.ListStories(r.Context(), 0)
	if err != nil {
		h.logger.Error("list stories failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, map[string]any{"Alumni": alumni, "Stories": stories}, http.StatusOK)
}

func (h *Handler) addAlumnus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	entry := Alumnus{
		Name:        r.PostFormValue("name"),
		BatchYear:   r.PostFormValue("batch_year"),
		CurrentRole: r.PostFormValue("current_role"),
		Company:     r.PostFormValue("company"),
		LinkedIn:    r.PostFormValue("linkedin"),
	}
	if _, err := h.service.AddAlumnus(r.Context(), actor, entry); err != nil {
		h.flashError(w, r, "/alumni", err, "add alumnus")
		return
	}
	h.redirectWithFlash(w, r, "/alumni", "success", "Alumnus added to the registry.")
}

func (h *Handler) removeAlumnus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	if err := h.service.RemoveAlumnus(r.Context(), actor, id); err != nil {
		h.flashError(w, r, "/alumni", err, "remove alumnus")
		return
	}
	h.redirectWithFlash(w, r, "/alumni", "success", "Registry entry removed.")
}

func (h *Handler) addStory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	story := SuccessStory{
		Title:     r.PostFormValue("title"),
		Body:      r.PostFormValue("body"),
		Alumnus:   r.PostFormValue("alumnus"),
		BatchYear: r.PostFormValue("batch_year"),
	}
	if _, err := h.service.AddStory(r.Context(), actor, story); err != nil {
		h.flashError(w, r, "/alumni", err, "add story")
		return
	}
	h.redirectWithFlash(w, r, "/alumni", "success", "Success story published.")
}

func (h *Handler) removeStory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	if err := h.service.RemoveStory(r.Context(), actor, id); err != nil {
		h.flashError(w, r, "/alumni", err, "remove story")
		return
	}
	h.redirectWithFlash(w, r, "/alumni", "success", "Success story removed.")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Alumni",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		CurrentUser: authz.ActorFromContext(r.Context()),
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/alumni.html", viewData); err != nil {
		h.logger.Error("render template", slog.String("template", "pages/alumni.html"), slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *Handler) flashError(w http.ResponseWriter, r *http.Request, location string, err error, op string) {
	var userErr *shared.UserError
	if !errors.As(err, &userErr) && !errors.Is(err, shared.ErrNotFound) {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
	h.redirectWithFlash(w, r, location, "error", shared.UserSafeMessage(err))
}
