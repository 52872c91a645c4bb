package mentorship

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
	"github.com/lit-program/lit-portal/internal/view"
)

// Handler exposes the mentorship scheduler pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	authz     authz.Middleware
}

// NewHandler builds a mentorship Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, authz: mw}
}

// MountRoutes registers the scheduler routes for signed-in members.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAuthenticated)
		r.Get("/", h.listMeetings)
		r.Post("/", h.scheduleMeeting)
		r.Post("/{id}/cancel", h.cancelMeeting)
	})
}

func (h *Handler) listMeetings(w http.ResponseWriter, r *http.Request) {
	actor := authz.ActorFromContext(r.Context())
	meetings, err := h.service.ListFor(r.Context(), actor)
	if err != nil {
		h.logger.Error("list meetings failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, map[string]any{"Meetings": meetings}, http.StatusOK)
}

func (h *Handler) scheduleMeeting(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())

	scheduledAt, err := time.ParseInLocation("2006-01-02T15:04", r.PostFormValue("scheduled_at"), time.Local)
	if err != nil {
		h.redirectWithFlash(w, r, "/mentorship", "error", "Please pick a valid date and time.")
		return
	}
	input := ScheduleInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		MeetingURL:  r.PostFormValue("meeting_url"),
		ScheduledAt: scheduledAt,
		TargetBatch: r.PostFormValue("target_batch"),
	}
	if _, err := h.service.Schedule(r.Context(), actor, input); err != nil {
		h.flashError(w, r, "/mentorship", err, "schedule meeting")
		return
	}
	h.redirectWithFlash(w, r, "/mentorship", "success", "Session scheduled.")
}

func (h *Handler) cancelMeeting(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid meeting ID", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	if err := h.service.Cancel(r.Context(), actor, id); err != nil {
		h.flashError(w, r, "/mentorship", err, "cancel meeting")
		return
	}
	h.redirectWithFlash(w, r, "/mentorship", "success", "Session cancelled.")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Mentorship Sessions",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		CurrentUser: authz.ActorFromContext(r.Context()),
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/mentorship.html", viewData); err != nil {
		h.logger.Error("render template", slog.String("template", "pages/mentorship.html"), slog.Any("error", err))
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
