package applications

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

// Handler exposes the public application form and the admin review console.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	authz     authz.Middleware
}

// NewHandler builds an applications Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, authz: mw}
}

// MountPublicRoutes registers the unauthenticated application form.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/", h.showForm)
	r.Post("/", h.submit)
}

// MountAdminRoutes registers the staff review console. Approval and
// rejection are further restricted to admins in the service layer.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireStaff())
		r.Get("/", h.listApplications)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/apply.html", "Apply", map[string]any{"Form": SubmitInput{}}, http.StatusOK)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	input := SubmitInput{
		FullName:     r.PostFormValue("full_name"),
		Email:        r.PostFormValue("email"),
		UniversityID: r.PostFormValue("university_id"),
		BatchYear:    r.PostFormValue("batch_year"),
		Major:        r.PostFormValue("major"),
		GPA:          r.PostFormValue("gpa"),
		Essay:        r.PostFormValue("essay"),
	}
	if _, err := h.service.Submit(r.Context(), input); err != nil {
		var userErr *shared.UserError
		if !errors.As(err, &userErr) && !errors.Is(err, shared.ErrDuplicateEmail) {
			h.logger.Error("submit application failed", slog.Any("error", err))
		}
		h.render(w, r, "pages/apply.html", "Apply", map[string]any{
			"Form":  input,
			"Error": shared.UserSafeMessage(err),
		}, http.StatusBadRequest)
		return
	}
	h.render(w, r, "pages/apply_success.html", "Application Received", nil, http.StatusOK)
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	status := Status(r.URL.Query().Get("status"))
	apps, err := h.service.List(r.Context(), status)
	if err != nil {
		h.logger.Error("list applications failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/admin/applications.html", "Applications", map[string]any{
		"Applications": apps,
		"Status":       string(status),
	}, http.StatusOK)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid application ID", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	result, err := h.service.Approve(r.Context(), actor, id)
	if err != nil {
		h.flashError(w, r, "/admin/applications", err, "approve application")
		return
	}
	message := "Application approved. Awardee role added to the existing account."
	if result.CreatedNew {
		message = "Application approved. Awardee account created and welcome email sent."
	}
	h.redirectWithFlash(w, r, "/admin/applications", "success", message)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid application ID", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	if err := h.service.Reject(r.Context(), actor, id); err != nil {
		h.flashError(w, r, "/admin/applications", err, "reject application")
		return
	}
	h.redirectWithFlash(w, r, "/admin/applications", "success", "Application rejected.")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
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
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", template), slog.Any("error", err))
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
