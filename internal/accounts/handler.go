package accounts

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

// Handler manages the admin user-management console and the profile pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	authz     authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, authz: mw}
}

// MountAdminRoutes registers the staff-only user management routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireStaff())
		r.Get("/", h.listUsers)
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.createUser)
		r.Post("/{id}/delete", h.deleteUser)
		r.Post("/{id}/reset-password", h.resetPassword)
		r.Post("/{id}/roles", h.assignRole)
		r.Post("/{id}/roles/remove", h.removeRole)
	})
}

// MountProfileRoutes registers the self-service profile routes.
func (h *Handler) MountProfileRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAuthenticated)
		r.Get("/", h.showProfile)
		r.Post("/", h.updateProfile)
	})
}

// MountDirectoryRoutes registers the member-facing community directory.
func (h *Handler) MountDirectoryRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAuthenticated)
		r.Get("/", h.showDirectory)
	})
}

type formErrors map[string]string

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list accounts failed", slog.Any("error", err))
		h.render(w, r, "pages/admin/users_list.html", "Users", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/admin/users_list.html", "Users", map[string]any{"Accounts": accounts}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/admin/user_form.html", "Create User", map[string]any{"Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	input := CreateInput{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		Role:      r.PostFormValue("role"),
		BatchYear: r.PostFormValue("batch_year"),
	}
	if _, err := h.service.Create(r.Context(), actor, input); err != nil {
		h.logger.Warn("create account failed", slog.Any("error", err))
		h.render(w, r, "pages/admin/user_form.html", "Create User", map[string]any{
			"Errors": formErrors{"general": shared.UserSafeMessage(err)},
			"Form":   input,
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/admin/users", "success", "User created successfully.")
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.flashError(w, r, "/admin/users", err, "delete account")
		return
	}
	h.redirectWithFlash(w, r, "/admin/users", "success", "User account deleted.")
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	if err := h.service.ResetPassword(r.Context(), actor, id, r.PostFormValue("new_password")); err != nil {
		h.flashError(w, r, "/admin/users", err, "reset password")
		return
	}
	h.redirectWithFlash(w, r, "/admin/users", "success", "Password updated.")
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	if err := h.service.AssignRole(r.Context(), actor, id, r.PostFormValue("role")); err != nil {
		h.flashError(w, r, "/admin/users", err, "assign role")
		return
	}
	h.redirectWithFlash(w, r, "/admin/users", "success", "Role added.")
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	if err := h.service.RemoveRole(r.Context(), actor, id, r.PostFormValue("role")); err != nil {
		h.flashError(w, r, "/admin/users", err, "remove role")
		return
	}
	h.redirectWithFlash(w, r, "/admin/users", "success", "Role removed.")
}

func (h *Handler) showDirectory(w http.ResponseWriter, r *http.Request) {
	directory, err := h.service.Directory(r.Context())
	if err != nil {
		h.logger.Error("load directory failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/network.html", "Community Directory", map[string]any{
		"Mentors":  directory.Mentors,
		"Scholars": directory.Scholars,
	}, http.StatusOK)
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	actor := authz.ActorFromContext(r.Context())
	account, err := h.service.Get(r.Context(), actor.ID)
	if err != nil {
		h.logger.Error("load profile failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/profile.html", "My Profile", map[string]any{"Account": account, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	input := ProfileInput{
		FirstName:       r.PostFormValue("first_name"),
		LastName:        r.PostFormValue("last_name"),
		Bio:             r.PostFormValue("bio"),
		PhoneNumber:     r.PostFormValue("phone_number"),
		NewPassword:     r.PostFormValue("new_password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	if err := h.service.UpdateProfile(r.Context(), actor.ID, input); err != nil {
		account, getErr := h.service.Get(r.Context(), actor.ID)
		if getErr != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		h.render(w, r, "pages/profile.html", "My Profile", map[string]any{
			"Account": account,
			"Errors":  formErrors{"general": shared.UserSafeMessage(err)},
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/profile", "success", "Profile updated successfully.")
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
