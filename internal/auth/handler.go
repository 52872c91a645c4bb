package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lit-program/lit-portal/internal/shared"
	"github.com/lit-program/lit-portal/internal/view"
)

// Handler exposes the login and logout endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *shared.SessionManager
	templates *view.Engine
	csrf      *shared.CSRFManager
	validate  *validator.Validate
}

// NewHandler builds an auth Handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		sessions:  sessions,
		templates: templates,
		csrf:      csrf,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers the auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil && sess.User() != "" {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, "", "", http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	if err := h.validate.Struct(form); err != nil {
		h.renderLogin(w, r, form.Email, "Please enter a valid email and password.", http.StatusBadRequest)
		return
	}

	user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("authenticate failed", slog.Any("error", err))
		}
		h.renderLogin(w, r, form.Email, "Invalid email or password.", http.StatusUnauthorized)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	// A pre-login session ID must not survive authentication.
	if err := h.sessions.Rotate(r.Context(), sess); err != nil {
		h.logger.Error("rotate session failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back, " + user.FirstName + "!"})
	if sess.ID != "" {
		h.service.RegisterSession(r.Context(), sess.ID, user.ID, h.sessions.TTL(), clientIP(r), r.UserAgent())
	}

	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if sess.ID != "" {
			h.service.RemoveSession(r.Context(), sess.ID)
		}
		h.sessions.Destroy(sess)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, email, errMsg string, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	data := view.TemplateData{
		Title:       "Sign In",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data: map[string]any{
			"Email": email,
			"Error": errMsg,
		},
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/login.html", data); err != nil {
		h.logger.Error("render template", slog.String("template", "pages/login.html"), slog.Any("error", err))
	}
}

func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx > 0 {
		ip = ip[:idx]
	}
	return ip
}
