package resources

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
	"github.com/lit-program/lit-portal/internal/view"
)

const maxUploadMem = 32 << 20

// Uploader stores library files and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, bucket, key string) error
}

// Handler exposes the resource library pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	uploader  Uploader
	bucket    string
	templates *view.Engine
	csrf      *shared.CSRFManager
	authz     authz.Middleware
}

// NewHandler builds a resources Handler.
func NewHandler(logger *slog.Logger, service *Service, uploader Uploader, bucket string, templates *view.Engine, csrf *shared.CSRFManager, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, uploader: uploader, bucket: bucket, templates: templates, csrf: csrf, authz: mw}
}

// MountRoutes registers the library routes for signed-in members.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAuthenticated)
		r.Get("/", h.listResources)
		r.Post("/", h.uploadResource)
		r.Post("/{id}/delete", h.deleteResource)
	})
}

func (h *Handler) listResources(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	items, err := h.service.List(r.Context(), category)
	if err != nil {
		h.logger.Error("list resources failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, map[string]any{
		"Resources":  items,
		"Categories": Categories,
		"Category":   category,
	}, http.StatusOK)
}

func (h *Handler) uploadResource(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMem); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())

	file, header, err := r.FormFile("file")
	if err != nil {
		h.redirectWithFlash(w, r, "/resources", "error", "A file is required.")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := uuid.NewString() + filepath.Ext(header.Filename)
	fileURL, err := h.uploader.Upload(r.Context(), h.bucket, key, file, header.Size, contentType)
	if err != nil {
		h.logger.Error("upload resource file failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/resources", "error", "Could not upload file. Please try again.")
		return
	}

	input := UploadInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Category:    r.PostFormValue("category"),
		FileName:    header.Filename,
		FileURL:     fileURL,
		ContentType: contentType,
		Size:        header.Size,
	}
	if _, err := h.service.Create(r.Context(), actor, input); err != nil {
		// The metadata row failed; the orphaned object is cleaned up.
		if removeErr := h.uploader.Remove(r.Context(), h.bucket, key); removeErr != nil {
			h.logger.Warn("remove orphaned object failed", slog.String("key", key), slog.Any("error", removeErr))
		}
		h.flashError(w, r, "/resources", err, "create resource")
		return
	}
	h.redirectWithFlash(w, r, "/resources", "success", "Resource uploaded.")
}

func (h *Handler) deleteResource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid resource ID", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	res, err := h.service.Delete(r.Context(), actor, id)
	if err != nil {
		h.flashError(w, r, "/resources", err, "delete resource")
		return
	}
	if key := objectKey(res.FileURL, h.bucket); key != "" {
		if err := h.uploader.Remove(r.Context(), h.bucket, key); err != nil {
			h.logger.Warn("remove object failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	h.redirectWithFlash(w, r, "/resources", "success", "Resource deleted.")
}

// objectKey recovers the storage key from a public URL of the form
// <base>/<bucket>/<key>.
func objectKey(fileURL, bucket string) string {
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}
	marker := "/" + bucket + "/"
	idx := strings.Index(parsed.Path, marker)
	if idx < 0 {
		return ""
	}
	key, err := url.PathUnescape(parsed.Path[idx+len(marker):])
	if err != nil {
		return ""
	}
	return key
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Resource Library",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		CurrentUser: authz.ActorFromContext(r.Context()),
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/resources.html", viewData); err != nil {
		h.logger.Error("render template", slog.String("template", "pages/resources.html"), slog.Any("error", err))
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
