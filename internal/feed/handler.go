package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/platform/httpx"
	"github.com/lit-program/lit-portal/internal/shared"
	"github.com/lit-program/lit-portal/internal/view"
)

const (
	postsPerPage     = 10
	maxAttachmentMem = 10 << 20
	maxAttachments   = 4
)

// Uploader stores attachment files and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (string, error)
}

// Handler exposes the community feed pages, moderation actions, and the
// realtime comment stream.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	broadcaster *Broadcaster
	uploader    Uploader
	bucket      string
	templates   *view.Engine
	csrf        *shared.CSRFManager
	authz       authz.Middleware
}

// NewHandler builds a feed Handler.
func NewHandler(logger *slog.Logger, service *Service, broadcaster *Broadcaster, uploader Uploader, bucket string, templates *view.Engine, csrf *shared.CSRFManager, mw authz.Middleware) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		broadcaster: broadcaster,
		uploader:    uploader,
		bucket:      bucket,
		templates:   templates,
		csrf:        csrf,
		authz:       mw,
	}
}

// MountRoutes registers the feed routes. Every route requires a signed-in
// member.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAuthenticated)
		r.Get("/", h.showFeed)
		r.Post("/", h.createPost)
		r.Post("/{postID}/delete", h.deletePost)
		r.Post("/{postID}/comments", h.addComment)
		r.Post("/{postID}/comments/{commentID}/delete", h.deleteComment)
		r.Get("/{postID}/events", h.streamComments)
	})
}

func (h *Handler) showFeed(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	posts, pagination, err := h.service.ListPage(r.Context(), page, postsPerPage)
	if err != nil {
		h.logger.Error("list feed failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, map[string]any{"Posts": posts, "Pagination": pagination}, http.StatusOK)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAttachmentMem); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())

	var attachments []Attachment
	if r.MultipartForm != nil {
		files := r.MultipartForm.File["attachments"]
		if len(files) > maxAttachments {
			h.redirectWithFlash(w, r, "/feed", "error", fmt.Sprintf("A post can carry at most %d attachments.", maxAttachments))
			return
		}
		for _, header := range files {
			attachment, err := h.storeAttachment(r.Context(), header)
			if err != nil {
				h.logger.Error("store attachment failed", slog.Any("error", err))
				h.redirectWithFlash(w, r, "/feed", "error", "Could not upload attachment. Please try again.")
				return
			}
			attachments = append(attachments, *attachment)
		}
	}

	if _, err := h.service.CreatePost(r.Context(), actor, r.PostFormValue("body"), attachments); err != nil {
		h.flashError(w, r, "/feed", err, "create post")
		return
	}
	h.redirectWithFlash(w, r, "/feed", "success", "Post published.")
}

func (h *Handler) storeAttachment(ctx context.Context, header *multipart.FileHeader) (*Attachment, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := uuid.NewString() + filepath.Ext(header.Filename)
	url, err := h.uploader.Upload(ctx, h.bucket, key, file, header.Size, contentType)
	if err != nil {
		return nil, err
	}
	return &Attachment{
		Name:        header.Filename,
		URL:         url,
		ContentType: contentType,
		Size:        header.Size,
	}, nil
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	if err := h.service.DeletePost(r.Context(), actor, postID); err != nil {
		h.flashError(w, r, "/feed", err, "delete post")
		return
	}
	h.redirectWithFlash(w, r, "/feed", "success", "Post deleted.")
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	if _, err := h.service.AddComment(r.Context(), actor, postID, r.PostFormValue("body"), r.PostFormValue("client_id")); err != nil {
		h.flashError(w, r, "/feed", err, "add comment")
		return
	}
	http.Redirect(w, r, "/feed", http.StatusSeeOther)
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}
	commentID, err := strconv.ParseInt(chi.URLParam(r, "commentID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	actor := authz.ActorFromContext(r.Context())
	if err := h.service.DeleteComment(r.Context(), actor, postID, commentID, r.PostFormValue("client_id")); err != nil {
		h.flashError(w, r, "/feed", err, "delete comment")
		return
	}
	http.Redirect(w, r, "/feed", http.StatusSeeOther)
}

// streamComments serves the comment stream for a post as server-sent
// events. The stream stays open until the client disconnects.
func (h *Handler) streamComments(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid post ID")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.broadcaster.Subscribe(r.Context(), postID)
	defer cancel()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Community Feed",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		CurrentUser: authz.ActorFromContext(r.Context()),
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/feed.html", viewData); err != nil {
		h.logger.Error("render template", slog.String("template", "pages/feed.html"), slog.Any("error", err))
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
