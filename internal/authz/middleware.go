package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/lit-program/lit-portal/internal/shared"
)

// ActorSource resolves the account behind a session user ID together with
// its current role set.
type ActorSource interface {
	ResolveActor(ctx context.Context, accountID int64) (*Actor, error)
}

// Middleware wires authorization helpers for HTTP handlers.
type Middleware struct {
	Source ActorSource
	Logger *slog.Logger
}

// RequireAuthenticated loads the actor for the session user and stores it
// in the request context. Requests without a valid session are redirected
// to the login page.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := m.loadActor(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}

// RequireAny ensures the current actor holds at least one of the roles.
// It implies RequireAuthenticated.
func (m Middleware) RequireAny(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if actor == nil {
				loaded, ok := m.loadActor(r)
				if !ok {
					http.Redirect(w, r, "/login", http.StatusSeeOther)
					return
				}
				actor = loaded
				r = r.WithContext(ContextWithActor(r.Context(), actor))
			}
			if len(roles) > 0 && !actor.HasAny(roles...) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStaff is shorthand for RequireAny(admin, subadmin).
func (m Middleware) RequireStaff() func(http.Handler) http.Handler {
	return m.RequireAny(RoleAdmin, RoleSubadmin)
}

func (m Middleware) loadActor(r *http.Request) (*Actor, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return nil, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("authz parse user id", slog.String("value", raw))
		}
		return nil, false
	}
	actor, err := m.Source.ResolveActor(r.Context(), id)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("authz resolve actor", slog.Int64("id", id), slog.Any("error", err))
		}
		return nil, false
	}
	return actor, true
}
