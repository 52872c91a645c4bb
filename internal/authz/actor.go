package authz

import "context"

// Actor describes the authenticated account for the current request. Roles
// are resolved fresh on every request; they are never cached in the session
// because an account can be promoted or demoted at any time.
type Actor struct {
	ID        int64
	Email     string
	Name      string
	BatchYear string
	Roles     RoleSet
}

// IsStaff reports whether the actor holds admin or subadmin.
func (a Actor) IsStaff() bool { return a.Roles.IsStaff() }

// Has reports whether the actor holds the role.
func (a Actor) Has(role Role) bool { return a.Roles.Has(role) }

// HasAny reports whether the actor holds at least one of the roles.
func (a Actor) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if a.Roles.Has(r) {
			return true
		}
	}
	return false
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context, or nil when the request
// is unauthenticated.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}
