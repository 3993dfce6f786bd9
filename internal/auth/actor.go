// internal/auth/actor.go

// Package auth extracts the verified actor from incoming requests. Token
// verification happens at the identity gateway; by the time a request
// reaches this service the gateway has stamped the caller's identity and
// role into headers.
package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"libralend/internal/liberr"
)

// Role is the access level an actor holds.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleLibrarian Role = "LIBRARIAN"
	RoleMember    Role = "MEMBER"
)

// ParseRole normalizes a role string to its canonical form.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleLibrarian, RoleMember:
		return Role(s), true
	}
	return "", false
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// IsLibrarian reports whether the actor can perform librarian operations.
// Admins hold every librarian permission.
func (a Actor) IsLibrarian() bool {
	return a.Role == RoleLibrarian || a.Role == RoleAdmin
}

// IsAdmin reports whether the actor can perform admin operations.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

type ctxKey struct{}

const (
	headerUserID = "X-User-ID"
	headerRole   = "X-User-Role"
)

// Middleware resolves the actor headers and stores the Actor on the request
// context. Requests without a valid identity are rejected before reaching
// any handler.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(headerUserID))
		if err != nil {
			http.Error(w, "missing or invalid "+headerUserID+" header", http.StatusUnauthorized)
			return
		}
		role, ok := ParseRole(r.Header.Get(headerRole))
		if !ok {
			http.Error(w, "missing or invalid "+headerRole+" header", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, Actor{UserID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the Actor stored by Middleware. The zero Actor is
// returned for contexts that never passed through it (tests construct
// actors directly instead).
func FromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(ctxKey{}).(Actor)
	return a
}

// WithActor returns a context carrying the given actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// RequireLibrarian fails with Unauthorized unless the actor holds the
// librarian (or admin) role.
func RequireLibrarian(a Actor) error {
	if !a.IsLibrarian() {
		return liberr.New(liberr.KindUnauthorized, "operation requires librarian role, actor has %s", a.Role)
	}
	return nil
}

// RequireAdmin fails with Unauthorized unless the actor is an admin.
func RequireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return liberr.New(liberr.KindUnauthorized, "operation requires admin role, actor has %s", a.Role)
	}
	return nil
}
