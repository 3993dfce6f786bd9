// internal/users/domain.go
package users

import (
	"time"

	"github.com/google/uuid"

	"libralend/internal/auth"
)

// Role aliases the auth package's role type so the directory and the actor
// checks share one set of constants.
type Role = auth.Role

const (
	RoleAdmin     = auth.RoleAdmin
	RoleLibrarian = auth.RoleLibrarian
	RoleMember    = auth.RoleMember
)

// ParseRole normalizes a role string to its canonical form.
func ParseRole(s string) (Role, bool) { return auth.ParseRole(s) }

// User is a directory entry. Authentication lives with the external
// identity provider; this record only binds a verified identity to a role.
type User struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
