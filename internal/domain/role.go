package domain

import (
	"fmt"
	"strings"
)

// Role is the access level attached to a user account
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// AllRoles contains all valid roles from least to most privileged
var AllRoles = []Role{RoleUser, RoleModerator, RoleAdmin}

// IsValid checks if a role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a user-friendly display name for the role
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleModerator:
		return "Moderator"
	case RoleAdmin:
		return "Administrator"
	default:
		return string(r)
	}
}

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// EffectiveRole resolves the role used for every access decision.
// Empty or unknown values fall back to RoleUser.
func EffectiveRole(r Role) Role {
	if r.IsValid() {
		return r
	}
	return RoleUser
}

// HasAnyRole reports whether the effective role of r is one of allowed.
func HasAnyRole(r Role, allowed ...Role) bool {
	effective := EffectiveRole(r)
	for _, a := range allowed {
		if effective == a {
			return true
		}
	}
	return false
}

// JoinRoles renders roles as "admin, moderator".
func JoinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}
