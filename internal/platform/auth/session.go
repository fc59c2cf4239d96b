package auth

import (
	"context"

	"github.com/google/uuid"
)

const (
	RoleAdmin      = "admin"
	RoleDoctor     = "doctor"
	RolePatient    = "patient"
	RoleLHW        = "lhw" // local healthcare worker
	RolePharmacist = "pharmacist"
)

var knownRoles = map[string]bool{
	RoleAdmin: true, RoleDoctor: true, RolePatient: true, RoleLHW: true, RolePharmacist: true,
}

// ValidRole reports whether role is one of the platform roles.
func ValidRole(role string) bool { return knownRoles[role] }

// Session is the identity of the caller. Services receive it explicitly
// instead of looking it up from ambient state.
type Session struct {
	UserID      uuid.UUID
	Role        string
	DisplayName string
}

// Is reports whether the session holds one of roles.
func (s Session) Is(roles ...string) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

// Anonymous reports whether no session was established.
func (s Session) Anonymous() bool { return s.Role == "" }

type contextKey string

const sessionKey contextKey = "session"

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the session stored by the auth middleware, or
// the zero Session.
func SessionFromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey).(Session)
	return s
}
