package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role is the portal a staff member signed into.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
	RoleNurse  Role = "nurse"
)

// ParseRole validates a role string from a login form.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleAdmin, RoleDoctor, RoleNurse:
		return r, true
	}
	return "", false
}

// ErrSessionNotFound is returned by a SessionStore for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Principal is an authenticated staff identity, before a session exists.
type Principal struct {
	StaffID uuid.UUID
	Name    string
	Email   string
	Role    Role
}

// Session is the explicit login state carried through every request. It is
// created at login, looked up on each request and destroyed at logout.
type Session struct {
	ID        string    `json:"id"`
	StaffID   uuid.UUID `json:"staff_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSession opens a session for p lasting ttl from now.
func NewSession(p *Principal, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StaffID:   p.StaffID,
		Name:      p.Name,
		Email:     p.Email,
		Role:      p.Role,
		IssuedAt:  now.UTC(),
		ExpiresAt: now.UTC().Add(ttl),
	}
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// HasRole reports whether the session satisfies any of roles. Admin
// satisfies every role.
func (s *Session) HasRole(roles ...Role) bool {
	if s == nil {
		return false
	}
	if s.Role == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

// SessionStore persists sessions between requests.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the request's session, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}
