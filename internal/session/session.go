// Package session carries the authenticated caller through a request.
//
// A Session is built by the authentication middleware from a bearer token and
// the caller's stored role, placed on the request context, and passed
// explicitly to the services that need it.
package session

import (
	"context"

	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

type Session struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role.IsAdmin
}

func (s *Session) CanVote() bool {
	return s != nil && s.Role.IsVoter
}

type contextKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored on ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
