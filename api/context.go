package api

import (
	"context"

	"github.com/google/uuid"
)

type keyType string

const (
	sessionKey keyType = "session"
)

// Session identifies the caller of an authenticated request.
type Session struct {
	UserID   uuid.UUID
	Username string
	Role     string
}

// ctxWithSession adds a session to the context
func ctxWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// ctxGetSession returns the request's session, or nil for anonymous callers.
func ctxGetSession(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}
