package session

import (
	"context"
	"time"
)

// Session represents an authenticated user session.
// It intentionally stores only the local user id, never profile data;
// the full user record is rehydrated from the user store per request.
type Session struct {
	SessionID string    // unique session identifier
	UserID    string    // references users.id
	CreatedAt time.Time // when the session was bound
	ExpiresAt time.Time // absolute expiry time
}

// Store defines how sessions are stored and retrieved.
// A missing session is (nil, nil); errors mean the store failed.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}
