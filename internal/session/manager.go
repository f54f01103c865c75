package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"sso-gateway/internal/user"
)

// Manager binds resolved local users to sessions and rehydrates them on
// later requests. Only the user id crosses into the session; the full
// record is re-read from the user store every time so out-of-band
// account changes are visible immediately.
type Manager struct {
	store  Store
	users  user.Store
	codec  *TokenCodec
	maxAge time.Duration
	cookie CookieOptions
}

func NewManager(
	store Store,
	users user.Store,
	codec *TokenCodec,
	maxAge time.Duration,
	cookie CookieOptions,
) *Manager {
	return &Manager{
		store:  store,
		users:  users,
		codec:  codec,
		maxAge: maxAge,
		cookie: cookie,
	}
}

// Bind creates a session for the user and sets the signed cookie.
func (m *Manager) Bind(ctx context.Context, w http.ResponseWriter, u *user.User) error {
	sessionID, err := GenerateID()
	if err != nil {
		return err
	}

	now := time.Now()
	sess := Session{
		SessionID: sessionID,
		UserID:    u.ID.String(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.maxAge),
	}

	if err := m.store.Create(ctx, sess); err != nil {
		return err
	}

	SetCookie(w, m.codec.Encode(sessionID), sess.ExpiresAt, m.cookie)
	return nil
}

// Resolve returns the user bound to the request's session. Every
// unauthenticated shape (no cookie, forged cookie, expired or missing
// session, user deleted out-of-band) is (nil, nil); an error means a
// backing store failed.
func (m *Manager) Resolve(ctx context.Context, r *http.Request) (*user.User, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	sessionID, ok := m.codec.Decode(cookie.Value)
	if !ok {
		return nil, nil
	}

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = m.store.Delete(ctx, sessionID)
		return nil, nil
	}

	id, err := uuid.Parse(sess.UserID)
	if err != nil {
		return nil, nil
	}

	// u is nil when the account was deleted out-of-band: treated as
	// unauthenticated, not as an error.
	return m.users.GetByID(ctx, id)
}

// Clear deletes the request's session (best-effort) and expires the
// cookie. It never fails.
func (m *Manager) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		if sessionID, ok := m.codec.Decode(cookie.Value); ok {
			_ = m.store.Delete(ctx, sessionID)
		}
	}
	ClearCookie(w, m.cookie)
}
