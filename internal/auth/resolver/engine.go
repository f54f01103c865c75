package resolver

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"sso-gateway/internal/auth"
	"sso-gateway/internal/directory"
	"sso-gateway/internal/logger"
	"sso-gateway/internal/user"
)

// Ensure Engine implements Resolver.
var _ Resolver = (*Engine)(nil)

// Engine maps one external identity to exactly one local user. The
// local store is the source of truth; the remote directory only
// enriches username selection and cross-reference metadata.
//
// Concurrent resolutions for the same email are collapsed into a
// single flight, so at most one local create is in progress per email
// per process. Resolutions for different emails never contend.
type Engine struct {
	directory Directory
	users     user.Store
	group     singleflight.Group

	// requireDirectory makes directory pre-registration mandatory:
	// first-time logins without a directory record are rejected
	// instead of auto-created.
	requireDirectory bool
}

// EngineOption configures an Engine during construction.
type EngineOption func(*Engine)

// WithRequireDirectoryAccount rejects first-time logins for emails the
// directory does not know about.
func WithRequireDirectoryAccount() EngineOption {
	return func(e *Engine) {
		e.requireDirectory = true
	}
}

func NewEngine(dir Directory, users user.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		directory: dir,
		users:     users,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve maps the identity to its canonical local user, creating one
// on first login. Only a missing email or a local store failure is
// fatal; every directory failure degrades to local-only resolution.
func (e *Engine) Resolve(ctx context.Context, identity *auth.Identity) (*user.User, error) {
	if identity == nil {
		return nil, errors.New("resolver: identity is nil")
	}
	if identity.Email == "" {
		return nil, auth.ErrMissingEmail
	}

	v, err, _ := e.group.Do(identity.Email, func() (any, error) {
		return e.reconcile(ctx, identity)
	})
	if err != nil {
		return nil, err
	}
	return v.(*user.User), nil
}

func (e *Engine) reconcile(ctx context.Context, identity *auth.Identity) (*user.User, error) {
	rec, unreachable := e.enrich(ctx, identity)

	u, err := e.users.GetByEmail(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("resolver: local lookup: %w", err)
	}

	if u != nil {
		if u.SSOType != identity.Provider {
			// Observability only: the stored record stays untouched.
			logger.Warn("sso provider mismatch", map[string]any{
				"email":    u.Email,
				"stored":   u.SSOType,
				"asserted": identity.Provider,
			})
		}
		return u, nil
	}

	if e.requireDirectory && rec == nil {
		if unreachable {
			return nil, fmt.Errorf("%w: could not verify account", auth.ErrDirectoryUnavailable)
		}
		return nil, auth.ErrNoAccount
	}

	username := identity.Email
	creds := user.Credentials{
		AccessToken:  identity.AccessToken,
		RefreshToken: identity.RefreshToken,
		ProfileID:    identity.ProviderUserID,
		Name:         identity.DisplayName,
		PhotoURL:     identity.PhotoURL,
	}
	if rec != nil {
		if rec.Username != "" {
			username = rec.Username
		}
		creds.DirectoryUserID = rec.ID
	}

	// The create must survive a caller that has already disconnected; a
	// repeated login simply finds this record on its re-read.
	created, err := e.users.Create(context.WithoutCancel(ctx), user.NewUser{
		Username:       username,
		Email:          identity.Email,
		SSOType:        identity.Provider,
		SSOCredentials: creds,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrUserCreation, err)
	}

	logger.Info("local user created", map[string]any{
		"user_id":  created.ID.String(),
		"email":    created.Email,
		"sso_type": created.SSOType,
	})
	return created, nil
}

// enrich consults the directory for username and cross-reference hints.
// Best-effort throughout: a single lookup attempt and, when the record
// is missing, an opportunistic remote registration. The second return
// reports whether the directory was unreachable.
func (e *Engine) enrich(ctx context.Context, identity *auth.Identity) (*directory.Record, bool) {
	rec, err := e.directory.LookupByEmail(ctx, identity.Email)
	if err != nil {
		logger.Warn("directory lookup failed", map[string]any{
			"email": identity.Email,
			"error": err.Error(),
		})
		if e.requireDirectory {
			return nil, true
		}
	}
	if rec != nil {
		return rec, false
	}

	if e.requireDirectory {
		// Pre-registration mode never auto-registers remotely.
		return nil, false
	}

	rec, err = e.directory.CreateIfAbsent(ctx, identity.Email, identity.Email, identity.Provider, map[string]any{
		"profile_id": identity.ProviderUserID,
		"name":       identity.DisplayName,
		"photo_url":  identity.PhotoURL,
	})
	if err != nil {
		logger.Warn("directory create failed", map[string]any{
			"email": identity.Email,
			"error": err.Error(),
		})
		return nil, true
	}
	return rec, false
}
