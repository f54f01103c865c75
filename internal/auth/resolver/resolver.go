package resolver

import (
	"context"

	"sso-gateway/internal/auth"
	"sso-gateway/internal/directory"
	"sso-gateway/internal/user"
)

// Resolver determines which local user an external identity belongs to.
// It is the ONLY place where identity-to-user mapping logic lives.
type Resolver interface {
	Resolve(ctx context.Context, identity *auth.Identity) (*user.User, error)
}

// Directory is the enrichment-only view of the remote identity
// directory. Errors from either call signal degradation, never a hard
// failure: the resolver must be able to proceed without the directory.
type Directory interface {
	LookupByEmail(ctx context.Context, email string) (*directory.Record, error)
	CreateIfAbsent(ctx context.Context, email, username, ssoType string, metadata map[string]any) (*directory.Record, error)
}
