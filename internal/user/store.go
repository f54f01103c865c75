package user

import (
	"context"

	"github.com/google/uuid"
)

// NewUser carries the fields a caller may set at creation time.
// Everything else is assigned by the store.
type NewUser struct {
	Username       string
	Email          string
	SSOType        string
	SSOCredentials Credentials
}

// Store defines the durable local user operations the auth flow needs.
// Absent records are returned as (nil, nil); an error always means the
// store itself failed. Implementations must keep email unique: a Create
// racing an identical email resolves to the already-stored record.
type Store interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	Create(ctx context.Context, n NewUser) (*User, error)
}
