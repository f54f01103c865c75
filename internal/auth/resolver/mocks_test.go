package resolver

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"sso-gateway/internal/directory"
	"sso-gateway/internal/user"
)

// MockDirectory is a mock implementation of Directory.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) LookupByEmail(ctx context.Context, email string) (*directory.Record, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.Record), args.Error(1)
}

func (m *MockDirectory) CreateIfAbsent(ctx context.Context, email, username, ssoType string, metadata map[string]any) (*directory.Record, error) {
	args := m.Called(ctx, email, username, ssoType, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.Record), args.Error(1)
}

// MockUserStore is a mock implementation of user.Store.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserStore) Create(ctx context.Context, n user.NewUser) (*user.User, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}
