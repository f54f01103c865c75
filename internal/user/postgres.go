package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sso-gateway/internal/db"
)

const uniqueViolation = "23505"

// PostgresStore is the canonical user store.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getOne(ctx, `
		SELECT id, username, email, sso_type, sso_credentials, created_at
		FROM users
		WHERE email = $1
	`, email)
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.getOne(ctx, `
		SELECT id, username, email, sso_type, sso_credentials, created_at
		FROM users
		WHERE id = $1
	`, id)
}

func (s *PostgresStore) Create(ctx context.Context, n NewUser) (*User, error) {
	creds, err := json.Marshal(n.SSOCredentials)
	if err != nil {
		return nil, fmt.Errorf("user: marshal sso credentials: %w", err)
	}

	u := &User{}
	var rawCreds []byte
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, sso_type, sso_credentials)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, email, sso_type, sso_credentials, created_at
	`,
		n.Username,
		n.Email,
		n.SSOType,
		creds,
	).Scan(&u.ID, &u.Username, &u.Email, &u.SSOType, &rawCreds, &u.CreatedAt)

	if err != nil {
		// Lost a create race on the email unique index: the record the
		// caller wants already exists, return it instead of failing.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			existing, readErr := s.GetByEmail(ctx, n.Email)
			if readErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	if err := json.Unmarshal(rawCreds, &u.SSOCredentials); err != nil {
		return nil, fmt.Errorf("user: unmarshal sso credentials: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg any) (*User, error) {
	u := &User{}
	var rawCreds []byte

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.SSOType, &rawCreds, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(rawCreds, &u.SSOCredentials); err != nil {
		return nil, fmt.Errorf("user: unmarshal sso credentials: %w", err)
	}
	return u, nil
}
