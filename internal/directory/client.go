package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Record is the remote directory's view of a user.
type Record struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// The directory speaks a GraphQL dialect with two fixed operations.
const (
	lookupQuery = `
		query GetUserByEmail($email: String!) {
			core_core_user(where: {email: {_eq: $email}}) {
				id
				email
				username
			}
		}`

	createMutation = `
		mutation CreateUser($email: String!, $username: String!, $sso_type: String!, $sso_credentials: jsonb) {
			insert_core_core_user_one(object: {
				email: $email,
				username: $username,
				sso_type: $sso_type,
				sso_credentials: $sso_credentials
			}) {
				id
				email
				username
			}
		}`
)

// Client talks to the remote identity directory. Every call is bounded
// by the configured timeout; callers treat any returned error as a
// degradation signal and continue without directory data.
type Client struct {
	endpoint string
	http     *http.Client
}

func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// LookupByEmail queries the directory for a user record. A missing
// record is (nil, nil). One attempt only; a failed lookup is reported
// as an error for the caller to log and absorb.
func (c *Client) LookupByEmail(ctx context.Context, email string) (*Record, error) {
	var resp struct {
		Data struct {
			Users []Record `json:"core_core_user"`
		} `json:"data"`
		Errors []graphqlError `json:"errors"`
	}

	if err := c.post(ctx, lookupQuery, map[string]any{"email": email}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("directory: lookup rejected: %s", resp.Errors[0].Message)
	}
	if len(resp.Data.Users) == 0 {
		return nil, nil
	}
	return &resp.Data.Users[0], nil
}

// CreateIfAbsent opportunistically registers a user in the directory.
// The remote is expected to be idempotent on email; a rejection (for
// example, the record already exists) is reported as absent, not as an
// error. A transport failure is retried exactly once to absorb a single
// transient fault, then given up on.
func (c *Client) CreateIfAbsent(ctx context.Context, email, username, ssoType string, metadata map[string]any) (*Record, error) {
	rec, err := c.create(ctx, email, username, ssoType, metadata)
	if err != nil {
		rec, err = c.create(ctx, email, username, ssoType, metadata)
	}
	return rec, err
}

func (c *Client) create(ctx context.Context, email, username, ssoType string, metadata map[string]any) (*Record, error) {
	creds, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("directory: marshal metadata: %w", err)
	}

	var resp struct {
		Data struct {
			User *Record `json:"insert_core_core_user_one"`
		} `json:"data"`
		Errors []graphqlError `json:"errors"`
	}

	vars := map[string]any{
		"email":           email,
		"username":        username,
		"sso_type":        ssoType,
		"sso_credentials": string(creds),
	}
	if err := c.post(ctx, createMutation, vars, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 || resp.Data.User == nil {
		// Remote declined the insert; most likely the record exists.
		return nil, nil
	}
	return resp.Data.User, nil
}

func (c *Client) post(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return fmt.Errorf("directory: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("directory: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory: request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("directory: unexpected status %d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("directory: malformed response: %w", err)
	}
	return nil
}

type graphqlError struct {
	Message string `json:"message"`
}
