package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the canonical local account record. Once created its ID is
// stable for the lifetime of the account; sessions store only that ID.
type User struct {
	ID             uuid.UUID
	Username       string
	Email          string // unique, case-sensitive lookup key
	SSOType        string // provider tag at creation, e.g. "google"
	SSOCredentials Credentials
	CreatedAt      time.Time
}

// Credentials is the opaque SSO blob stored alongside a user: live
// provider tokens plus metadata captured at login. DirectoryUserID is a
// best-effort back-reference to the remote directory; its absence never
// blocks anything.
type Credentials struct {
	AccessToken     string `json:"access_token,omitempty"`
	RefreshToken    string `json:"refresh_token,omitempty"`
	ProfileID       string `json:"profile_id,omitempty"`
	Name            string `json:"name,omitempty"`
	PhotoURL        string `json:"photo_url,omitempty"`
	DirectoryUserID string `json:"directory_user_id,omitempty"`
}
