package auth

import "errors"

// Sentinel errors classifying login failures. Components wrap these with
// context; callers match with errors.Is instead of inspecting message text.
var (
	// ErrMissingEmail means the provider returned no usable email.
	// Fatal to the login attempt.
	ErrMissingEmail = errors.New("identity assertion has no email")

	// ErrDirectoryUnavailable means a remote directory call failed.
	// Never fatal on its own; surfaced only when directory availability
	// is the proximate cause of being unable to resolve an account.
	ErrDirectoryUnavailable = errors.New("identity directory unavailable")

	// ErrUserCreation means the local store rejected user creation.
	// Fatal: identity cannot be established without a local record.
	ErrUserCreation = errors.New("local user creation failed")

	// ErrNoAccount means the deployment requires directory
	// pre-registration and no matching record exists.
	ErrNoAccount = errors.New("no matching account found")
)

// Error codes carried on the login redirect.
const (
	CodeAuthFailed     = "auth_failed"
	CodeNoAccount      = "no_account"
	CodeAPIUnavailable = "api_unavailable"
)

// ErrorCode maps a login failure to the coarse code exposed to the client.
// Anything unclassified degrades to auth_failed; raw error detail never
// reaches the redirect.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNoAccount):
		return CodeNoAccount
	case errors.Is(err, ErrDirectoryUnavailable):
		return CodeAPIUnavailable
	default:
		return CodeAuthFailed
	}
}
