package auth

// Identity represents a normalized external authentication identity
// returned by an OAuth provider. It contains facts only, no decisions.
// One Identity is produced per login attempt and never reused.
type Identity struct {
	Provider       string // e.g. "google", "oidc"
	ProviderUserID string // provider-scoped unique user identifier (sub)
	Email          string // verified email returned by provider
	EmailVerified  bool   // whether provider asserts email ownership
	DisplayName    string // human-readable name, may be empty
	PhotoURL       string // profile picture URL, may be empty
	AccessToken    string // provider access token for this login
	RefreshToken   string // provider refresh token, may be empty
}
