// Package oidc implements a generic OIDC provider configured by issuer
// URL. Deployments with a pre-existing IdP register it under their own
// provider name, which becomes the sso_type of accounts it creates.
package oidc

import (
	"context"
	"errors"
	"fmt"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"sso-gateway/internal/auth"
)

type Provider struct {
	name        string
	oauthConfig *oauth2.Config
	verifier    *gooidc.IDTokenVerifier
}

// New initializes the provider using OIDC discovery on the issuer.
func New(
	ctx context.Context,
	name string,
	issuer string,
	clientID string,
	clientSecret string,
	redirectURL string,
) (*Provider, error) {

	if name == "" || issuer == "" || clientID == "" || redirectURL == "" {
		return nil, errors.New("oidc provider config missing required fields")
	}

	oidcProvider, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init oidc provider %s: %w", name, err)
	}

	verifier := oidcProvider.Verifier(&gooidc.Config{
		ClientID: clientID,
	})

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			gooidc.ScopeOpenID,
			"email",
			"profile",
		},
	}

	return &Provider{
		name:        name,
		oauthConfig: oauthCfg,
		verifier:    verifier,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return p.name
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode exchanges the authorization code and returns a normalized
// identity. This method MUST NOT create users, sessions, or perform
// linking logic.
func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Identity, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("%s token exchange failed: %w", p.name, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%s did not return id_token", p.name)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%s id_token verification failed: %w", p.name, err)
	}

	var claims struct {
		Subject           string `json:"sub"`
		Email             string `json:"email"`
		EmailVerified     bool   `json:"email_verified"`
		Name              string `json:"name"`
		Picture           string `json:"picture"`
		PreferredUsername string `json:"preferred_username"`
	}

	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s id_token claims parse failed: %w", p.name, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%s id_token missing subject claim", p.name)
	}

	displayName := claims.Name
	if displayName == "" {
		displayName = claims.PreferredUsername
	}

	return &auth.Identity{
		Provider:       p.name,
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
		DisplayName:    displayName,
		PhotoURL:       claims.Picture,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
	}, nil
}
