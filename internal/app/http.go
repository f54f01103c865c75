package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"sso-gateway/internal/auth/handler"
	"sso-gateway/internal/auth/provider"
	"sso-gateway/internal/auth/provider/google"
	"sso-gateway/internal/auth/provider/oidc"
	"sso-gateway/internal/auth/resolver"
	"sso-gateway/internal/config"
	"sso-gateway/internal/directory"
	"sso-gateway/internal/middleware"
	"sso-gateway/internal/session"
	"sso-gateway/internal/user"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	userStore := user.NewPostgresStore(infra.DB)

	var sessionStore session.Store = session.NewMemoryStore()
	if infra.Redis != nil {
		sessionStore = session.NewRedisStore(infra.Redis.Client)
	}

	codec, err := session.NewTokenCodec(cfg.SessionSecret)
	if err != nil {
		return nil, nil, err
	}

	sessions := session.NewManager(
		sessionStore,
		userStore,
		codec,
		cfg.SessionMaxAge,
		session.CookieOptions{
			Secure:   cfg.SessionCookieSecure,
			SameSite: http.SameSiteLaxMode,
		},
	)

	directoryClient := directory.New(cfg.DirectoryEndpoint, cfg.DirectoryTimeout)

	var engineOpts []resolver.EngineOption
	if cfg.RequireDirectoryAccount {
		engineOpts = append(engineOpts, resolver.WithRequireDirectoryAccount())
	}
	engine := resolver.NewEngine(directoryClient, userStore, engineOpts...)

	providers := []provider.OAuthProvider{}

	googleProvider, err := google.New(
		ctx,
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
	)
	if err != nil {
		return nil, nil, err
	}
	providers = append(providers, googleProvider)

	if cfg.OIDCIssuer != "" {
		oidcProvider, err := oidc.New(
			ctx,
			cfg.OIDCProviderName,
			cfg.OIDCIssuer,
			cfg.OIDCClientID,
			cfg.OIDCClientSecret,
			cfg.OIDCRedirectURL,
		)
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, oidcProvider)
	}

	registry := provider.NewRegistry(providers...)

	authHandler := handler.NewHandler(
		registry,
		engine,
		sessions,
		directoryClient,
		cfg.SessionCookieSecure,
	)

	authMiddleware := middleware.NewAuthMiddleware(sessions)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected API Routes
	// ----------------------------

	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(authMiddleware))

	api.GET("/me", func(c *gin.Context) {
		userID, _ := middleware.UserIDFromContext(c.Request.Context())
		c.JSON(200, gin.H{
			"user_id": userID,
		})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		return infra.DB.Close()
	}, nil
}
