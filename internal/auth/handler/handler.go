package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sso-gateway/internal/auth"
	"sso-gateway/internal/auth/provider"
	"sso-gateway/internal/auth/resolver"
	"sso-gateway/internal/logger"
	"sso-gateway/internal/session"
)

// Handler is the externally-facing login surface. One login attempt
// either ends with a redirect home or a redirect to the login page
// carrying a coarse error code; there is no retry loop here.
type Handler struct {
	providers    *provider.Registry
	resolver     resolver.Resolver
	sessions     *session.Manager
	directory    resolver.Directory
	cookieSecure bool
}

func NewHandler(
	registry *provider.Registry,
	res resolver.Resolver,
	sessions *session.Manager,
	dir resolver.Directory,
	cookieSecure bool,
) *Handler {
	return &Handler{
		providers:    registry,
		resolver:     res,
		sessions:     sessions,
		directory:    dir,
		cookieSecure: cookieSecure,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/oauth/login/:provider", h.login)
	r.GET("/oauth/callback/:provider", h.callback)
	r.GET("/logout", h.logout)
	r.GET("/session/whoami", h.whoami)
	r.GET("/session/validate", h.validate)
}

func (h *Handler) login(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	state := generateState(c, h.cookieSecure)
	_, codeChallenge := generatePKCE(c, h.cookieSecure)

	c.Redirect(http.StatusFound, p.AuthCodeURL(state, codeChallenge))
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		h.failLogin(c, "unknown oauth provider", auth.CodeAuthFailed)
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("provider reported callback error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		h.failLogin(c, "provider error", auth.CodeAuthFailed)
		return
	}

	if !validateState(c) {
		h.failLogin(c, "invalid state", auth.CodeAuthFailed)
		return
	}

	code := c.Query("code")
	if code == "" {
		h.failLogin(c, "callback missing code", auth.CodeAuthFailed)
		return
	}

	codeVerifier := getPKCEVerifier(c)
	if codeVerifier == "" {
		h.failLogin(c, "missing pkce verifier", auth.CodeAuthFailed)
		return
	}

	identity, err := p.ExchangeCode(c.Request.Context(), code, codeVerifier)
	if err != nil {
		logger.Error("code exchange failed", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		h.failLogin(c, "code exchange failed", auth.CodeAuthFailed)
		return
	}

	u, err := h.resolver.Resolve(c.Request.Context(), identity)
	if err != nil {
		logger.Error("identity resolution failed", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		h.failLogin(c, "resolution failed", auth.ErrorCode(err))
		return
	}

	if err := h.sessions.Bind(c.Request.Context(), c.Writer, u); err != nil {
		logger.Error("session bind failed", map[string]any{
			"user_id": u.ID.String(),
			"error":   err.Error(),
		})
		h.failLogin(c, "session bind failed", auth.CodeAuthFailed)
		return
	}

	logger.Info("login successful", map[string]any{
		"user_id":  u.ID.String(),
		"provider": providerName,
	})
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) logout(c *gin.Context) {
	h.sessions.Clear(c.Request.Context(), c.Writer, c.Request)
	c.Redirect(http.StatusFound, "/")
}

// failLogin ends the attempt with a coarse error code on the login
// redirect. Raw error detail stays in the logs.
func (h *Handler) failLogin(c *gin.Context, reason, code string) {
	logger.Warn("login attempt failed", map[string]any{
		"reason": reason,
		"code":   code,
	})
	c.Redirect(http.StatusFound, "/login?error="+code)
}
