package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sso-gateway/internal/logger"
)

// whoami reports the caller's authentication state. It never fails:
// any trouble resolving the session degrades to unauthenticated.
func (h *Handler) whoami(c *gin.Context) {
	u, err := h.sessions.Resolve(c.Request.Context(), c.Request)
	if err != nil {
		logger.Error("session resolve failed", map[string]any{
			"error": err.Error(),
		})
	}
	if err != nil || u == nil {
		c.JSON(http.StatusOK, gin.H{
			"isAuthenticated": false,
			"user":            nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"isAuthenticated": true,
		"user": gin.H{
			"id":       u.ID.String(),
			"username": u.Username,
			"email":    u.Email,
			"sso_type": u.SSOType,
		},
	})
}

// validate re-checks the caller's account against the remote directory.
// Directory unavailability is an answer (verified:false with a message),
// not an error status; only a missing session is a 401.
func (h *Handler) validate(c *gin.Context) {
	u, err := h.sessions.Resolve(c.Request.Context(), c.Request)
	if err != nil || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "not authenticated",
		})
		return
	}

	rec, err := h.directory.LookupByEmail(c.Request.Context(), u.Email)
	if err != nil {
		logger.Warn("directory validation failed", map[string]any{
			"email": u.Email,
			"error": err.Error(),
		})
		c.JSON(http.StatusOK, gin.H{
			"verified": false,
			"message":  "directory unavailable",
		})
		return
	}
	if rec == nil {
		c.JSON(http.StatusOK, gin.H{
			"verified": false,
			"message":  "user not found in directory",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verified": true,
		"user":     rec,
	})
}
