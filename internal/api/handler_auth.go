package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resource-reservation-backend/internal/audit"
	"resource-reservation-backend/internal/auth"
	"resource-reservation-backend/internal/mw"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account disabled"})
		return
	}

	ttl := time.Duration(h.cfg.Auth.TokenTTLMinutes) * time.Minute
	token, err := auth.GenerateToken(user, h.cfg.Auth.JWTSecret, ttl, h.clock.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign token"})
		return
	}

	if h.audit != nil {
		h.audit.Record(c.Request.Context(), audit.Entry{Action: "user_login", UserID: &user.ID})
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(ttl.Seconds()),
		"user":         user,
	})
}

// Me returns the authenticated account.
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, mw.CurrentUser(c))
}
