package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/auth"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for an access/refresh token pair.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	account, err := h.identity.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	pair, err := auth.Issue(account.ID, account.Username, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	if err := h.identity.SaveRefreshToken(c.Request.Context(), account.ID, pair.RefreshToken, pair.RefreshExp); err != nil {
		h.respondErr(c, err)
		return
	}

	p, err := h.identity.Resolve(c.Request.Context(), account.ID)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExp,
		"role":          p.Role,
		"name":          p.Name,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates a refresh token: the old token is revoked and a fresh
// pair is issued.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	claims, err := auth.Parse(req.RefreshToken, h.cfg.JWTSigningKey, h.cfg.JWTIssuer)
	if err != nil || !claims.Refresh {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	active, err := h.identity.RefreshTokenActive(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	if !active {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token revoked"})
		return
	}

	pair, err := auth.Issue(claims.Subject, claims.Username, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	if err := h.identity.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
		h.respondErr(c, err)
		return
	}
	if err := h.identity.SaveRefreshToken(c.Request.Context(), claims.Subject, pair.RefreshToken, pair.RefreshExp); err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExp,
	})
}

// Logout revokes the presented refresh token. Access tokens simply
// expire.
func (h *Handler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}
	if err := h.identity.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
