package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"slot-booking-api/internal/auth"
	"slot-booking-api/internal/middleware"
	"slot-booking-api/internal/model"
)

const refreshTokenTTL = 7 * 24 * time.Hour

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, CreatedAt: u.CreatedAt}
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	user, err := h.engine.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	user, err := h.engine.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	tok, err := auth.MakeToken(user.ID, h.secret)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.issueRefreshCookie(c, user.ID); err != nil {
		h.writeError(c, err)
		return
	}
	h.setAccessCookie(c, tok)

	c.JSON(http.StatusOK, gin.H{
		"token":       tok,
		"userId":      user.ID,
		"displayName": user.DisplayName,
	})
}

// Refresh rotates the refresh token and issues a fresh access token.
// Any irregularity (unknown, revoked, expired) is a plain 401.
func (h *Handler) Refresh(c *gin.Context) {
	raw, err := c.Cookie("refresh_token")
	if err != nil || raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no refresh token"})
		return
	}

	rt, err := h.tokens.RefreshTokenByHash(c.Request.Context(), auth.HashRefreshToken(raw))
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	newRaw, newHash, err := auth.GenerateRefreshToken()
	if err != nil {
		h.writeError(c, err)
		return
	}
	newID := uuid.New().String()
	if err := h.tokens.RotateRefreshToken(c.Request.Context(), rt.ID, newID, rt.UserID, newHash, time.Now().Add(refreshTokenTTL)); err != nil {
		h.writeError(c, err)
		return
	}

	tok, err := auth.MakeToken(rt.UserID, h.secret)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setAccessCookie(c, tok)
	h.setRefreshCookie(c, newRaw)

	c.JSON(http.StatusOK, gin.H{"token": tok, "userId": rt.UserID})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.tokens.RevokeAllRefreshTokens(c.Request.Context(), middleware.UserID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.SetCookie("access_token", "", -1, "/", "", false, true)
	c.SetCookie("refresh_token", "", -1, "/auth/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (h *Handler) issueRefreshCookie(c *gin.Context, userID string) error {
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return err
	}
	if _, err := h.tokens.CreateRefreshToken(c.Request.Context(), userID, hash, time.Now().Add(refreshTokenTTL)); err != nil {
		return err
	}
	h.setRefreshCookie(c, raw)
	return nil
}

func (h *Handler) setAccessCookie(c *gin.Context, tok string) {
	c.SetCookie("access_token", tok, int(auth.AccessTokenTTL.Seconds()), "/", "", false, true)
}

func (h *Handler) setRefreshCookie(c *gin.Context, raw string) {
	c.SetCookie("refresh_token", raw, int(refreshTokenTTL.Seconds()), "/auth/", "", false, true)
}
