package handler

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"slot-booking-api/internal/middleware"
	"slot-booking-api/internal/model"
	"slot-booking-api/internal/scheduler"
)

// TokenStore persists refresh tokens; both the Postgres and the
// in-memory store satisfy it.
type TokenStore interface {
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	RefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

type Handler struct {
	engine *scheduler.Service
	tokens TokenStore
	secret string
	log    *logrus.Logger
}

func New(engine *scheduler.Service, tokens TokenStore, secret string, log *logrus.Logger) *Handler {
	return &Handler{engine: engine, tokens: tokens, secret: secret, log: log}
}

// Router builds the full route tree: open credential endpoints behind
// the rate limiter, everything else behind JWT auth.
func (h *Handler) Router(rl *middleware.RateLimiter, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// expvar counters, rate-limited like the credential endpoints
	r.GET("/debug/vars", middleware.RateLimit(rl), gin.WrapH(expvar.Handler()))

	limited := r.Group("/auth", middleware.RateLimit(rl))
	limited.POST("/register", h.RegisterUser)
	limited.POST("/login", h.Login)
	limited.POST("/refresh", h.Refresh)

	r.POST("/auth/logout", middleware.Auth(h.secret), h.Logout)

	api := r.Group("/api", middleware.Auth(h.secret))
	api.POST("/slots", h.CreateSlot)
	api.GET("/slots", h.ListSlots)
	api.GET("/slots/:id", h.GetSlot)
	api.PATCH("/slots/:id", h.UpdateSlot)
	api.DELETE("/slots/:id", h.DeleteSlot)

	api.POST("/meetings", h.ScheduleMeeting)
	api.GET("/meetings", h.ListMeetings)
	api.GET("/meetings/:id", h.GetMeeting)
	api.PATCH("/meetings/:id", h.UpdateMeeting)
	api.DELETE("/meetings/:id", h.CancelMeeting)

	api.GET("/availability", h.GetAvailability)

	return r
}

// writeError maps the engine taxonomy to status codes; this is the only
// place the mapping lives.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scheduler.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, scheduler.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, scheduler.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, scheduler.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.WithError(err).Error("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) bindError(c *gin.Context, err error) {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) && len(verr) > 0 {
		fe := verr[0]
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
}

// timeQuery parses a required RFC3339 query parameter.
func timeQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required"})
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be RFC3339"})
		return time.Time{}, false
	}
	return t, true
}

func pageQuery(c *gin.Context) model.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return model.Page{Number: page, Size: size}
}
