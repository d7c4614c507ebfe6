package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/relay-chat/internal/middleware"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	redis *redis.Client
}

func NewHealthHandler(db Pinger, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		log.Warningf("health: database: %v", err)
		middleware.WriteError(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		log.Warningf("health: redis: %v", err)
		middleware.WriteError(c, http.StatusServiceUnavailable, "redis unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
