package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/relay-chat/internal/handlers/dto"
	"github.com/thereayou/relay-chat/internal/models"
	"github.com/thereayou/relay-chat/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenTable map[string]models.Identity

func (t tokenTable) Authenticate(_ context.Context, token string) (models.Identity, error) {
	if id, ok := t[token]; ok {
		return id, nil
	}
	return models.Identity{}, services.Unauthorized("invalid token")
}

func serve(r *gin.Engine, path, authorization string) (*httptest.ResponseRecorder, dto.ErrorResponse) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body dto.ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestErrorHandlerStatuses(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/validation", func(c *gin.Context) { _ = c.Error(services.ValidationError("content", "is required")) })
	r.GET("/missing", func(c *gin.Context) { _ = c.Error(services.NotFound("user")) })
	r.GET("/conflict", func(c *gin.Context) { _ = c.Error(services.Conflict("email", "is already registered")) })
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("pq: connection reset")) })
	r.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.OK("fine"))
		_ = c.Error(services.NotFound("ignored"))
	})

	w, body := serve(r, "/validation", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "content", body.Field)
	assert.Equal(t, "is required", body.Message)

	w, body = serve(r, "/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "user not found", body.Message)

	w, body = serve(r, "/conflict", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email", body.Field)

	w, body = serve(r, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body.Message)
	assert.NotContains(t, w.Body.String(), "pq:")

	w, _ = serve(r, "/written", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	alice := models.Identity{ID: uuid.New(), Username: "alice"}

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/me", AuthMiddleware(tokenTable{"good": alice}), func(c *gin.Context) {
		assert.Equal(t, "good", CurrentToken(c))
		c.String(http.StatusOK, CurrentIdentity(c).Username)
	})

	w, _ := serve(r, "/me", "Bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())

	w, body := serve(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/me", body.Path)

	w, _ = serve(r, "/me", "Basic Z29vZA==")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = serve(r, "/me", "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiterIsPerUser(t *testing.T) {
	rl := NewRateLimiter(0, 2)
	alice, bob := uuid.New(), uuid.New()

	assert.True(t, rl.Allow(alice))
	assert.True(t, rl.Allow(alice))
	assert.False(t, rl.Allow(alice))
	assert.True(t, rl.Allow(bob))
}

func TestRateLimitMiddleware(t *testing.T) {
	alice := models.Identity{ID: uuid.New(), Username: "alice"}

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/ping", AuthMiddleware(tokenTable{"good": alice}), RateLimitMiddleware(NewRateLimiter(0, 1)), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w, _ := serve(r, "/ping", "Bearer good")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, body := serve(r, "/ping", "Bearer good")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, http.StatusTooManyRequests, body.Status)
}
