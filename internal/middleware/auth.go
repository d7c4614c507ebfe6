package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/op/go-logging"
	"github.com/thereayou/relay-chat/internal/models"
	"github.com/thereayou/relay-chat/internal/services"
	"github.com/thereayou/relay-chat/pkg/auth"
)

var log = logging.MustGetLogger("middleware")

const (
	IdentityKey = "identity"
	TokenKey    = "accessToken"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Identity, error)
}

// AuthMiddleware resolves the bearer token into an Identity once per request.
func AuthMiddleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			_ = c.Error(services.Unauthorized("missing or invalid token"))
			c.Abort()
			return
		}

		identity, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(IdentityKey, identity)
		c.Set(TokenKey, token)
		c.Next()
	}
}

// CurrentIdentity returns the identity set by AuthMiddleware.
func CurrentIdentity(c *gin.Context) models.Identity {
	return c.MustGet(IdentityKey).(models.Identity)
}

func CurrentToken(c *gin.Context) string {
	return c.GetString(TokenKey)
}
