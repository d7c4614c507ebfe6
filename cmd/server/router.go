package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/relay-chat/internal/handlers"
	"github.com/thereayou/relay-chat/internal/middleware"
	"github.com/thereayou/relay-chat/internal/services"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Conversations *handlers.ConversationHandler
	Messages      *handlers.HTTPMessageHandler
	Presence      *handlers.PresenceHandler
	WebSocket     *handlers.WebSocketHandler
	Health        *handlers.HealthHandler
}

func APIEndpoints(r *gin.Engine, h Handlers, authn middleware.Authenticator, limiter *middleware.RateLimiter) {
	r.GET("/healthz", h.Health.Health)

	// the handshake authenticates itself so that failures never upgrade
	r.GET("/ws", h.WebSocket.HandleWebSocket)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
	}

	protected := api.Group("", middleware.AuthMiddleware(authn), middleware.RateLimitMiddleware(limiter))
	{
		protected.POST("/auth/logout", h.Auth.Logout)

		protected.GET("/users/me", h.Users.GetMe)
		protected.GET("/users/search", h.Users.SearchUsers)
		protected.GET("/users/:id", h.Users.GetUser)

		protected.POST("/conversations", h.Conversations.CreateDirectConversation)
		protected.GET("/conversations", h.Conversations.GetUserConversations)
		protected.POST("/conversations/:id/read", h.Conversations.MarkRead)

		protected.POST("/messages", h.Messages.SendMessage)
		protected.GET("/messages", h.Messages.GetMessages)

		protected.GET("/presence", h.Presence.GetAllPresence)
		protected.GET("/presence/:username", h.Presence.GetPresence)
	}
}

// NewEngine returns a gin engine whose recovered panics are rendered by
// ErrorHandler like any other internal error.
func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.ErrorHandler(), gin.CustomRecovery(recoverInternal))
	return r
}

func recoverInternal(c *gin.Context, recovered any) {
	_ = c.Error(services.Internal(fmt.Errorf("panic: %v", recovered)))
	c.Abort()
}
