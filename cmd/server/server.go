package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/relay-chat/internal/config"
	"github.com/thereayou/relay-chat/internal/database"
	"github.com/thereayou/relay-chat/internal/handlers"
	"github.com/thereayou/relay-chat/internal/middleware"
	"github.com/thereayou/relay-chat/internal/services"
	"github.com/thereayou/relay-chat/internal/websocket"
	"github.com/thereayou/relay-chat/pkg/auth"
	"golang.org/x/time/rate"
)

type Server struct {
	cfg        *config.Config
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	Hub        *websocket.Hub
	JWTManager *auth.JWTManager

	fanout *websocket.RedisBroker
	http   *http.Server
}

func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	dbConn := &database.Database{}
	if err := dbConn.Connect(cfg.DatabaseURL); err != nil {
		return nil, err
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	hub := websocket.NewHub()

	s := &Server{
		cfg:        cfg,
		DB:         dbConn,
		Redis:      rdb,
		Hub:        hub,
		JWTManager: jwtMgr,
	}

	var broker websocket.Broker = hub
	if cfg.Fanout == "redis" {
		s.fanout = websocket.NewRedisBroker(rdb, hub)
		if err := s.fanout.Start(ctx); err != nil {
			return nil, err
		}
		broker = s.fanout
	}

	gin.SetMode(gin.ReleaseMode)
	s.Router = newRouter(cfg, dbConn, rdb, jwtMgr, hub, broker)

	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("server starting on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(shutdownCtx)
	s.Hub.Shutdown()
	if s.fanout != nil {
		if cerr := s.fanout.Close(); cerr != nil {
			log.Warningf("closing fan-out: %v", cerr)
		}
	}
	if cerr := s.Redis.Close(); cerr != nil {
		log.Warningf("closing redis: %v", cerr)
	}
	if cerr := s.DB.Close(); cerr != nil {
		log.Warningf("closing database: %v", cerr)
	}
	return err
}

// newRouter builds the services and mounts every endpoint on a fresh engine.
func newRouter(cfg *config.Config, db *database.Database, rdb *redis.Client, jwtMgr *auth.JWTManager, hub *websocket.Hub, broker websocket.Broker) *gin.Engine {
	accounts := services.NewAuthService(db, jwtMgr, services.NewRevocationList(rdb))
	conversations := services.NewConversationService(db)
	messages := services.NewMessageService(db)
	presence := services.NewPresenceService(rdb, cfg.PresenceTTL)
	users := services.NewUserService(db)

	router := handlers.NewBroadcastRouter(messages, broker)
	gateway := websocket.NewGateway(hub, accounts, presence, handlers.NewMessageHandler(router, messages), websocket.GatewayConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		EventRate:      rate.Limit(cfg.EventRate),
		EventBurst:     cfg.EventBurst,
	})

	r := NewEngine()
	APIEndpoints(r, Handlers{
		Auth:          handlers.NewAuthHandler(accounts),
		Users:         handlers.NewUserHandler(users),
		Conversations: handlers.NewConversationHandler(conversations, router),
		Messages:      handlers.NewHTTPMessageHandler(messages, router),
		Presence:      handlers.NewPresenceHandler(presence),
		WebSocket:     handlers.NewWebSocketHandler(gateway),
		Health:        handlers.NewHealthHandler(db, rdb),
	}, accounts, middleware.NewRateLimiter(rate.Limit(cfg.EventRate), cfg.EventBurst))
	return r
}
