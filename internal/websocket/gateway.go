package websocket

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/thereayou/relay-chat/internal/models"
	"github.com/thereayou/relay-chat/internal/services"
	"github.com/thereayou/relay-chat/pkg/auth"
	"golang.org/x/time/rate"
)

const presenceTimeout = 3 * time.Second

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Identity, error)
}

type PresenceTracker interface {
	MarkOnline(ctx context.Context, username string) error
	MarkOffline(ctx context.Context, username string) error
}

type GatewayConfig struct {
	AllowedOrigins []string
	EventRate      rate.Limit
	EventBurst     int
}

// Gateway authenticates streaming connections and drives presence from
// their lifecycle.
type Gateway struct {
	hub      *Hub
	authn    Authenticator
	presence PresenceTracker
	handler  ClientMessageHandler
	cfg      GatewayConfig
	upgrader websocket.Upgrader
}

func NewGateway(hub *Hub, authn Authenticator, presence PresenceTracker, handler ClientMessageHandler, cfg GatewayConfig) *Gateway {
	g := &Gateway{
		hub:      hub,
		authn:    authn,
		presence: presence,
		handler:  handler,
		cfg:      cfg,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// Handshake authenticates the Authorization header of the upgrade request.
// Any failure leaves the session closed; nothing is downgraded to anonymous.
func (g *Gateway) Handshake(ctx context.Context, authorization string) (*Session, error) {
	session := NewSession()
	if err := session.BeginAuthentication(); err != nil {
		return nil, err
	}

	token, err := auth.ParseBearer(authorization)
	if err != nil {
		session.Close()
		return nil, services.Unauthorized("missing or malformed bearer token")
	}

	identity, err := g.authn.Authenticate(ctx, token)
	if err != nil {
		session.Close()
		return nil, err
	}
	if err := session.Authenticate(identity); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}

// Serve upgrades the connection of an authenticated session and blocks until
// it closes.
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, session *Session) {
	identity, ok := session.Identity()
	if !ok {
		http.Error(w, ErrNotAuthenticated.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		session.Close()
		log.Infof("upgrade for %s failed: %v", identity.Username, err)
		return
	}

	client := NewClient(g.hub, conn, session, rate.NewLimiter(g.cfg.EventRate, g.cfg.EventBurst))
	g.hub.Register(client)
	g.markOnline(identity)
	log.Infof("%s connected (%s)", identity.Username, client.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.WritePump()
	client.ReadPump(ctx, g.handler, func() { g.markOnline(identity) })

	g.disconnect(client)
}

func (g *Gateway) disconnect(client *Client) {
	remaining := g.hub.Unregister(client)
	identity, wasAuthenticated := client.session.Close()
	log.Infof("%s disconnected (%s)", identity.Username, client.ID)
	if !wasAuthenticated || remaining > 0 {
		return
	}

	g.markOffline(identity)
	// a new connection may have registered while the marker was cleared
	if g.hub.ConnectionCount(identity.ID) > 0 {
		g.markOnline(identity)
	}
}

func (g *Gateway) markOnline(identity models.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := g.presence.MarkOnline(ctx, identity.Username); err != nil {
		log.Warningf("mark %s online: %v", identity.Username, err)
	}
}

func (g *Gateway) markOffline(identity models.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := g.presence.MarkOffline(ctx, identity.Username); err != nil {
		log.Warningf("mark %s offline: %v", identity.Username, err)
	}
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	if len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range g.cfg.AllowedOrigins {
		if strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	return false
}
