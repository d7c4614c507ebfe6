package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/relay-chat/internal/models"
	"github.com/thereayou/relay-chat/internal/services"
)

type fakeAuthn map[string]models.Identity

func (f fakeAuthn) Authenticate(_ context.Context, token string) (models.Identity, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return models.Identity{}, services.Unauthorized("invalid token")
}

type presenceLog struct {
	mu     sync.Mutex
	events []string
}

func (p *presenceLog) MarkOnline(_ context.Context, u string) error  { return p.add("online:" + u) }
func (p *presenceLog) MarkOffline(_ context.Context, u string) error { return p.add("offline:" + u) }

func (p *presenceLog) add(e string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *presenceLog) has(e string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, got := range p.events {
		if got == e {
			return true
		}
	}
	return false
}

type echoHandler struct{}

func (echoHandler) HandleMessage(_ context.Context, c *Client, msg *Message) error {
	if msg.Type != TypeSendMessage {
		return ErrUnknownMessageType
	}
	return c.SendEvent(map[string]string{"type": "ECHO", "from": c.Identity.Username, "content": msg.Content})
}

type gatewayFixture struct {
	server   *httptest.Server
	presence *presenceLog
	hub      *Hub
	alice    models.Identity
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	alice := models.Identity{ID: uuid.New(), Username: "alice"}
	presence := &presenceLog{}
	hub := NewHub()
	gw := NewGateway(hub, fakeAuthn{"good": alice}, presence, echoHandler{}, GatewayConfig{EventRate: 100, EventBurst: 100})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := gw.Handshake(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		gw.Serve(w, r, session)
	}))
	t.Cleanup(server.Close)
	return &gatewayFixture{server: server, presence: presence, hub: hub, alice: alice}
}

func (f *gatewayFixture) dial(header http.Header, query string) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws" + query
	return websocket.DefaultDialer.Dial(url, header)
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestGatewayRejectsBeforeUpgrade(t *testing.T) {
	f := newGatewayFixture(t)

	cases := map[string]struct {
		header http.Header
		query  string
	}{
		"no header":     {nil, ""},
		"query token":   {nil, "?token=good"},
		"wrong scheme":  {http.Header{"Authorization": []string{"Basic good"}}, ""},
		"invalid token": {bearer("bad"), ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			conn, resp, err := f.dial(tc.header, tc.query)
			require.Error(t, err)
			if conn != nil {
				conn.Close()
			}
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
	assert.False(t, f.presence.has("online:alice"))
}

func TestGatewaySessionLifecycle(t *testing.T) {
	f := newGatewayFixture(t)

	conn, _, err := f.dial(bearer("good"), "")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.presence.has("online:alice") }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var frame map[string]string
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "ERROR", frame["type"])
	assert.Equal(t, "INVALID_FRAME", frame["code"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "SEND_MESSAGE", "content": "hi", "senderId": uuid.NewString()}))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "ECHO", frame["type"])
	assert.Equal(t, "alice", frame["from"], "sender comes from the session")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "TYPING"}))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "ERROR", frame["type"])

	assert.False(t, f.presence.has("offline:alice"))
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	require.Eventually(t, func() bool { return f.presence.has("offline:alice") }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, f.hub.ConnectionCount(f.alice.ID))
}

func TestGatewayStaysOnlineWhileAnotherConnectionLives(t *testing.T) {
	f := newGatewayFixture(t)

	first, _, err := f.dial(bearer("good"), "")
	require.NoError(t, err)
	second, _, err := f.dial(bearer("good"), "")
	require.NoError(t, err)
	defer second.Close()

	require.Eventually(t, func() bool { return f.hub.ConnectionCount(f.alice.ID) == 2 }, time.Second, 10*time.Millisecond)
	first.Close()
	require.Eventually(t, func() bool { return f.hub.ConnectionCount(f.alice.ID) == 1 }, time.Second, 10*time.Millisecond)
	assert.False(t, f.presence.has("offline:alice"))
}

func TestHandshakeErrorsAreUnauthorized(t *testing.T) {
	gw := NewGateway(NewHub(), fakeAuthn{}, &presenceLog{}, echoHandler{}, GatewayConfig{EventRate: 1, EventBurst: 1})
	for _, header := range []string{"", "Bearer", "Token abc", "Bearer nope"} {
		_, err := gw.Handshake(context.Background(), header)
		var svcErr *services.Error
		require.True(t, errors.As(err, &svcErr), header)
		assert.Equal(t, services.KindUnauthorized, svcErr.Kind)
	}
}

func TestCheckOrigin(t *testing.T) {
	gw := NewGateway(NewHub(), fakeAuthn{}, &presenceLog{}, echoHandler{}, GatewayConfig{AllowedOrigins: []string{"https://chat.example"}})
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://chat.example")
	assert.True(t, gw.checkOrigin(r))
	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, gw.checkOrigin(r))
}
