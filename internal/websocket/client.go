package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/thereayou/relay-chat/internal/models"
	"github.com/thereayou/relay-chat/internal/services"
	"golang.org/x/time/rate"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	// must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024

	sendQueueSize = 256
)

// ClientMessageHandler processes one inbound frame of an authenticated client.
type ClientMessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg *Message) error
}

type Client struct {
	ID       uuid.UUID
	Identity models.Identity

	conn    *websocket.Conn
	hub     *Hub
	session *Session
	limiter *rate.Limiter

	send   chan []byte
	mu     sync.Mutex
	closed bool

	// guarded by hub.mu
	topics map[string]struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, session *Session, limiter *rate.Limiter) *Client {
	identity, _ := session.Identity()
	return &Client{
		ID:       uuid.New(),
		Identity: identity,
		conn:     conn,
		hub:      hub,
		session:  session,
		limiter:  limiter,
		send:     make(chan []byte, sendQueueSize),
		topics:   make(map[string]struct{}),
	}
}

// ReadPump reads frames until the connection drops. onPong runs on every
// heartbeat reply.
func (c *Client) ReadPump(ctx context.Context, handler ClientMessageHandler, onPong func()) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if onPong != nil {
			onPong()
		}
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Infof("websocket read error for %s: %v", c.Identity.Username, err)
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.SendError("RATE_LIMITED", "too many events, slow down")
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.SendError("INVALID_FRAME", ErrInvalidMessage.Error())
			continue
		}

		if err := handler.HandleMessage(ctx, c, &msg); err != nil {
			c.reportError(msg.Type, err)
		}
	}
}

func (c *Client) reportError(msgType MessageType, err error) {
	switch {
	case errors.Is(err, ErrUnknownMessageType), errors.Is(err, ErrInvalidMessage):
		c.SendError("INVALID_FRAME", err.Error())
		return
	}

	kind := services.KindOf(err)
	if kind == services.KindInternal {
		log.Errorf("%s from %s failed: %v", msgType, c.Identity.Username, err)
		c.SendError(kind.String(), "internal error")
		return
	}
	log.Debugf("%s from %s rejected: %v", msgType, c.Identity.Username, err)
	c.SendError(kind.String(), err.Error())
}

// WritePump drains the outbound queue and keeps the connection alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Enqueue queues payload for this client without blocking.
func (c *Client) Enqueue(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrClientQueueFull
	}
}

// SendEvent marshals v and queues it for this client only.
func (c *Client) SendEvent(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Enqueue(data)
}

type errorFrame struct {
	Type    MessageType `json:"type"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
}

func (c *Client) SendError(code, message string) {
	if err := c.SendEvent(errorFrame{Type: TypeError, Code: code, Message: message}); err != nil {
		log.Debugf("cannot send error to %s: %v", c.ID, err)
	}
}

func (c *Client) Subscribe(topic string) {
	c.hub.Subscribe(c, topic)
}

func (c *Client) Unsubscribe(topic string) {
	c.hub.Unsubscribe(c, topic)
}

func (c *Client) IsSubscribed(topic string) bool {
	return c.hub.IsSubscribed(c, topic)
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) closeConn() {
	if c.conn != nil {
		c.conn.Close()
	}
}
