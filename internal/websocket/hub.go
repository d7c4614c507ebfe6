package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("websocket")

type MessageType string

const (
	// inbound
	TypeSendMessage MessageType = "SEND_MESSAGE"
	TypeReadReceipt MessageType = "READ_RECEIPT"
	TypeTyping      MessageType = "TYPING"
	TypeSubscribe   MessageType = "SUBSCRIBE"
	TypeUnsubscribe MessageType = "UNSUBSCRIBE"

	// outbound
	TypeMessage      MessageType = "MESSAGE"
	TypeSubscribed   MessageType = "SUBSCRIBED"
	TypeUnsubscribed MessageType = "UNSUBSCRIBED"
	TypeError        MessageType = "ERROR"
)

// Message is an inbound frame. The sender is never read from the frame; it
// is the identity bound to the session at handshake.
type Message struct {
	Type           MessageType `json:"type"`
	ConversationID *uuid.UUID  `json:"conversationId,omitempty"`
	Content        string      `json:"content,omitempty"`
	IsTyping       *bool       `json:"isTyping,omitempty"`
}

// ConversationTopic is the broadcast address of a conversation.
func ConversationTopic(conversationID uuid.UUID) string {
	return "conversation." + conversationID.String()
}

// Broker publishes a payload to every subscriber of a topic.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Hub tracks live clients and their topic subscriptions on this instance.
type Hub struct {
	mu sync.RWMutex

	clients map[uuid.UUID]*Client
	// one user may hold several connections
	userClients map[uuid.UUID]map[uuid.UUID]*Client
	topics      map[string]map[uuid.UUID]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[uuid.UUID]map[uuid.UUID]*Client),
		topics:      make(map[string]map[uuid.UUID]*Client),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if _, ok := h.userClients[client.Identity.ID]; !ok {
		h.userClients[client.Identity.ID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[client.Identity.ID][client.ID] = client

	log.Debugf("client registered: %s (user %s)", client.ID, client.Identity.Username)
}

// Unregister drops the client from every topic, closes its outbound queue
// and returns how many connections its user still holds.
func (h *Hub) Unregister(client *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return len(h.userClients[client.Identity.ID])
	}

	for topic := range client.topics {
		h.removeFromTopicLocked(client, topic)
	}

	remaining := 0
	if conns, ok := h.userClients[client.Identity.ID]; ok {
		delete(conns, client.ID)
		remaining = len(conns)
		if remaining == 0 {
			delete(h.userClients, client.Identity.ID)
		}
	}

	delete(h.clients, client.ID)
	client.closeSend()

	log.Debugf("client unregistered: %s (user %s)", client.ID, client.Identity.Username)
	return remaining
}

func (h *Hub) Subscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[uuid.UUID]*Client)
	}
	h.topics[topic][client.ID] = client
	client.topics[topic] = struct{}{}
}

func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromTopicLocked(client, topic)
}

func (h *Hub) removeFromTopicLocked(client *Client, topic string) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, client.ID)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(client.topics, topic)
}

func (h *Hub) IsSubscribed(client *Client, topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.topics[topic][client.ID]
	return ok
}

// Deliver hands payload to every local subscriber of topic without
// blocking. A subscriber whose queue is full misses the frame.
func (h *Hub) Deliver(topic string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, client := range h.topics[topic] {
		if err := client.Enqueue(payload); err != nil {
			log.Warningf("dropping frame for client %s on %s: %v", client.ID, topic, err)
			continue
		}
		delivered++
	}
	return delivered
}

// Publish makes the Hub a single-instance Broker.
func (h *Hub) Publish(_ context.Context, topic string, payload []byte) error {
	h.Deliver(topic, payload)
	return nil
}

func (h *Hub) ConnectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID])
}

// Shutdown closes every connection; their read loops then run the normal
// disconnect path.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.closeConn()
	}
}
