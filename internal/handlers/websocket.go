package handlers

import (
	"github.com/gin-gonic/gin"
	ws "github.com/thereayou/relay-chat/internal/websocket"
)

type WebSocketHandler struct {
	gateway *ws.Gateway
}

func NewWebSocketHandler(gateway *ws.Gateway) *WebSocketHandler {
	return &WebSocketHandler{gateway: gateway}
}

// HandleWebSocket authenticates the upgrade request from its Authorization
// header and then hands the connection to the gateway.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	session, err := h.gateway.Handshake(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		fail(c, err)
		return
	}
	h.gateway.Serve(c.Writer, c.Request, session)
}
