package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/relay-chat/internal/handlers/dto"
	"github.com/thereayou/relay-chat/internal/middleware"
	"github.com/thereayou/relay-chat/internal/services"
)

type HTTPMessageHandler struct {
	messages *services.MessageService
	router   *BroadcastRouter
}

func NewHTTPMessageHandler(messages *services.MessageService, router *BroadcastRouter) *HTTPMessageHandler {
	return &HTTPMessageHandler{messages: messages, router: router}
}

// GetMessages returns one page of history, newest first. The page's
// nextBefore is the cursor for the next, older page.
func (h *HTTPMessageHandler) GetMessages(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Query("conversationId"))
	if err != nil {
		fail(c, services.ValidationError("conversationId", "must be a UUID"))
		return
	}

	limit := services.DefaultPageSize
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			fail(c, services.ValidationError("limit", "must be a positive integer"))
			return
		}
		limit = parsed
	}

	var before *time.Time
	if b := c.Query("before"); b != "" {
		t, err := time.Parse(time.RFC3339Nano, b)
		if err != nil {
			fail(c, services.ValidationError("before", "must be an RFC 3339 timestamp"))
			return
		}
		before = &t
	}

	messages, err := h.messages.GetMessages(c.Request.Context(), middleware.CurrentIdentity(c), conversationID, before, limit)
	if err != nil {
		fail(c, err)
		return
	}

	page := dto.MessagePageResponse{
		Messages: make([]dto.MessageResponse, len(messages)),
		HasMore:  len(messages) == min(limit, services.MaxPageSize),
	}
	for i := range messages {
		page.Messages[i] = dto.NewMessageResponse(&messages[i])
	}
	if n := len(messages); n > 0 {
		oldest := messages[n-1].CreatedAt
		page.NextBefore = &oldest
	}
	c.JSON(http.StatusOK, dto.OK(page))
}

// SendMessage is the REST alternative to the streaming SEND_MESSAGE frame;
// the stored message is broadcast the same way.
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.router.SendMessage(c.Request.Context(), middleware.CurrentIdentity(c), req.ConversationID, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.NewMessageResponse(msg)))
}
