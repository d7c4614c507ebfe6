package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/relay-chat/internal/handlers/dto"
	"github.com/thereayou/relay-chat/internal/middleware"
	"github.com/thereayou/relay-chat/internal/services"
)

type ConversationHandler struct {
	conversations *services.ConversationService
	router        *BroadcastRouter
}

func NewConversationHandler(conversations *services.ConversationService, router *BroadcastRouter) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, router: router}
}

// CreateDirectConversation opens (or returns the existing) direct
// conversation with targetUserId.
func (h *ConversationHandler) CreateDirectConversation(c *gin.Context) {
	var req dto.CreateConversationRequest
	if !bindJSON(c, &req) {
		return
	}

	summary, err := h.conversations.CreateDirectConversation(c.Request.Context(), middleware.CurrentIdentity(c), req.TargetUserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.NewConversationResponse(summary)))
}

func (h *ConversationHandler) GetUserConversations(c *gin.Context) {
	list, err := h.conversations.GetUserConversations(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		fail(c, err)
		return
	}

	result := make([]dto.ConversationResponse, len(list))
	for i := range list {
		result[i] = dto.NewConversationResponse(&list[i])
	}
	c.JSON(http.StatusOK, dto.OK(result))
}

func (h *ConversationHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, services.ValidationError("id", "must be a UUID"))
		return
	}

	n, err := h.router.MarkRead(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.ReadResponse{ConversationID: id, Updated: n}))
}
