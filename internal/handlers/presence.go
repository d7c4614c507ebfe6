package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/relay-chat/internal/handlers/dto"
	"github.com/thereayou/relay-chat/internal/services"
)

type PresenceHandler struct {
	presence *services.PresenceService
}

func NewPresenceHandler(presence *services.PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

func (h *PresenceHandler) GetPresence(c *gin.Context) {
	username := c.Param("username")
	if username == "" {
		fail(c, services.ValidationError("username", "is required"))
		return
	}
	p := h.presence.GetPresence(c.Request.Context(), username)
	c.JSON(http.StatusOK, dto.OK(dto.NewPresenceResponse(p)))
}

// GetAllPresence lists users currently online. A presence store outage
// yields whatever was collected so far.
func (h *PresenceHandler) GetAllPresence(c *gin.Context) {
	all, err := h.presence.GetAllPresence(c.Request.Context())
	if err != nil {
		log.Warningf("presence scan incomplete: %v", err)
	}

	result := make(map[string]dto.PresenceResponse, len(all))
	for username, p := range all {
		result[username] = dto.NewPresenceResponse(p)
	}
	c.JSON(http.StatusOK, dto.OK(result))
}
