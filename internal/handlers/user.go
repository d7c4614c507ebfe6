package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/relay-chat/internal/handlers/dto"
	"github.com/thereayou/relay-chat/internal/middleware"
	"github.com/thereayou/relay-chat/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	me := middleware.CurrentIdentity(c)
	user, err := h.users.GetUser(c.Request.Context(), me.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.NewUserResponse(user)))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, services.ValidationError("id", "must be a UUID"))
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.NewUserResponse(user)))
}

func (h *UserHandler) SearchUsers(c *gin.Context) {
	users, err := h.users.Search(c.Request.Context(), middleware.CurrentIdentity(c), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}

	result := make([]dto.UserResponse, len(users))
	for i := range users {
		result[i] = dto.NewUserResponse(&users[i])
	}
	c.JSON(http.StatusOK, dto.OK(result))
}
