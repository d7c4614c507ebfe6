package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/relay-chat/internal/handlers/dto"
	"github.com/thereayou/relay-chat/internal/middleware"
	"github.com/thereayou/relay-chat/internal/services"
)

type AuthHandler struct {
	accounts *services.AuthService
}

func NewAuthHandler(accounts *services.AuthService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.OK(authResponse(res)))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(authResponse(res)))
}

// Logout revokes the token the request was authenticated with.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), middleware.CurrentToken(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Message("logged out"))
}

func authResponse(res *services.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		User:        dto.NewUserResponse(res.User),
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   res.ExpiresAt,
	}
}
