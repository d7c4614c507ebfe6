package dto

import (
	"time"

	"github.com/thereayou/relay-chat/internal/services"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func OK(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data, Timestamp: time.Now().UTC()}
}

func Message(msg string) APIResponse {
	return APIResponse{Success: true, Message: msg, Timestamp: time.Now().UTC()}
}

type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	Field     string    `json:"field,omitempty"`
}

type PresenceResponse struct {
	Username string                  `json:"username"`
	Status   services.PresenceStatus `json:"status"`
	LastSeen *time.Time              `json:"lastSeen"`
}

func NewPresenceResponse(p services.Presence) PresenceResponse {
	return PresenceResponse{Username: p.Username, Status: p.Status, LastSeen: p.LastSeen}
}
