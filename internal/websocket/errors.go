package websocket

import "errors"

var (
	ErrClientQueueFull    = errors.New("client message queue is full")
	ErrClientClosed       = errors.New("client is closed")
	ErrInvalidMessage     = errors.New("invalid message format")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidTransition  = errors.New("invalid session state transition")
	ErrNotAuthenticated   = errors.New("session is not authenticated")
)
