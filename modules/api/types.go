package api

import (
	"encoding/json"
	"time"

	"github.com/wecord/chat-backend/domain/chat"
)

// CreateRoomRequest is the API request to create a room.
type CreateRoomRequest struct {
	RoomID  string `json:"roomId"`
	Creator string `json:"creator"`
}

// PresenceRequest is the API request body for join-user and leave-user.
type PresenceRequest struct {
	Username string `json:"username"`
}

// OnlineUsersResponse is the API response carrying a room's online users.
type OnlineUsersResponse struct {
	RoomID      string   `json:"roomId"`
	OnlineUsers []string `json:"onlineUsers"`
}

// HistoryResponse is the API response for one page of room history.
type HistoryResponse struct {
	RoomID   string         `json:"roomId"`
	Page     int            `json:"page"`
	Size     int            `json:"size"`
	Messages []chat.Message `json:"messages"`
}

// DeleteRoomResponse is the API response after deleting a room.
type DeleteRoomResponse struct {
	RoomID  string `json:"roomId"`
	Deleted bool   `json:"deleted"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// WebSocket frame actions accepted on /ws.
const (
	ActionSubscribe   = "SUBSCRIBE"
	ActionUnsubscribe = "UNSUBSCRIBE"
	ActionSend        = "SEND"
)

// Destination prefixes for SEND frames.
const (
	DestSendMessage = "sendMessage/"
	DestJoinRoom    = "joinRoom/"
	DestLeaveRoom   = "leaveRoom/"
)

// WSCommand is the client-to-server frame on /ws. SUBSCRIBE and
// UNSUBSCRIBE carry Topic; SEND carries Destination and Body.
type WSCommand struct {
	Action      string          `json:"action"`
	Topic       string          `json:"topic,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// WSChatBody is the SEND body for a sendMessage destination.
type WSChatBody struct {
	Sender      string           `json:"sender"`
	Content     string           `json:"content"`
	MessageType chat.MessageType `json:"messageType,omitempty"`
	Timestamp   *time.Time       `json:"timestamp,omitempty"`
}

// WSPresenceBody is the SEND body for joinRoom and leaveRoom
// destinations.
type WSPresenceBody struct {
	Username string `json:"username"`
}

// WSError is the server-to-client error frame.
type WSError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
