package room

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wecord/chat-backend/domain/chat"
)

// Validation constants.
const (
	MaxUsernameLength = 50
	MaxRoomIDLength   = 100
	MaxContentLength  = 5000
)

// Pagination defaults. A non-positive size is substituted with
// DefaultPageSize rather than rejected; a negative page is treated as 0.
const (
	DefaultPage     = 0
	DefaultPageSize = 20
)

// Validation errors.
var (
	ErrRoomIDEmpty     = errors.New("room id cannot be empty")
	ErrRoomIDTooLong   = errors.New("room id exceeds maximum length")
	ErrRoomIDInvalid   = errors.New("room id contains invalid characters")
	ErrUsernameEmpty   = errors.New("username cannot be empty")
	ErrUsernameTooLong = errors.New("username exceeds maximum length")
	ErrUsernameInvalid = errors.New("username contains invalid characters")
	ErrContentEmpty    = errors.New("message content cannot be empty")
	ErrContentTooLong  = errors.New("message exceeds maximum length")
	ErrContentInvalid  = errors.New("message contains invalid characters")
)

// Domain errors.
var (
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room not found")
	ErrNotCreator   = errors.New("only the room creator can delete this room")
)

// Result codes carried in service responses. An empty code means success;
// the API layer maps codes to HTTP statuses.
const (
	CodeValidation   = "validation_error"
	CodeRoomExists   = "room_exists"
	CodeRoomNotFound = "room_not_found"
	CodeForbidden    = "forbidden"
)

// Status is embedded in every service response.
type Status struct {
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// OK reports whether the response carries no error code.
func (s Status) OK() bool {
	return s.Code == ""
}

// failure builds a Status from a result code and an error.
func failure(code string, err error) Status {
	return Status{Code: code, Detail: err.Error()}
}

// Service name constants. The framework prefixes these with
// "services.room." on the bus.
const (
	ServiceCreateRoom     = "create-room"
	ServiceGetRoom        = "get-room"
	ServiceDeleteRoom     = "delete-room"
	ServiceJoinUser       = "join-user"
	ServiceLeaveUser      = "leave-user"
	ServiceGetOnlineUsers = "get-online-users"
	ServiceSendMessage    = "send-message"
	ServiceGetMessages    = "get-messages"
)

// CreateRoomRequest is the request for creating a room.
type CreateRoomRequest struct {
	RoomID  string `json:"roomId"`
	Creator string `json:"creator"`
}

// CreateRoomResponse is the response after creating a room.
type CreateRoomResponse struct {
	Status
	Room *chat.Room `json:"room,omitempty"`
}

// GetRoomRequest is the request for fetching a room.
type GetRoomRequest struct {
	RoomID string `json:"roomId"`
}

// GetRoomResponse is the response for fetching a room.
type GetRoomResponse struct {
	Status
	Room *chat.Room `json:"room,omitempty"`
}

// DeleteRoomRequest is the request for deleting a room.
type DeleteRoomRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// DeleteRoomResponse is the response after deleting a room.
type DeleteRoomResponse struct {
	Status
	Deleted bool `json:"deleted"`
}

// PresenceRequest is the request for join-user, leave-user and
// get-online-users.
type PresenceRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username,omitempty"`
}

// PresenceResponse carries the updated online-users set.
type PresenceResponse struct {
	Status
	OnlineUsers []string `json:"onlineUsers,omitempty"`
}

// SendMessageRequest is the request for sending a message. Timestamp is
// optional; the server assigns one in the reference timezone when omitted.
type SendMessageRequest struct {
	RoomID      string           `json:"roomId"`
	Sender      string           `json:"sender"`
	Content     string           `json:"content"`
	MessageType chat.MessageType `json:"messageType,omitempty"`
	Timestamp   *time.Time       `json:"timestamp,omitempty"`
}

// SendMessageResponse is the response after a message has been persisted.
type SendMessageResponse struct {
	Status
	Message *chat.Message `json:"message,omitempty"`
}

// GetMessagesRequest is the request for a page of room history.
type GetMessagesRequest struct {
	RoomID string `json:"roomId"`
	Page   int    `json:"page"`
	Size   int    `json:"size"`
}

// GetMessagesResponse is the response carrying one page of history in
// chronological order.
type GetMessagesResponse struct {
	Status
	Messages []chat.Message `json:"messages"`
}

// ValidateRoomID validates a human-chosen room identifier.
func ValidateRoomID(roomID string) error {
	if strings.TrimSpace(roomID) == "" {
		return ErrRoomIDEmpty
	}
	if len(roomID) > MaxRoomIDLength {
		return ErrRoomIDTooLong
	}
	if !utf8.ValidString(roomID) {
		return ErrRoomIDInvalid
	}
	return nil
}

// ValidateUsername validates a username.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	if !utf8.ValidString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

// ValidateContent validates message content.
func ValidateContent(content string) error {
	if content == "" {
		return ErrContentEmpty
	}
	if len(content) > MaxContentLength {
		return ErrContentTooLong
	}
	if !utf8.ValidString(content) {
		return ErrContentInvalid
	}
	return nil
}
