package chat

import "time"

// MessageType classifies a chat message.
type MessageType string

// Message type values.
const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeJoin  MessageType = "JOIN"
	MessageTypeLeave MessageType = "LEAVE"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeJoin, MessageTypeLeave:
		return true
	}
	return false
}

// Room is the wire representation of a chat room. Message history is not
// inlined; it is paginated separately.
type Room struct {
	RoomID      string    `json:"roomId"`
	Creator     string    `json:"creator"`
	CreatedAt   time.Time `json:"createdAt"`
	OnlineUsers []string  `json:"onlineUsers"`
}

// Message is the wire representation of a chat message.
type Message struct {
	RoomID      string      `json:"roomId"`
	Sender      string      `json:"sender"`
	Content     string      `json:"content"`
	Timestamp   time.Time   `json:"timestamp"`
	MessageType MessageType `json:"messageType"`
}
