package room

import (
	"time"

	"github.com/wecord/chat-backend/domain/chat"
)

// RoomRecord is the persisted form of a room. Key is an internal storage
// identifier, distinct from the human-chosen RoomID. The online-users set is
// embedded in the row (serialized JSON) so a single-row write is the
// durability boundary for presence changes.
type RoomRecord struct {
	Key         string    `gorm:"primaryKey;size:36" json:"-"`
	RoomID      string    `gorm:"uniqueIndex;size:100;not null" json:"roomId"`
	Creator     string    `gorm:"size:50;not null" json:"creator"`
	CreatedAt   time.Time `json:"createdAt"`
	OnlineUsers []string  `gorm:"serializer:json" json:"onlineUsers"`
}

// TableName returns the table name for RoomRecord.
func (RoomRecord) TableName() string {
	return "rooms"
}

// MessageRecord is the persisted form of a message. Seq is a table-wide
// autoincrement; within a room it defines chronological order. Rows are only
// ever inserted or cascade-deleted with their room.
type MessageRecord struct {
	Seq         uint64    `gorm:"primaryKey;autoIncrement;index:idx_messages_room_seq,priority:2" json:"-"`
	RoomKey     string    `gorm:"size:36;not null;index:idx_messages_room_seq,priority:1" json:"-"`
	Sender      string    `gorm:"size:50;not null" json:"sender"`
	Content     string    `gorm:"size:5000;not null" json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	MessageType string    `gorm:"size:10;not null;default:TEXT" json:"messageType"`
}

// TableName returns the table name for MessageRecord.
func (MessageRecord) TableName() string {
	return "messages"
}

// toDomain converts a room row to its wire representation.
func (r *RoomRecord) toDomain() *chat.Room {
	users := r.OnlineUsers
	if users == nil {
		users = []string{}
	}
	return &chat.Room{
		RoomID:      r.RoomID,
		Creator:     r.Creator,
		CreatedAt:   r.CreatedAt,
		OnlineUsers: users,
	}
}

// toDomain converts a message row to its wire representation.
func (m *MessageRecord) toDomain(roomID string) chat.Message {
	return chat.Message{
		RoomID:      roomID,
		Sender:      m.Sender,
		Content:     m.Content,
		Timestamp:   m.Timestamp,
		MessageType: chat.MessageType(m.MessageType),
	}
}
