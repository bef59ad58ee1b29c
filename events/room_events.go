package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
	"github.com/wecord/chat-backend/domain/chat"
)

// Presence change kinds carried by PresenceChangedEvent.
const (
	PresenceUserJoined = "USER_JOINED"
	PresenceUserLeft   = "USER_LEFT"
)

// MessageSentEvent is emitted after a message has been persisted to a room's
// history.
type MessageSentEvent struct {
	RoomID  string       `json:"room_id"`
	Message chat.Message `json:"message"`
}

// PresenceChangedEvent is emitted after a join or leave has been persisted.
// OnlineUsers is the full set as of the mutation, so subscribers never have
// to reconstruct it from deltas.
type PresenceChangedEvent struct {
	Type        string    `json:"type"` // USER_JOINED or USER_LEFT
	RoomID      string    `json:"room_id"`
	Username    string    `json:"username"`
	OnlineUsers []string  `json:"online_users"`
	Timestamp   time.Time `json:"timestamp"`
}

// RoomDeletedEvent is emitted after a room and its messages have been
// removed.
type RoomDeletedEvent struct {
	RoomID    string    `json:"room_id"`
	DeletedBy string    `json:"deleted_by"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the room module.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"room",
		"MessageSent",
		"v1",
	)

	UserJoinedV1 = helper.EventDefinition[PresenceChangedEvent](
		"room",
		"UserJoined",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[PresenceChangedEvent](
		"room",
		"UserLeft",
		"v1",
	)

	RoomDeletedV1 = helper.EventDefinition[RoomDeletedEvent](
		"room",
		"RoomDeleted",
		"v1",
	)
)
