package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/wecord/chat-backend/events"
)

// NoticeRoomDeleted is the frame type sent on a room's topics when the
// room is removed.
const NoticeRoomDeleted = "ROOM_DELETED"

// RoomTopic is the hub topic carrying chat messages for a room.
func RoomTopic(roomID string) string {
	return "room/" + roomID
}

// PresenceTopic is the hub topic carrying online-user updates for a room.
func PresenceTopic(roomID string) string {
	return RoomTopic(roomID) + "/online-users"
}

// PresenceNotice is the frame body published on a presence topic.
type PresenceNotice struct {
	Type        string    `json:"type"`
	RoomID      string    `json:"roomId"`
	Username    string    `json:"username"`
	OnlineUsers []string  `json:"onlineUsers"`
	Timestamp   time.Time `json:"timestamp"`
}

// DeletionNotice is the frame body published on both of a room's topics
// just before their subscriptions are closed.
type DeletionNotice struct {
	Type      string    `json:"type"`
	RoomID    string    `json:"roomId"`
	DeletedBy string    `json:"deletedBy"`
	Timestamp time.Time `json:"timestamp"`
}

// Module consumes room events from the bus and fans them out to websocket
// subscribers through the topic hub.
type Module struct {
	logger types.Logger
	hub    *Hub
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new broadcast module.
func NewModule(moduleLogger types.Logger) *Module {
	return &Module{
		logger: moduleLogger,
		hub:    NewHub(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("broadcast hub ready")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("broadcast hub stopped", "topics", m.hub.TopicCount())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"topics": m.hub.TopicCount(),
		},
	}
}

// Hub returns the topic hub for the API module to attach websocket
// connections to.
func (m *Module) Hub() *Hub {
	return m.hub
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserJoinedV1, m.handlePresenceChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserLeftV1, m.handlePresenceChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomDeletedV1, m.handleRoomDeleted, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomDeleted consumer: %w", err)
	}

	m.logger.Info("registered event consumers", "events", "MessageSent, UserJoined, UserLeft, RoomDeleted")
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	m.logger.Debug("broadcasting message", "room", event.RoomID, "sender", event.Message.Sender)

	m.hub.Publish(RoomTopic(event.RoomID), event.Message)
	return nil
}

func (m *Module) handlePresenceChanged(_ context.Context, event events.PresenceChangedEvent, _ *mono.Msg) error {
	m.logger.Debug("broadcasting presence change", "room", event.RoomID, "user", event.Username, "type", event.Type)

	m.hub.Publish(PresenceTopic(event.RoomID), PresenceNotice{
		Type:        event.Type,
		RoomID:      event.RoomID,
		Username:    event.Username,
		OnlineUsers: event.OnlineUsers,
		Timestamp:   event.Timestamp,
	})
	return nil
}

func (m *Module) handleRoomDeleted(_ context.Context, event events.RoomDeletedEvent, _ *mono.Msg) error {
	m.logger.Info("room deleted, closing topics", "room", event.RoomID)

	notice := DeletionNotice{
		Type:      NoticeRoomDeleted,
		RoomID:    event.RoomID,
		DeletedBy: event.DeletedBy,
		Timestamp: event.Timestamp,
	}
	m.hub.Publish(RoomTopic(event.RoomID), notice)
	m.hub.Publish(PresenceTopic(event.RoomID), notice)

	m.hub.CloseTopic(RoomTopic(event.RoomID))
	m.hub.CloseTopic(PresenceTopic(event.RoomID))
	return nil
}
