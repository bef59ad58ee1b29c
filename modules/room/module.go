package room

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wecord/chat-backend/events"
	"github.com/wecord/chat-backend/modules/cache"
)

// DefaultTimezone is the reference timezone for server-assigned timestamps
// when CHAT_TIMEZONE is unset.
const DefaultTimezone = "Asia/Kolkata"

// Module provides the room services over GORM + SQLite and emits room
// events on the bus.
type Module struct {
	logger     types.Logger
	dbPath     string
	tzName     string
	db         *gorm.DB
	repo       *Repository
	tracker    *Tracker
	cacheStore cache.Store
	service    *Service
	eventBus   mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ EventSink                  = (*Module)(nil)
)

// NewModule creates a new room module.
func NewModule(moduleLogger types.Logger) *Module {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "chat.db"
	}
	tzName := os.Getenv("CHAT_TIMEZONE")
	if tzName == "" {
		tzName = DefaultTimezone
	}
	return &Module{
		logger: moduleLogger,
		dbPath: dbPath,
		tzName: tzName,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "room"
}

// SetCache attaches the history cache. Called from main before the
// application starts; without it the module runs uncached.
func (m *Module) SetCache(store cache.Store) {
	m.cacheStore = store
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
		events.RoomDeletedV1.ToBase(),
	}
}

// RegisterServices registers the room request-reply services. The framework
// prefixes them with "services.room." on the bus.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreateRoom, json.Unmarshal, json.Marshal, m.handleCreateRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateRoom, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetRoom, json.Unmarshal, json.Marshal, m.handleGetRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetRoom, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDeleteRoom, json.Unmarshal, json.Marshal, m.handleDeleteRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDeleteRoom, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceJoinUser, json.Unmarshal, json.Marshal, m.handleJoinUser,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceJoinUser, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceLeaveUser, json.Unmarshal, json.Marshal, m.handleLeaveUser,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceLeaveUser, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetOnlineUsers, json.Unmarshal, json.Marshal, m.handleGetOnlineUsers,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetOnlineUsers, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceSendMessage, json.Unmarshal, json.Marshal, m.handleSendMessage,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSendMessage, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetMessages, json.Unmarshal, json.Marshal, m.handleGetMessages,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetMessages, err)
	}

	m.logger.Info("Registered room services",
		"services", "create-room,get-room,delete-room,join-user,leave-user,get-online-users,send-message,get-messages")
	return nil
}

// Start opens the database, runs migrations and hydrates presence.
func (m *Module) Start(ctx context.Context) error {
	loc, err := time.LoadLocation(m.tzName)
	if err != nil {
		return fmt.Errorf("invalid CHAT_TIMEZONE %q: %w", m.tzName, err)
	}

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(&RoomRecord{}, &MessageRecord{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.repo = NewRepository(m.db)
	m.tracker = NewTracker()
	m.service = NewService(m.repo, m.tracker, m.cacheStore, m, loc)

	if err := m.service.Hydrate(ctx); err != nil {
		return err
	}

	m.logger.Info("Room module started", "db", m.dbPath, "timezone", m.tzName)
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	m.logger.Info("Room module stopped")
	return nil
}

// Health performs a database ping.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver":   "sqlite",
			"path":     m.dbPath,
			"timezone": m.tzName,
		},
	}
}

// Service returns the room service. Exposed for tests.
func (m *Module) Service() *Service {
	return m.service
}

// MessageSent publishes a MessageSent event on the bus.
func (m *Module) MessageSent(ev events.MessageSentEvent) {
	if err := events.MessageSentV1.Publish(m.eventBus, ev, nil); err != nil {
		m.logger.Warn("Failed to publish MessageSent event", "roomID", ev.RoomID, "error", err)
	}
}

// PresenceChanged publishes a UserJoined or UserLeft event on the bus.
func (m *Module) PresenceChanged(ev events.PresenceChangedEvent) {
	def := events.UserJoinedV1
	if ev.Type == events.PresenceUserLeft {
		def = events.UserLeftV1
	}
	if err := def.Publish(m.eventBus, ev, nil); err != nil {
		m.logger.Warn("Failed to publish presence event", "type", ev.Type, "roomID", ev.RoomID, "error", err)
	}
}

// RoomDeleted publishes a RoomDeleted event on the bus.
func (m *Module) RoomDeleted(ev events.RoomDeletedEvent) {
	if err := events.RoomDeletedV1.Publish(m.eventBus, ev, nil); err != nil {
		m.logger.Warn("Failed to publish RoomDeleted event", "roomID", ev.RoomID, "error", err)
	}
}
