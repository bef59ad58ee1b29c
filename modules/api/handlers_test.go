package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"

	"github.com/wecord/chat-backend/domain/chat"
	"github.com/wecord/chat-backend/modules/broadcast"
	"github.com/wecord/chat-backend/modules/room"
)

// mockLogger implements types.Logger for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }

// fakePort serves canned responses and records the last request of each
// kind.
type fakePort struct {
	createResp   room.CreateRoomResponse
	getResp      room.GetRoomResponse
	deleteResp   room.DeleteRoomResponse
	presenceResp room.PresenceResponse
	sendResp     room.SendMessageResponse
	messagesResp room.GetMessagesResponse

	lastCreate   room.CreateRoomRequest
	lastMessages room.GetMessagesRequest
	lastPresence struct {
		roomID   string
		username string
		join     bool
	}
}

func (f *fakePort) CreateRoom(_ context.Context, req room.CreateRoomRequest) (room.CreateRoomResponse, error) {
	f.lastCreate = req
	return f.createResp, nil
}

func (f *fakePort) GetRoom(_ context.Context, _ string) (room.GetRoomResponse, error) {
	return f.getResp, nil
}

func (f *fakePort) DeleteRoom(_ context.Context, _, _ string) (room.DeleteRoomResponse, error) {
	return f.deleteResp, nil
}

func (f *fakePort) JoinUser(_ context.Context, roomID, username string) (room.PresenceResponse, error) {
	f.lastPresence.roomID, f.lastPresence.username, f.lastPresence.join = roomID, username, true
	return f.presenceResp, nil
}

func (f *fakePort) LeaveUser(_ context.Context, roomID, username string) (room.PresenceResponse, error) {
	f.lastPresence.roomID, f.lastPresence.username, f.lastPresence.join = roomID, username, false
	return f.presenceResp, nil
}

func (f *fakePort) OnlineUsers(_ context.Context, _ string) (room.PresenceResponse, error) {
	return f.presenceResp, nil
}

func (f *fakePort) SendMessage(_ context.Context, _ room.SendMessageRequest) (room.SendMessageResponse, error) {
	return f.sendResp, nil
}

func (f *fakePort) GetMessages(_ context.Context, req room.GetMessagesRequest) (room.GetMessagesResponse, error) {
	f.lastMessages = req
	return f.messagesResp, nil
}

// setupTestAPI builds the module around a fake port, without starting a
// listener.
func setupTestAPI(t *testing.T, port room.Port) *Module {
	t.Helper()

	m := &Module{
		logger: &mockLogger{},
		rooms:  port,
		hub:    broadcast.NewHub(),
		port:   "0",
	}
	m.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	m.setupRoutes()
	return m
}

func TestCreateRoom(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("created", func(t *testing.T) {
		port := &fakePort{createResp: room.CreateRoomResponse{
			Room: &chat.Room{RoomID: "general", Creator: "alice", CreatedAt: created, OnlineUsers: []string{"alice"}},
		}}
		m := setupTestAPI(t, port)

		body, _ := json.Marshal(CreateRoomRequest{RoomID: "general", Creator: "alice"})
		req := httptest.NewRequest("POST", "/api/v1/rooms", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.app.Test(req)
		if err != nil {
			t.Fatalf("request error = %v", err)
		}
		if resp.StatusCode != fiber.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		var got chat.Room
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("decode error = %v", err)
		}
		if got.RoomID != "general" || got.Creator != "alice" {
			t.Errorf("unexpected room %+v", got)
		}
		if port.lastCreate.RoomID != "general" {
			t.Errorf("port received %+v", port.lastCreate)
		}
	})

	t.Run("duplicate is a client error", func(t *testing.T) {
		port := &fakePort{createResp: room.CreateRoomResponse{
			Status: room.Status{Code: room.CodeRoomExists, Detail: "room already exists"},
		}}
		m := setupTestAPI(t, port)

		body, _ := json.Marshal(CreateRoomRequest{RoomID: "general", Creator: "bob"})
		req := httptest.NewRequest("POST", "/api/v1/rooms", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.app.Test(req)
		if err != nil {
			t.Fatalf("request error = %v", err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}

		var got ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("decode error = %v", err)
		}
		if got.Error != room.CodeRoomExists {
			t.Errorf("expected error code %q, got %q", room.CodeRoomExists, got.Error)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		m := setupTestAPI(t, &fakePort{})

		req := httptest.NewRequest("POST", "/api/v1/rooms", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.app.Test(req)
		if err != nil {
			t.Fatalf("request error = %v", err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestGetRoom(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		port := &fakePort{getResp: room.GetRoomResponse{
			Room: &chat.Room{RoomID: "general", Creator: "alice", OnlineUsers: []string{"alice", "bob"}},
		}}
		m := setupTestAPI(t, port)

		resp, err := m.app.Test(httptest.NewRequest("GET", "/api/v1/rooms/general", nil))
		if err != nil {
			t.Fatalf("request error = %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("missing room", func(t *testing.T) {
		port := &fakePort{getResp: room.GetRoomResponse{
			Status: room.Status{Code: room.CodeRoomNotFound, Detail: "room not found"},
		}}
		m := setupTestAPI(t, port)

		resp, err := m.app.Test(httptest.NewRequest("GET", "/api/v1/rooms/nowhere", nil))
		if err != nil {
			t.Fatalf("request error = %v", err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestDeleteRoom(t *testing.T) {
	t.Run("forbidden for non-creator", func(t *testing.T) {
		port := &fakePort{deleteResp: room.DeleteRoomResponse{
			Status: room.Status{Code: room.CodeForbidden, Detail: "only the room creator can delete this room"},
		}}
		m := setupTestAPI(t, port)

		resp, err := m.app.Test(httptest.NewRequest("DELETE", "/api/v1/rooms/general?username=bob", nil))
		if err != nil {
			t.Fatalf("request error = %v", err)
		}
		if resp.StatusCode != fiber.StatusForbidden {
			t.Fatalf("expected 403, got %d", resp.StatusCode)
		}
	})

	t.Run("deleted", func(t *testing.T) {
		port := &fakePort{deleteResp: room.DeleteRoomResponse{Deleted: true}}
		m := setupTestAPI(t, port)

		resp, err := m.app.Test(httptest.NewRequest("DELETE", "/api/v1/rooms/general?username=alice", nil))
		if err != nil {
			t.Fatalf("request error = %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	})
}

func TestJoinLeaveUser(t *testing.T) {
	port := &fakePort{presenceResp: room.PresenceResponse{OnlineUsers: []string{"alice", "bob"}}}
	m := setupTestAPI(t, port)

	body, _ := json.Marshal(PresenceRequest{Username: "bob"})
	req := httptest.NewRequest("POST", "/api/v1/rooms/general/join-user", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.app.Test(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !port.lastPresence.join || port.lastPresence.username != "bob" {
		t.Errorf("unexpected presence call %+v", port.lastPresence)
	}

	var got OnlineUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(got.OnlineUsers) != 2 {
		t.Errorf("expected 2 online users, got %v", got.OnlineUsers)
	}

	body, _ = json.Marshal(PresenceRequest{Username: "bob"})
	req = httptest.NewRequest("POST", "/api/v1/rooms/general/leave-user", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	if _, err := m.app.Test(req); err != nil {
		t.Fatalf("request error = %v", err)
	}
	if port.lastPresence.join {
		t.Error("expected the second call to be a leave")
	}
}

func TestGetMessages(t *testing.T) {
	port := &fakePort{messagesResp: room.GetMessagesResponse{
		Messages: []chat.Message{{RoomID: "general", Sender: "alice", Content: "hi", MessageType: chat.MessageTypeText}},
	}}
	m := setupTestAPI(t, port)

	t.Run("explicit paging", func(t *testing.T) {
		resp, err := m.app.Test(httptest.NewRequest("GET", "/api/v1/rooms/general/messages?page=2&size=5", nil))
		if err != nil {
			t.Fatalf("request error = %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if port.lastMessages.Page != 2 || port.lastMessages.Size != 5 {
			t.Errorf("expected page=2 size=5, got %+v", port.lastMessages)
		}

		var got HistoryResponse
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("decode error = %v", err)
		}
		if got.Page != 2 || len(got.Messages) != 1 {
			t.Errorf("unexpected response %+v", got)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		if _, err := m.app.Test(httptest.NewRequest("GET", "/api/v1/rooms/general/messages", nil)); err != nil {
			t.Fatalf("request error = %v", err)
		}
		if port.lastMessages.Page != room.DefaultPage || port.lastMessages.Size != room.DefaultPageSize {
			t.Errorf("expected default paging, got %+v", port.lastMessages)
		}
	})

	t.Run("garbage query values fall back", func(t *testing.T) {
		if _, err := m.app.Test(httptest.NewRequest("GET", "/api/v1/rooms/general/messages?page=abc&size=xyz", nil)); err != nil {
			t.Fatalf("request error = %v", err)
		}
		if port.lastMessages.Page != room.DefaultPage || port.lastMessages.Size != room.DefaultPageSize {
			t.Errorf("expected default paging on garbage input, got %+v", port.lastMessages)
		}
	})
}

func TestCORSAllowedOrigins(t *testing.T) {
	m := &Module{
		logger:      &mockLogger{},
		rooms:       &fakePort{},
		hub:         broadcast.NewHub(),
		port:        "0",
		corsOrigins: "https://chat.example.com",
	}
	m.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	m.setupMiddleware()
	m.setupRoutes()

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://chat.example.com")
	resp, err := m.app.Test(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://chat.example.com" {
		t.Errorf("expected allowed origin header, got %q", got)
	}

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = m.app.Test(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header for unlisted origin, got %q", got)
	}
}

func TestHealthEndpoint(t *testing.T) {
	m := setupTestAPI(t, &fakePort{})

	resp, err := m.app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if got.Status != "healthy" {
		t.Errorf("expected healthy, got %q", got.Status)
	}
}
