package room

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResultCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"room exists", ErrRoomExists, CodeRoomExists},
		{"room not found", ErrRoomNotFound, CodeRoomNotFound},
		{"not creator", ErrNotCreator, CodeForbidden},
		{"empty room id", ErrRoomIDEmpty, CodeValidation},
		{"empty username", ErrUsernameEmpty, CodeValidation},
		{"content too long", ErrContentTooLong, CodeValidation},
		{"wrapped sentinel", errors.Join(errors.New("context"), ErrRoomNotFound), CodeRoomNotFound},
		{"unknown error", errors.New("disk on fire"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resultCode(tt.err); got != tt.want {
				t.Errorf("resultCode(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

// handlerModule builds a Module with just enough wiring to invoke the
// service handlers directly.
func handlerModule(t *testing.T) *Module {
	t.Helper()
	svc, _ := setupService(t)
	return &Module{service: svc}
}

func TestHandlers_DomainFailuresBecomeStatusCodes(t *testing.T) {
	m := handlerModule(t)
	ctx := context.Background()

	if _, err := m.service.CreateRoom(ctx, "general", "alice"); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	t.Run("duplicate create", func(t *testing.T) {
		resp, err := m.handleCreateRoom(ctx, CreateRoomRequest{RoomID: "general", Creator: "bob"}, nil)
		if err != nil {
			t.Fatalf("expected domain failure in status, got transport error %v", err)
		}
		if resp.Code != CodeRoomExists {
			t.Errorf("expected code %q, got %q", CodeRoomExists, resp.Code)
		}
	})

	t.Run("send to missing room", func(t *testing.T) {
		resp, err := m.handleSendMessage(ctx, SendMessageRequest{
			RoomID: "nowhere", Sender: "alice", Content: "lost",
		}, nil)
		if err != nil {
			t.Fatalf("expected domain failure in status, got transport error %v", err)
		}
		if resp.Code != CodeRoomNotFound {
			t.Errorf("expected code %q, got %q", CodeRoomNotFound, resp.Code)
		}
	})

	t.Run("delete by non-creator", func(t *testing.T) {
		resp, err := m.handleDeleteRoom(ctx, DeleteRoomRequest{RoomID: "general", Username: "bob"}, nil)
		if err != nil {
			t.Fatalf("expected domain failure in status, got transport error %v", err)
		}
		if resp.Code != CodeForbidden {
			t.Errorf("expected code %q, got %q", CodeForbidden, resp.Code)
		}
	})
}

func TestHandlers_SuccessPath(t *testing.T) {
	m := handlerModule(t)
	ctx := context.Background()

	create, err := m.handleCreateRoom(ctx, CreateRoomRequest{RoomID: "general", Creator: "alice"}, nil)
	if err != nil {
		t.Fatalf("handleCreateRoom() error = %v", err)
	}
	if !create.OK() || create.Room == nil {
		t.Fatalf("unexpected response %+v", create)
	}

	join, err := m.handleJoinUser(ctx, PresenceRequest{RoomID: "general", Username: "bob"}, nil)
	if err != nil {
		t.Fatalf("handleJoinUser() error = %v", err)
	}
	if len(join.OnlineUsers) != 2 {
		t.Errorf("expected 2 online users, got %v", join.OnlineUsers)
	}

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	send, err := m.handleSendMessage(ctx, SendMessageRequest{
		RoomID: "general", Sender: "bob", Content: "hi", Timestamp: &ts,
	}, nil)
	if err != nil {
		t.Fatalf("handleSendMessage() error = %v", err)
	}
	if send.Message == nil || send.Message.Content != "hi" {
		t.Errorf("unexpected message %+v", send.Message)
	}

	history, err := m.handleGetMessages(ctx, GetMessagesRequest{RoomID: "general", Page: 0, Size: 20}, nil)
	if err != nil {
		t.Fatalf("handleGetMessages() error = %v", err)
	}
	if len(history.Messages) != 1 {
		t.Errorf("expected 1 message in history, got %d", len(history.Messages))
	}
}
