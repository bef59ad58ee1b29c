package room

import (
	"context"
	"errors"

	"github.com/go-monolith/mono"
)

// resultCode maps a service error to the response code the API layer
// translates into an HTTP status. Unknown errors map to "" and are
// propagated as transport errors instead.
func resultCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomExists):
		return CodeRoomExists
	case errors.Is(err, ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, ErrNotCreator):
		return CodeForbidden
	case errors.Is(err, ErrRoomIDEmpty),
		errors.Is(err, ErrRoomIDTooLong),
		errors.Is(err, ErrRoomIDInvalid),
		errors.Is(err, ErrUsernameEmpty),
		errors.Is(err, ErrUsernameTooLong),
		errors.Is(err, ErrUsernameInvalid),
		errors.Is(err, ErrContentEmpty),
		errors.Is(err, ErrContentTooLong),
		errors.Is(err, ErrContentInvalid):
		return CodeValidation
	}
	return ""
}

func (m *Module) handleCreateRoom(ctx context.Context, req CreateRoomRequest, _ *mono.Msg) (CreateRoomResponse, error) {
	created, err := m.service.CreateRoom(ctx, req.RoomID, req.Creator)
	if err != nil {
		if code := resultCode(err); code != "" {
			return CreateRoomResponse{Status: failure(code, err)}, nil
		}
		return CreateRoomResponse{}, err
	}
	return CreateRoomResponse{Room: created}, nil
}

func (m *Module) handleGetRoom(ctx context.Context, req GetRoomRequest, _ *mono.Msg) (GetRoomResponse, error) {
	found, err := m.service.GetRoom(ctx, req.RoomID)
	if err != nil {
		if code := resultCode(err); code != "" {
			return GetRoomResponse{Status: failure(code, err)}, nil
		}
		return GetRoomResponse{}, err
	}
	return GetRoomResponse{Room: found}, nil
}

func (m *Module) handleDeleteRoom(ctx context.Context, req DeleteRoomRequest, _ *mono.Msg) (DeleteRoomResponse, error) {
	if err := m.service.DeleteRoom(ctx, req.RoomID, req.Username); err != nil {
		if code := resultCode(err); code != "" {
			return DeleteRoomResponse{Status: failure(code, err)}, nil
		}
		return DeleteRoomResponse{}, err
	}
	return DeleteRoomResponse{Deleted: true}, nil
}

func (m *Module) handleJoinUser(ctx context.Context, req PresenceRequest, _ *mono.Msg) (PresenceResponse, error) {
	users, err := m.service.JoinUser(ctx, req.RoomID, req.Username)
	if err != nil {
		if code := resultCode(err); code != "" {
			return PresenceResponse{Status: failure(code, err)}, nil
		}
		return PresenceResponse{}, err
	}
	return PresenceResponse{OnlineUsers: users}, nil
}

func (m *Module) handleLeaveUser(ctx context.Context, req PresenceRequest, _ *mono.Msg) (PresenceResponse, error) {
	users, err := m.service.LeaveUser(ctx, req.RoomID, req.Username)
	if err != nil {
		if code := resultCode(err); code != "" {
			return PresenceResponse{Status: failure(code, err)}, nil
		}
		return PresenceResponse{}, err
	}
	return PresenceResponse{OnlineUsers: users}, nil
}

func (m *Module) handleGetOnlineUsers(ctx context.Context, req PresenceRequest, _ *mono.Msg) (PresenceResponse, error) {
	users, err := m.service.OnlineUsers(ctx, req.RoomID)
	if err != nil {
		if code := resultCode(err); code != "" {
			return PresenceResponse{Status: failure(code, err)}, nil
		}
		return PresenceResponse{}, err
	}
	return PresenceResponse{OnlineUsers: users}, nil
}

func (m *Module) handleSendMessage(ctx context.Context, req SendMessageRequest, _ *mono.Msg) (SendMessageResponse, error) {
	msg, err := m.service.SendMessage(ctx, req)
	if err != nil {
		if code := resultCode(err); code != "" {
			return SendMessageResponse{Status: failure(code, err)}, nil
		}
		return SendMessageResponse{}, err
	}
	return SendMessageResponse{Message: msg}, nil
}

func (m *Module) handleGetMessages(ctx context.Context, req GetMessagesRequest, _ *mono.Msg) (GetMessagesResponse, error) {
	msgs, err := m.service.GetMessages(ctx, req.RoomID, req.Page, req.Size)
	if err != nil {
		if code := resultCode(err); code != "" {
			return GetMessagesResponse{Status: failure(code, err)}, nil
		}
		return GetMessagesResponse{}, err
	}
	return GetMessagesResponse{Messages: msgs}, nil
}
