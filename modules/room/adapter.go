package room

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Port is the interface the API layer uses to reach the room services.
type Port interface {
	CreateRoom(ctx context.Context, req CreateRoomRequest) (CreateRoomResponse, error)
	GetRoom(ctx context.Context, roomID string) (GetRoomResponse, error)
	DeleteRoom(ctx context.Context, roomID, username string) (DeleteRoomResponse, error)
	JoinUser(ctx context.Context, roomID, username string) (PresenceResponse, error)
	LeaveUser(ctx context.Context, roomID, username string) (PresenceResponse, error)
	OnlineUsers(ctx context.Context, roomID string) (PresenceResponse, error)
	SendMessage(ctx context.Context, req SendMessageRequest) (SendMessageResponse, error)
	GetMessages(ctx context.Context, req GetMessagesRequest) (GetMessagesResponse, error)
}

// adapter implements Port over the service container.
type adapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates a Port backed by the room module's service container.
func NewAdapter(container mono.ServiceContainer) Port {
	if container == nil {
		panic("room: ServiceContainer is nil")
	}
	return &adapter{container: container}
}

func call[Req any, Resp any](ctx context.Context, a *adapter, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	return nil
}

func (a *adapter) CreateRoom(ctx context.Context, req CreateRoomRequest) (CreateRoomResponse, error) {
	var resp CreateRoomResponse
	err := call(ctx, a, ServiceCreateRoom, &req, &resp)
	return resp, err
}

func (a *adapter) GetRoom(ctx context.Context, roomID string) (GetRoomResponse, error) {
	req := GetRoomRequest{RoomID: roomID}
	var resp GetRoomResponse
	err := call(ctx, a, ServiceGetRoom, &req, &resp)
	return resp, err
}

func (a *adapter) DeleteRoom(ctx context.Context, roomID, username string) (DeleteRoomResponse, error) {
	req := DeleteRoomRequest{RoomID: roomID, Username: username}
	var resp DeleteRoomResponse
	err := call(ctx, a, ServiceDeleteRoom, &req, &resp)
	return resp, err
}

func (a *adapter) JoinUser(ctx context.Context, roomID, username string) (PresenceResponse, error) {
	req := PresenceRequest{RoomID: roomID, Username: username}
	var resp PresenceResponse
	err := call(ctx, a, ServiceJoinUser, &req, &resp)
	return resp, err
}

func (a *adapter) LeaveUser(ctx context.Context, roomID, username string) (PresenceResponse, error) {
	req := PresenceRequest{RoomID: roomID, Username: username}
	var resp PresenceResponse
	err := call(ctx, a, ServiceLeaveUser, &req, &resp)
	return resp, err
}

func (a *adapter) OnlineUsers(ctx context.Context, roomID string) (PresenceResponse, error) {
	req := PresenceRequest{RoomID: roomID}
	var resp PresenceResponse
	err := call(ctx, a, ServiceGetOnlineUsers, &req, &resp)
	return resp, err
}

func (a *adapter) SendMessage(ctx context.Context, req SendMessageRequest) (SendMessageResponse, error) {
	var resp SendMessageResponse
	err := call(ctx, a, ServiceSendMessage, &req, &resp)
	return resp, err
}

func (a *adapter) GetMessages(ctx context.Context, req GetMessagesRequest) (GetMessagesResponse, error) {
	var resp GetMessagesResponse
	err := call(ctx, a, ServiceGetMessages, &req, &resp)
	return resp, err
}
