package api

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/wecord/chat-backend/modules/room"
)

// httpStatus maps service result codes to HTTP statuses. Missing rooms
// are a client error on the REST surface.
func httpStatus(code string) int {
	switch code {
	case room.CodeValidation, room.CodeRoomExists, room.CodeRoomNotFound:
		return fiber.StatusBadRequest
	case room.CodeForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, st room.Status) error {
	return c.Status(httpStatus(st.Code)).JSON(ErrorResponse{
		Error:   st.Code,
		Message: st.Detail,
	})
}

// healthHandler handles GET /health.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module": "api",
			"topics": m.hub.TopicCount(),
		},
	})
}

// createRoom handles POST /api/v1/rooms.
func (m *Module) createRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   room.CodeValidation,
			Message: "Invalid request body",
		})
	}

	resp, err := m.rooms.CreateRoom(c.UserContext(), room.CreateRoomRequest{
		RoomID:  req.RoomID,
		Creator: req.Creator,
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fail(c, resp.Status)
	}

	return c.Status(fiber.StatusCreated).JSON(resp.Room)
}

// getRoom handles GET /api/v1/rooms/:roomId.
func (m *Module) getRoom(c *fiber.Ctx) error {
	resp, err := m.rooms.GetRoom(c.UserContext(), c.Params("roomId"))
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fail(c, resp.Status)
	}

	return c.JSON(resp.Room)
}

// deleteRoom handles DELETE /api/v1/rooms/:roomId. Only the creator may
// delete; the username query parameter identifies the caller.
func (m *Module) deleteRoom(c *fiber.Ctx) error {
	roomID := c.Params("roomId")

	resp, err := m.rooms.DeleteRoom(c.UserContext(), roomID, c.Query("username"))
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fail(c, resp.Status)
	}

	return c.JSON(DeleteRoomResponse{RoomID: roomID, Deleted: resp.Deleted})
}

// joinUser handles POST /api/v1/rooms/:roomId/join-user.
func (m *Module) joinUser(c *fiber.Ctx) error {
	return m.mutatePresence(c, m.rooms.JoinUser)
}

// leaveUser handles POST /api/v1/rooms/:roomId/leave-user.
func (m *Module) leaveUser(c *fiber.Ctx) error {
	return m.mutatePresence(c, m.rooms.LeaveUser)
}

func (m *Module) mutatePresence(
	c *fiber.Ctx,
	op func(ctx context.Context, roomID, username string) (room.PresenceResponse, error),
) error {
	roomID := c.Params("roomId")

	var req PresenceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   room.CodeValidation,
			Message: "Invalid request body",
		})
	}

	resp, err := op(c.UserContext(), roomID, req.Username)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fail(c, resp.Status)
	}

	return c.JSON(OnlineUsersResponse{RoomID: roomID, OnlineUsers: resp.OnlineUsers})
}

// onlineUsers handles GET /api/v1/rooms/:roomId/online-users.
func (m *Module) onlineUsers(c *fiber.Ctx) error {
	roomID := c.Params("roomId")

	resp, err := m.rooms.OnlineUsers(c.UserContext(), roomID)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fail(c, resp.Status)
	}

	return c.JSON(OnlineUsersResponse{RoomID: roomID, OnlineUsers: resp.OnlineUsers})
}

// getMessages handles GET /api/v1/rooms/:roomId/messages. Pages count
// backwards from the newest message; messages inside a page stay in
// chronological order.
func (m *Module) getMessages(c *fiber.Ctx) error {
	roomID := c.Params("roomId")

	page := queryInt(c, "page", room.DefaultPage)
	size := queryInt(c, "size", room.DefaultPageSize)

	resp, err := m.rooms.GetMessages(c.UserContext(), room.GetMessagesRequest{
		RoomID: roomID,
		Page:   page,
		Size:   size,
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fail(c, resp.Status)
	}

	return c.JSON(HistoryResponse{
		RoomID:   roomID,
		Page:     page,
		Size:     size,
		Messages: resp.Messages,
	})
}

func queryInt(c *fiber.Ctx, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
