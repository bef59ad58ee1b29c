package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/wecord/chat-backend/modules/broadcast"
	"github.com/wecord/chat-backend/modules/room"
)

// wsSink serializes writes to a websocket connection. Hub writer
// goroutines and the session's read loop share one connection, and
// websocket writes are not safe to interleave.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(messageType, data)
}

func (s *wsSink) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.WriteMessage(websocket.TextMessage, data)
}

// session tracks one websocket client's subscriptions and joined rooms.
type session struct {
	id     string
	sink   *wsSink
	subs   map[string]*broadcast.Subscription
	joined map[string]string // roomID -> username
}

// handleWebSocket handles connections at /ws. Clients drive the
// connection with SUBSCRIBE, UNSUBSCRIBE and SEND frames.
func (m *Module) handleWebSocket(c *websocket.Conn) {
	sess := &session{
		id:     uuid.New().String(),
		sink:   &wsSink{conn: c},
		subs:   make(map[string]*broadcast.Subscription),
		joined: make(map[string]string),
	}

	defer func() {
		for _, sub := range sess.subs {
			m.hub.Unsubscribe(sub)
		}
		// Best effort: a vanished room is fine here, the user just
		// stops being tracked.
		for roomID, username := range sess.joined {
			if _, err := m.rooms.LeaveUser(context.Background(), roomID, username); err != nil {
				m.logger.WithError(err).Warn("leave on disconnect failed", "room", roomID, "user", username)
			}
		}
		m.logger.Debug("websocket client disconnected", "client", sess.id)
	}()

	m.logger.Debug("websocket client connected", "client", sess.id)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.WithError(err).Debug("websocket read failed", "client", sess.id)
			}
			return
		}

		var cmd WSCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			m.sendWSError(sess, "Invalid frame format")
			continue
		}

		switch cmd.Action {
		case ActionSubscribe:
			m.handleSubscribe(sess, cmd)
		case ActionUnsubscribe:
			m.handleUnsubscribe(sess, cmd)
		case ActionSend:
			m.handleSend(sess, cmd)
		default:
			m.sendWSError(sess, "Unknown action: "+cmd.Action)
		}
	}
}

func (m *Module) handleSubscribe(sess *session, cmd WSCommand) {
	if cmd.Topic == "" {
		m.sendWSError(sess, "Topic is required")
		return
	}
	if _, ok := sess.subs[cmd.Topic]; ok {
		return
	}
	sess.subs[cmd.Topic] = m.hub.Subscribe(cmd.Topic, sess.sink)
}

func (m *Module) handleUnsubscribe(sess *session, cmd WSCommand) {
	sub, ok := sess.subs[cmd.Topic]
	if !ok {
		return
	}
	m.hub.Unsubscribe(sub)
	delete(sess.subs, cmd.Topic)
}

func (m *Module) handleSend(sess *session, cmd WSCommand) {
	switch {
	case strings.HasPrefix(cmd.Destination, DestSendMessage):
		m.handleChatMessage(sess, strings.TrimPrefix(cmd.Destination, DestSendMessage), cmd.Body)
	case strings.HasPrefix(cmd.Destination, DestJoinRoom):
		m.handlePresenceFrame(sess, strings.TrimPrefix(cmd.Destination, DestJoinRoom), cmd.Body, true)
	case strings.HasPrefix(cmd.Destination, DestLeaveRoom):
		m.handlePresenceFrame(sess, strings.TrimPrefix(cmd.Destination, DestLeaveRoom), cmd.Body, false)
	default:
		m.sendWSError(sess, "Unknown destination: "+cmd.Destination)
	}
}

// handleChatMessage persists a chat message. Sending into a room that no
// longer exists is an error the client gets told about.
func (m *Module) handleChatMessage(sess *session, roomID string, body json.RawMessage) {
	var chatBody WSChatBody
	if err := json.Unmarshal(body, &chatBody); err != nil {
		m.sendWSError(sess, "Invalid message body")
		return
	}

	resp, err := m.rooms.SendMessage(context.Background(), room.SendMessageRequest{
		RoomID:      roomID,
		Sender:      chatBody.Sender,
		Content:     chatBody.Content,
		MessageType: chatBody.MessageType,
		Timestamp:   chatBody.Timestamp,
	})
	if err != nil {
		m.logger.WithError(err).Error("send message failed", "room", roomID)
		m.sendWSError(sess, "Failed to send message")
		return
	}
	if !resp.OK() {
		m.sendWSError(sess, resp.Detail)
	}
}

// handlePresenceFrame joins or leaves a room. A join or leave aimed at a
// missing room is dropped silently; the realtime path tolerates rooms
// disappearing underneath clients.
func (m *Module) handlePresenceFrame(sess *session, roomID string, body json.RawMessage, join bool) {
	var presence WSPresenceBody
	if err := json.Unmarshal(body, &presence); err != nil {
		m.sendWSError(sess, "Invalid presence body")
		return
	}

	op := m.rooms.LeaveUser
	if join {
		op = m.rooms.JoinUser
	}

	resp, err := op(context.Background(), roomID, presence.Username)
	if err != nil {
		m.logger.WithError(err).Error("presence update failed", "room", roomID)
		m.sendWSError(sess, "Failed to update presence")
		return
	}
	if !resp.OK() {
		if resp.Code == room.CodeRoomNotFound {
			return
		}
		m.sendWSError(sess, resp.Detail)
		return
	}

	if join {
		sess.joined[roomID] = presence.Username
	} else {
		delete(sess.joined, roomID)
	}
}

func (m *Module) sendWSError(sess *session, message string) {
	if err := sess.sink.writeJSON(WSError{Type: "ERROR", Message: message}); err != nil {
		m.logger.WithError(err).Debug("error frame write failed", "client", sess.id)
	}
}
