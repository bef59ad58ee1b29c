package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/wecord/chat-backend/domain/chat"
	"github.com/wecord/chat-backend/events"
	"github.com/wecord/chat-backend/modules/cache"
)

// EventSink receives domain events after the corresponding store mutation
// has been acknowledged. The module implements it over the event bus; tests
// substitute a recorder.
type EventSink interface {
	MessageSent(events.MessageSentEvent)
	PresenceChanged(events.PresenceChangedEvent)
	RoomDeleted(events.RoomDeletedEvent)
}

// Service coordinates room lifecycle, presence and message history. Every
// mutating operation takes the room's logical lock, applies the in-memory
// and persisted mutations, and only then hands an event to the sink, so a
// subscriber can never observe a broadcast ahead of committed state.
// Different rooms never contend on the same lock.
type Service struct {
	repo    *Repository
	tracker *Tracker
	cache   cache.Store
	sink    EventSink
	now     func() time.Time

	locks sync.Map // roomID -> *sync.Mutex
	sf    singleflight.Group
}

// NewService creates a room service. loc is the reference timezone all
// server-assigned timestamps are expressed in.
func NewService(repo *Repository, tracker *Tracker, store cache.Store, sink EventSink, loc *time.Location) *Service {
	if store == nil {
		store = cache.Noop{}
	}
	return &Service{
		repo:    repo,
		tracker: tracker,
		cache:   store,
		sink:    sink,
		now:     func() time.Time { return time.Now().In(loc) },
	}
}

// lockRoom acquires the logical lock for a room id and returns its unlock.
func (s *Service) lockRoom(roomID string) func() {
	v, _ := s.locks.LoadOrStore(roomID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Hydrate seeds the presence tracker from persisted room rows. Called once
// at startup so presence recorded before a restart is not lost.
func (s *Service) Hydrate(ctx context.Context) error {
	recs, err := s.repo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to hydrate presence: %w", err)
	}
	for i := range recs {
		s.tracker.Seed(recs[i].RoomID, recs[i].OnlineUsers)
	}
	return nil
}

// CreateRoom creates a room with the given human-chosen id. The creator is
// seeded as the first online user.
func (s *Service) CreateRoom(ctx context.Context, roomID, creator string) (*chat.Room, error) {
	if err := ValidateRoomID(roomID); err != nil {
		return nil, err
	}
	if err := ValidateUsername(creator); err != nil {
		return nil, err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	rec := &RoomRecord{
		Key:         uuid.New().String(),
		RoomID:      roomID,
		Creator:     creator,
		CreatedAt:   s.now(),
		OnlineUsers: []string{creator},
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.tracker.Seed(roomID, rec.OnlineUsers)
	return rec.toDomain(), nil
}

// GetRoom returns a room with its current online-users set. The in-memory
// tracker is authoritative for presence while the process lives.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*chat.Room, error) {
	rec, err := s.repo.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room := rec.toDomain()
	room.OnlineUsers = s.tracker.Snapshot(roomID)
	return room, nil
}

// DeleteRoom removes a room and every message it owns. Only the creator may
// delete; the cascade happens in one transaction, so afterwards all
// operations on the id behave as not-found.
func (s *Service) DeleteRoom(ctx context.Context, roomID, username string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	rec, err := s.repo.FindByRoomID(ctx, roomID)
	if err != nil {
		return err
	}
	if rec.Creator != username {
		return ErrNotCreator
	}

	if err := s.repo.Delete(ctx, rec.Key); err != nil {
		return err
	}

	s.tracker.Drop(roomID)
	s.invalidateHistory(ctx, roomID)
	s.sink.RoomDeleted(events.RoomDeletedEvent{
		RoomID:    roomID,
		DeletedBy: username,
		Timestamp: s.now(),
	})
	return nil
}

// JoinUser adds a username to a room's online-users set. The join is
// idempotent; the presence event is published after the updated set has
// been persisted, mirroring the original behavior of broadcasting on every
// join request.
func (s *Service) JoinUser(ctx context.Context, roomID, username string) ([]string, error) {
	return s.mutatePresence(ctx, roomID, username, events.PresenceUserJoined)
}

// LeaveUser removes a username from a room's online-users set. Leaving a
// room one is not in is a no-op on the set.
func (s *Service) LeaveUser(ctx context.Context, roomID, username string) ([]string, error) {
	return s.mutatePresence(ctx, roomID, username, events.PresenceUserLeft)
}

func (s *Service) mutatePresence(ctx context.Context, roomID, username, kind string) ([]string, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	rec, err := s.repo.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	var users []string
	if kind == events.PresenceUserJoined {
		users, _ = s.tracker.Join(roomID, username)
	} else {
		users, _ = s.tracker.Leave(roomID, username)
	}

	if err := s.repo.SaveOnlineUsers(ctx, rec.Key, users); err != nil {
		return nil, err
	}

	s.sink.PresenceChanged(events.PresenceChangedEvent{
		Type:        kind,
		RoomID:      roomID,
		Username:    username,
		OnlineUsers: users,
		Timestamp:   s.now(),
	})
	return users, nil
}

// OnlineUsers returns the current online-users set of a room.
func (s *Service) OnlineUsers(ctx context.Context, roomID string) ([]string, error) {
	if _, err := s.repo.FindByRoomID(ctx, roomID); err != nil {
		return nil, err
	}
	return s.tracker.Snapshot(roomID), nil
}

// SendMessage validates the room, persists a message at the tail of its
// history and publishes the persisted message. A missing room is a fatal
// request-level error, never a silent drop. The client timestamp is honored
// when supplied; otherwise the server assigns one in the reference
// timezone.
func (s *Service) SendMessage(ctx context.Context, req SendMessageRequest) (*chat.Message, error) {
	if err := ValidateUsername(req.Sender); err != nil {
		return nil, err
	}
	if err := ValidateContent(req.Content); err != nil {
		return nil, err
	}

	mtype := req.MessageType
	if mtype == "" {
		mtype = chat.MessageTypeText
	}
	if !mtype.Valid() {
		return nil, fmt.Errorf("%w: unknown message type %q", ErrContentInvalid, req.MessageType)
	}

	unlock := s.lockRoom(req.RoomID)
	defer unlock()

	rec, err := s.repo.FindByRoomID(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	ts := s.now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	msg := &MessageRecord{
		Sender:      req.Sender,
		Content:     req.Content,
		Timestamp:   ts,
		MessageType: string(mtype),
	}
	if err := s.repo.AppendMessage(ctx, rec.Key, msg); err != nil {
		return nil, err
	}

	s.invalidateHistory(ctx, req.RoomID)

	out := msg.toDomain(req.RoomID)
	s.sink.MessageSent(events.MessageSentEvent{
		RoomID:  req.RoomID,
		Message: out,
	})
	return &out, nil
}

// GetMessages returns one page of a room's history. Page 0 is the most
// recent page; messages within a page stay in chronological order. Pages
// past the history are empty. Results are served from the cache when
// possible; concurrent misses for the same page collapse into one database
// read.
func (s *Service) GetMessages(ctx context.Context, roomID string, page, size int) ([]chat.Message, error) {
	if page < DefaultPage {
		page = DefaultPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	rec, err := s.repo.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	key := historyKey(roomID, page, size)
	var cached []chat.Message
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		msgs, err := s.readPage(ctx, rec, roomID, page, size)
		if err != nil {
			return nil, err
		}
		// Cache failures never fail the read.
		_ = s.cache.Set(ctx, key, msgs)
		return msgs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]chat.Message), nil
}

// readPage applies the pagination arithmetic: page p covers the window
// [n-(p+1)*size, n-p*size) clamped to [0, n), returned in insertion order.
// Pages therefore never overlap and concatenating them from page 0 upward
// reconstructs the full history.
func (s *Service) readPage(ctx context.Context, rec *RoomRecord, roomID string, page, size int) ([]chat.Message, error) {
	n, err := s.repo.CountMessages(ctx, rec.Key)
	if err != nil {
		return nil, err
	}

	end := n - int64(page)*int64(size)
	if end <= 0 {
		return []chat.Message{}, nil
	}
	start := n - int64(page+1)*int64(size)
	if start < 0 {
		start = 0
	}

	rows, err := s.repo.FindMessages(ctx, rec.Key, int(start), int(end-start))
	if err != nil {
		return nil, err
	}

	msgs := make([]chat.Message, 0, len(rows))
	for i := range rows {
		msgs = append(msgs, rows[i].toDomain(roomID))
	}
	return msgs, nil
}

func (s *Service) invalidateHistory(ctx context.Context, roomID string) {
	// Stale pages age out via TTL if invalidation fails.
	_ = s.cache.DeletePrefix(ctx, historyPrefix(roomID))
}

func historyPrefix(roomID string) string {
	return "history:" + roomID + ":"
}

func historyKey(roomID string, page, size int) string {
	return fmt.Sprintf("%s%d:%d", historyPrefix(roomID), page, size)
}
