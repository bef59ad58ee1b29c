package room

import (
	"sort"
	"sync"
)

// Tracker is the in-memory presence state: one set of online usernames per
// room id. Each room has its own lock, so joins and leaves on different
// rooms never serialize each other. The tracker is authoritative while the
// process lives; the persisted copy on the room row exists to survive
// restarts.
type Tracker struct {
	mu    sync.RWMutex
	rooms map[string]*roomPresence
}

type roomPresence struct {
	mu    sync.Mutex
	users map[string]struct{}
}

// NewTracker creates an empty presence tracker.
func NewTracker() *Tracker {
	return &Tracker{
		rooms: make(map[string]*roomPresence),
	}
}

// entry returns the presence entry for a room, creating it when absent.
func (t *Tracker) entry(roomID string) *roomPresence {
	t.mu.RLock()
	rp, ok := t.rooms[roomID]
	t.mu.RUnlock()
	if ok {
		return rp
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if rp, ok = t.rooms[roomID]; ok {
		return rp
	}
	rp = &roomPresence{users: make(map[string]struct{})}
	t.rooms[roomID] = rp
	return rp
}

// Seed replaces a room's in-memory set with a persisted one. Used on
// startup to restore presence recorded before a restart.
func (t *Tracker) Seed(roomID string, users []string) {
	rp := t.entry(roomID)
	rp.mu.Lock()
	defer rp.mu.Unlock()

	rp.users = make(map[string]struct{}, len(users))
	for _, u := range users {
		rp.users[u] = struct{}{}
	}
}

// Join adds a username to a room's set. Joining twice is the same as
// joining once; changed reports whether the set actually grew. The returned
// slice is a sorted snapshot.
func (t *Tracker) Join(roomID, username string) (users []string, changed bool) {
	rp := t.entry(roomID)
	rp.mu.Lock()
	defer rp.mu.Unlock()

	_, present := rp.users[username]
	rp.users[username] = struct{}{}
	return snapshot(rp.users), !present
}

// Leave removes a username from a room's set. Leaving a non-member is a
// no-op, not an error.
func (t *Tracker) Leave(roomID, username string) (users []string, changed bool) {
	rp := t.entry(roomID)
	rp.mu.Lock()
	defer rp.mu.Unlock()

	_, present := rp.users[username]
	delete(rp.users, username)
	return snapshot(rp.users), present
}

// Snapshot returns a sorted copy of a room's online-users set.
func (t *Tracker) Snapshot(roomID string) []string {
	t.mu.RLock()
	rp, ok := t.rooms[roomID]
	t.mu.RUnlock()
	if !ok {
		return []string{}
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()
	return snapshot(rp.users)
}

// Drop discards a room's presence entry. Called when the room is deleted.
func (t *Tracker) Drop(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rooms, roomID)
}

func snapshot(users map[string]struct{}) []string {
	out := make([]string, 0, len(users))
	for u := range users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
