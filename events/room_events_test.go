package events

import (
	"encoding/json"
	"testing"
	"time"
)

// Bus event payloads use snake_case keys throughout; consumers in other
// modules decode them by key.
func TestPresenceChangedEventKeys(t *testing.T) {
	ev := PresenceChangedEvent{
		Type:        PresenceUserJoined,
		RoomID:      "general",
		Username:    "alice",
		OnlineUsers: []string{"alice", "bob"},
		Timestamp:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}

	for _, want := range []string{"type", "room_id", "username", "online_users", "timestamp"} {
		if _, ok := keys[want]; !ok {
			t.Errorf("missing key %q in %s", want, raw)
		}
	}
	if _, ok := keys["onlineUsers"]; ok {
		t.Errorf("unexpected camelCase key in %s", raw)
	}
}
