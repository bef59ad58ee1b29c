// Package broadcast fans room events out to websocket subscribers through
// an exact-match topic hub.
package broadcast

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// outboxSize bounds the per-subscriber delivery queue. A subscriber that
// falls this far behind starts losing frames; delivery is at-most-once by
// contract.
const outboxSize = 256

// Sink is the write side of a subscriber connection. *websocket.Conn
// satisfies it; tests use in-memory sinks.
type Sink interface {
	WriteMessage(messageType int, data []byte) error
}

// Frame is the envelope delivered to subscribers. Topic lets a connection
// holding several subscriptions demultiplex.
type Frame struct {
	Topic string `json:"topic"`
	Body  any    `json:"body"`
}

// Subscription is the handle returned by Subscribe. Each subscription has
// its own buffered outbox drained by one writer goroutine, so a slow
// subscriber never blocks publishers or other topics.
type Subscription struct {
	topic  string
	sink   Sink
	out    chan []byte
	closed sync.Once
	hub    *Hub
}

// Topic returns the topic this subscription is attached to.
func (s *Subscription) Topic() string {
	return s.topic
}

func (s *Subscription) run() {
	for data := range s.out {
		if err := s.sink.WriteMessage(websocket.TextMessage, data); err != nil {
			// A dead sink unsubscribes itself; the owner also cleans
			// up on read failure.
			s.hub.Unsubscribe(s)
			return
		}
	}
}

// halt closes the outbox. Only called after the subscription has been
// removed from the topic map, so no publish can race the close; frames
// already queued still drain to the sink.
func (s *Subscription) halt() {
	s.closed.Do(func() { close(s.out) })
}

// Hub is the topic broker: topics are opaque keys matched exactly, and a
// publish reaches every subscription registered for the key at that
// moment. Publishes on different topics proceed independently.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a sink on a topic and returns the handle used to
// unsubscribe.
func (h *Hub) Subscribe(topic string, sink Sink) *Subscription {
	sub := &Subscription{
		topic: topic,
		sink:  sink,
		out:   make(chan []byte, outboxSize),
		hub:   h,
	}

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	go sub.run()
	return sub
}

// Unsubscribe removes a subscription from its topic. Safe to call more
// than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	if subs, ok := h.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, sub.topic)
		}
	}
	h.mu.Unlock()

	sub.halt()
}

// Publish delivers body to every current subscriber of topic, in arrival
// order relative to other publishes on the same topic. Subscribers with a
// full outbox miss the frame.
func (h *Hub) Publish(topic string, body any) {
	data, err := json.Marshal(Frame{Topic: topic, Body: body})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.topics[topic] {
		select {
		case sub.out <- data:
		default:
		}
	}
}

// CloseTopic drops every subscription on a topic. Used when the topic's
// room has been deleted.
func (h *Hub) CloseTopic(topic string) {
	h.mu.Lock()
	subs := h.topics[topic]
	delete(h.topics, topic)
	h.mu.Unlock()

	for sub := range subs {
		sub.halt()
	}
}

// SubscriberCount returns the number of subscriptions on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// TopicCount returns the number of live topics.
func (h *Hub) TopicCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics)
}
