// Package server emits core lifecycle notifications through the EventBus so
// that presentation layers (admin dashboards, CLIs, logs) can observe room
// and membership changes without the core depending on them.
package server

import (
	"log"
	"sync"
)

// EventType identifies a core notification.
type EventType string

// Event types emitted by the registry and rooms.
const (
	EventRoomCreated   EventType = "room_created"
	EventRoomClosed    EventType = "room_closed"
	EventMemberJoined  EventType = "member_joined"
	EventMemberLeft    EventType = "member_left"
	EventMemberKicked  EventType = "member_kicked"
	EventServerStopped EventType = "server_stopped"
)

// Event is one core notification. Room and Nickname are set where they apply.
type Event struct {
	Type     EventType `json:"type"`
	Room     string    `json:"room,omitempty"`
	Nickname string    `json:"nickname,omitempty"`
}

const subscriberBuffer = 16

// EventBus fans core events out to any number of subscribers. Publishing
// never blocks: a subscriber whose buffer is full misses the event.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewEventBus creates an empty EventBus ready for subscriptions.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its event channel.
// The channel is closed by Unsubscribe.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Unsubscribing a
// channel that is not registered is a no-op.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	_, ok := b.subscribers[ch]
	if ok {
		delete(b.subscribers, ch)
	}
	b.mu.Unlock()

	if ok {
		close(ch)
	}
}

func (b *EventBus) publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			log.Printf("Dropping %s event for slow subscriber", e.Type)
		}
	}
}
