package unit

import (
	"testing"
	"time"

	"github.com/Tyrowin/roomcast/internal/server"
)

// waitForEvent reads events from a subscription until one of the wanted type
// arrives or the timeout elapses.
func waitForEvent(t *testing.T, ch chan server.Event, want server.EventType) server.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				t.Fatalf("Subscription closed while waiting for %s", want)
			}
			if event.Type == want {
				return event
			}
		case <-deadline:
			t.Fatalf("Timed out waiting for %s event", want)
		}
	}
}

// TestEventBusPublishesMembershipChanges verifies that subscribers observe
// room creation, joins, and kicks without the core blocking on them.
func TestEventBusPublishesMembershipChanges(t *testing.T) {
	events := server.NewEventBus()
	registry := server.NewRegistry(events)

	ch := events.Subscribe()
	defer events.Unsubscribe(ch)

	room, err := registry.CreateRoom("r1", "p")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	created := waitForEvent(t, ch, server.EventRoomCreated)
	if created.Room != "r1" {
		t.Errorf("room_created for %q, want r1", created.Room)
	}

	alice, _ := pipeSession(t)
	if err := room.AddMember("alice", alice); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	joined := waitForEvent(t, ch, server.EventMemberJoined)
	if joined.Nickname != "alice" || joined.Room != "r1" {
		t.Errorf("member_joined = %+v, want alice in r1", joined)
	}

	if err := room.Kick("alice"); err != nil {
		t.Fatalf("Kick failed: %v", err)
	}
	kicked := waitForEvent(t, ch, server.EventMemberKicked)
	if kicked.Nickname != "alice" {
		t.Errorf("member_kicked = %+v, want alice", kicked)
	}
}

// TestEventBusUnsubscribeClosesChannel verifies that unsubscribing closes
// the channel and that doing it twice is harmless.
func TestEventBusUnsubscribeClosesChannel(t *testing.T) {
	events := server.NewEventBus()
	ch := events.Subscribe()

	events.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("Expected closed channel after unsubscribe")
	}
	events.Unsubscribe(ch)
}

// TestEventBusDropsForSlowSubscriber verifies that a subscriber that stops
// draining never blocks publishers.
func TestEventBusDropsForSlowSubscriber(t *testing.T) {
	events := server.NewEventBus()
	registry := server.NewRegistry(events)

	ch := events.Subscribe()
	defer events.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more events than the subscriber buffer holds.
		for i := 0; i < 100; i++ {
			if _, err := registry.CreateRoom("room-"+string(rune('a'+i%26))+string(rune('0'+i/26)), "p"); err != nil {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publishing blocked on a slow subscriber")
	}
}
