package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/roomcast/internal/server"
	"github.com/Tyrowin/roomcast/test/testhelpers"
	"github.com/gorilla/websocket"
)

// startAdminSurface exposes the admin API for a running core over httptest.
func startAdminSurface(t *testing.T, core *testhelpers.Core) *httptest.Server {
	t.Helper()

	api := server.NewAdminAPI(core.Registry, core.Chat, core.Events)
	ts := httptest.NewServer(api.Routes())
	t.Cleanup(ts.Close)
	return ts
}

// TestKickThroughAdminSurface verifies the full kick path: the kicked client
// receives the notice and its connection is closed, further sends from it go
// nowhere, and the rest of the room learns about the removal.
func TestKickThroughAdminSurface(t *testing.T) {
	core := testhelpers.StartChatServer(t)
	admin := startAdminSurface(t, core)

	alice := testhelpers.DialChat(t, core.Addr)
	alice.CreateRoom("r1", "p", "alice")
	bob := testhelpers.DialChat(t, core.Addr)
	bob.JoinRoom("r1", "p", "bob")
	alice.ExpectNotice(server.NoticeJoined)

	resp, err := http.Post(admin.URL+"/rooms/r1/kick?nickname=alice", "", nil)
	if err != nil {
		t.Fatalf("Kick request failed: %v", err)
	}
	defer resp.Body.Close()
	testhelpers.AssertStatusCode(t, resp, http.StatusNoContent)

	alice.ExpectNotice(server.NoticeKicked)
	alice.ExpectClosed()

	bob.ExpectNotice(server.NoticeLeft)
	text := bob.ExpectNotice(server.NoticeRemoved)
	if text != "alice has been kicked from the room." {
		t.Errorf("Removed notice text = %q", text)
	}

	// Whatever alice manages to write into the dead socket must not reach
	// the room.
	alice.TrySend("still there?")
	bob.ExpectSilence(200 * time.Millisecond)

	waitForMembers(t, core.Registry, "r1", []string{"bob"})
}

// TestCloseRoomThroughAdminSurface verifies that closing a room disconnects
// every member with a closed notice and that a re-join fails.
func TestCloseRoomThroughAdminSurface(t *testing.T) {
	core := testhelpers.StartChatServer(t)
	admin := startAdminSurface(t, core)

	alice := testhelpers.DialChat(t, core.Addr)
	alice.CreateRoom("r1", "p", "alice")
	bob := testhelpers.DialChat(t, core.Addr)
	bob.JoinRoom("r1", "p", "bob")
	alice.ExpectNotice(server.NoticeJoined)

	resp, err := http.Post(admin.URL+"/rooms/r1/close", "", nil)
	if err != nil {
		t.Fatalf("Close request failed: %v", err)
	}
	defer resp.Body.Close()
	testhelpers.AssertStatusCode(t, resp, http.StatusNoContent)

	alice.ExpectNotice(server.NoticeClosed)
	alice.ExpectClosed()
	bob.ExpectNotice(server.NoticeClosed)
	bob.ExpectClosed()

	late := testhelpers.DialChat(t, core.Addr)
	late.Expect(server.Greeting)
	late.Send("JOIN:r1:p")
	late.Expect(server.StatusNoSuchRoom)
	late.ExpectClosed()
}

// TestEventStream verifies that an admin front end subscribed over WebSocket
// observes membership changes as they happen.
func TestEventStream(t *testing.T) {
	server.SetConfig(&server.Config{AllowedOrigins: []string{"*"}})
	defer server.SetConfig(nil)

	core := testhelpers.StartChatServer(t)
	admin := startAdminSurface(t, core)

	wsURL := "ws" + strings.TrimPrefix(admin.URL, "http") + "/events"
	header := http.Header{"Origin": []string{admin.URL}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Failed to dial event stream: %v", err)
	}
	defer conn.Close()

	alice := testhelpers.DialChat(t, core.Addr)
	alice.CreateRoom("r1", "p", "alice")

	seen := map[server.EventType]server.Event{}
	deadline := time.Now().Add(2 * time.Second)
	for len(seen) < 2 {
		if err := conn.SetReadDeadline(deadline); err != nil {
			t.Fatalf("Failed to set read deadline: %v", err)
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Event stream read failed after %v: %v", seen, err)
		}
		var event server.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("Failed to decode event %q: %v", payload, err)
		}
		seen[event.Type] = event
	}

	created, ok := seen[server.EventRoomCreated]
	if !ok || created.Room != "r1" {
		t.Errorf("room_created event = %+v", created)
	}
	joined, ok := seen[server.EventMemberJoined]
	if !ok || joined.Nickname != "alice" {
		t.Errorf("member_joined event = %+v", joined)
	}
}

// TestEventStreamRejectsDisallowedOrigin verifies the origin allow-list on
// the event stream endpoint.
func TestEventStreamRejectsDisallowedOrigin(t *testing.T) {
	server.SetConfig(&server.Config{AllowedOrigins: []string{"http://allowed.example"}})
	defer server.SetConfig(nil)

	core := testhelpers.StartChatServer(t)
	admin := startAdminSurface(t, core)

	wsURL := "ws" + strings.TrimPrefix(admin.URL, "http") + "/events"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Error("Expected upgrade to fail for disallowed origin")
	} else if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Errorf("Upgrade rejection status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}
