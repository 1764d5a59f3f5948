// Package testhelpers provides common utilities and helper functions for testing the Roomcast server.
//
// This package contains reusable test utilities that are shared across unit and integration tests.
// It provides functions for starting disposable chat servers, driving the wire protocol as a
// client, and asserting response properties to reduce code duplication in test files.
package testhelpers

import (
	"bufio"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/roomcast/internal/server"
)

// ReadTimeout bounds every client read in tests so a missing frame fails the
// test instead of hanging it.
const ReadTimeout = 2 * time.Second

// Core bundles the components of one running chat server under test.
type Core struct {
	Chat     *server.ChatServer
	Registry *server.Registry
	Events   *server.EventBus
	Addr     string
}

// StartChatServer starts a chat server on an ephemeral port and registers a
// cleanup that shuts it down when the test finishes.
func StartChatServer(t *testing.T) *Core {
	t.Helper()

	events := server.NewEventBus()
	registry := server.NewRegistry(events)
	chat := server.NewChatServer(registry)

	if err := chat.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start chat server: %v", err)
	}

	t.Cleanup(func() {
		_ = chat.Shutdown(5 * time.Second)
	})

	return &Core{
		Chat:     chat,
		Registry: registry,
		Events:   events,
		Addr:     chat.Addr().String(),
	}
}

// ChatClient drives the line protocol against a running server from the
// client side.
type ChatClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

// DialChat connects to the chat server and registers a cleanup that closes
// the connection.
func DialChat(t *testing.T, addr string) *ChatClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Failed to dial chat server at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &ChatClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

// Send writes one frame.
func (c *ChatClient) Send(line string) {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		c.t.Fatalf("Failed to send %q: %v", line, err)
	}
}

// TrySend writes one frame, ignoring errors. Useful for exercising sends on
// connections the server has already closed.
func (c *ChatClient) TrySend(line string) {
	_, _ = c.conn.Write([]byte(line + "\n"))
}

// ReadLine reads the next frame, bounded by ReadTimeout.
func (c *ChatClient) ReadLine() string {
	c.t.Helper()
	if err := c.conn.SetReadDeadline(time.Now().Add(ReadTimeout)); err != nil {
		c.t.Fatalf("Failed to set read deadline: %v", err)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.t.Fatalf("Failed to read frame: %v", err)
	}
	return strings.TrimSpace(line)
}

// Expect reads the next frame and fails the test unless it matches exactly.
func (c *ChatClient) Expect(want string) {
	c.t.Helper()
	if got := c.ReadLine(); got != want {
		c.t.Fatalf("Expected frame %q, got %q", want, got)
	}
}

// ExpectNotice reads the next frame and fails the test unless it is a
// control notice with the given tag.
func (c *ChatClient) ExpectNotice(tag string) string {
	c.t.Helper()
	line := c.ReadLine()
	gotTag, text, ok := server.ParseNotice(line)
	if !ok || gotTag != tag {
		c.t.Fatalf("Expected %s notice, got %q", tag, line)
	}
	return text
}

// ExpectSilence fails the test if any frame arrives within the given window.
func (c *ChatClient) ExpectSilence(window time.Duration) {
	c.t.Helper()
	if err := c.conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		c.t.Fatalf("Failed to set read deadline: %v", err)
	}
	line, err := c.reader.ReadString('\n')
	if err == nil {
		c.t.Fatalf("Expected no frame, got %q", strings.TrimSpace(line))
	}
	if netErr, ok := err.(net.Error); !ok || !netErr.Timeout() {
		c.t.Fatalf("Expected read timeout, got %v", err)
	}
}

// ExpectClosed fails the test unless the server closes the connection
// without sending another frame.
func (c *ChatClient) ExpectClosed() {
	c.t.Helper()
	if err := c.conn.SetReadDeadline(time.Now().Add(ReadTimeout)); err != nil {
		c.t.Fatalf("Failed to set read deadline: %v", err)
	}
	if line, err := c.reader.ReadString('\n'); err == nil {
		c.t.Fatalf("Expected closed connection, got frame %q", strings.TrimSpace(line))
	}
}

// Close closes the client side of the connection.
func (c *ChatClient) Close() {
	_ = c.conn.Close()
}

// CreateRoom performs the full handshake for a room creator: greeting,
// CREATE action, nickname, and the admin-assignment notice that confirms
// membership.
func (c *ChatClient) CreateRoom(roomID, password, nickname string) {
	c.t.Helper()
	c.Expect(server.Greeting)
	c.Send(server.ActionCreate + ":" + roomID + ":" + password)
	c.Expect(server.StatusNick)
	c.Send(nickname)
	c.ExpectNotice(server.NoticeAdmin)
}

// JoinRoom performs the handshake for a joining member. Joiners get no
// acknowledgement after the nickname, so callers that need to observe the
// membership should watch for the join notice on another member.
func (c *ChatClient) JoinRoom(roomID, password, nickname string) {
	c.t.Helper()
	c.Expect(server.Greeting)
	c.Send(server.ActionJoin + ":" + roomID + ":" + password)
	c.Expect(server.StatusNick)
	c.Send(nickname)
}

// AssertStatusCode checks if the HTTP response has the expected status code.
// It fails the test with a descriptive error message if the status codes don't match.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
// It fails the test with a descriptive error message if the content types don't match.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}
