// Package unit contains unit tests for individual components of the Roomcast server.
//
// These tests focus on testing specific functions and methods in isolation,
// using in-memory connections where necessary to avoid dependencies on
// external systems.
package unit

import (
	"errors"
	"strings"
	"testing"

	"github.com/Tyrowin/roomcast/internal/server"
)

// TestParseRequest verifies decoding of the room-action handshake frame,
// including frames that cannot be split into the expected fields.
func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    server.Request
		wantErr error
	}{
		{
			name: "create request",
			line: "CREATE:r1:secret",
			want: server.Request{Action: "CREATE", RoomID: "r1", Password: "secret"},
		},
		{
			name: "join request",
			line: "JOIN:r1:secret",
			want: server.Request{Action: "JOIN", RoomID: "r1", Password: "secret"},
		},
		{
			name: "password containing colons",
			line: "JOIN:r1:a:b:c",
			want: server.Request{Action: "JOIN", RoomID: "r1", Password: "a:b:c"},
		},
		{
			name:    "missing password field",
			line:    "CREATE:r1",
			wantErr: server.ErrMalformedRequest,
		},
		{
			name:    "plain text",
			line:    "hello there",
			wantErr: server.ErrMalformedRequest,
		},
		{
			name:    "empty frame",
			line:    "",
			wantErr: server.ErrMalformedRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := server.ParseRequest(tt.line)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseRequest(%q) error = %v, want %v", tt.line, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRequest(%q) unexpected error: %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("ParseRequest(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

// TestValidateNickname verifies the nickname rules that keep control notices
// and chat lines syntactically disjoint.
func TestValidateNickname(t *testing.T) {
	tests := []struct {
		name     string
		nickname string
		valid    bool
	}{
		{name: "plain nickname", nickname: "alice", valid: true},
		{name: "unicode nickname", nickname: "zoë", valid: true},
		{name: "empty", nickname: "", valid: false},
		{name: "leading at sign", nickname: "@alice", valid: false},
		{name: "contains colon", nickname: "ali:ce", valid: false},
		{name: "too long", nickname: strings.Repeat("a", 33), valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := server.ValidateNickname(tt.nickname)
			if tt.valid && err != nil {
				t.Errorf("ValidateNickname(%q) = %v, want nil", tt.nickname, err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatalf("ValidateNickname(%q) = nil, want error", tt.nickname)
				}
				if !errors.Is(err, server.ErrMalformedRequest) {
					t.Errorf("ValidateNickname(%q) = %v, want ErrMalformedRequest", tt.nickname, err)
				}
			}
		})
	}
}

// TestNoticeRoundTrip verifies that encoded control notices decode back to
// their tag and text.
func TestNoticeRoundTrip(t *testing.T) {
	line := server.EncodeNotice(server.NoticeKicked, "You have been kicked by the admin.")

	tag, text, ok := server.ParseNotice(line)
	if !ok {
		t.Fatalf("ParseNotice(%q) reported not a notice", line)
	}
	if tag != server.NoticeKicked {
		t.Errorf("Expected tag %q, got %q", server.NoticeKicked, tag)
	}
	if text != "You have been kicked by the admin." {
		t.Errorf("Unexpected notice text %q", text)
	}
}

// TestParseNoticeRejectsChatLines verifies that ordinary chat frames are not
// mistaken for control notices, even when their text contains notice-like
// phrases.
func TestParseNoticeRejectsChatLines(t *testing.T) {
	lines := []string{
		server.ChatLine("alice", "hi"),
		server.ChatLine("alice", "you have been kicked by the admin"),
		"bob: @KICKED is just text here",
	}

	for _, line := range lines {
		if _, _, ok := server.ParseNotice(line); ok {
			t.Errorf("ParseNotice(%q) = true, want false", line)
		}
	}
}

// TestChatLine verifies the nickname-prefixed chat rendering.
func TestChatLine(t *testing.T) {
	if got := server.ChatLine("alice", "hi"); got != "alice: hi" {
		t.Errorf("ChatLine = %q, want %q", got, "alice: hi")
	}
}
