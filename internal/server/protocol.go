// Package server implements the line-delimited wire protocol spoken between
// Roomcast clients and the chat server: the handshake status codes, the
// room-action request, and the tagged control notices that are kept distinct
// from ordinary chat lines.
package server

import (
	"errors"
	"fmt"
	"strings"
)

// Handshake vocabulary. Every frame is a single newline-terminated line.
const (
	Greeting = "ROOM"

	ActionCreate = "CREATE"
	ActionJoin   = "JOIN"

	StatusRoomExists     = "ROOM_EXISTS"
	StatusNoSuchRoom     = "NO_SUCH_ROOM"
	StatusWrongPassword  = "WRONG_PASSWORD"
	StatusInvalidRequest = "INVALID_REQUEST"
	StatusInvalidAction  = "INVALID_ACTION"
	StatusNicknameTaken  = "NICKNAME_TAKEN"
	StatusShuttingDown   = "SERVER_SHUTTING_DOWN"
	StatusNick           = "NICK"

	// LeaveCommand is the literal frame an active member sends to leave its
	// room without dropping the connection abruptly.
	LeaveCommand = "LEAVE_ROOM"
)

// Control notices are sent as "@<TAG> <text>". Chat lines are always
// "<nickname>: <text>" and nicknames may not start with '@', so the two
// frame kinds are syntactically disjoint and clients never have to guess
// whether a line is a notice by searching its text.
const (
	noticeMark = "@"

	NoticeAdmin    = "ADMIN"
	NoticeJoined   = "JOINED"
	NoticeLeft     = "LEFT"
	NoticeKicked   = "KICKED"
	NoticeRemoved  = "REMOVED"
	NoticeClosed   = "CLOSED"
	NoticeShutdown = "SHUTDOWN"
)

const maxNicknameLen = 32

// Request is a decoded room-action frame from the first handshake exchange.
type Request struct {
	Action   string
	RoomID   string
	Password string
}

// ParseRequest splits an "<ACTION>:<roomId>:<password>" frame. The password
// is the remainder of the line, so it may itself contain colons.
func ParseRequest(line string) (Request, error) {
	parts := strings.SplitN(line, ":", 3)
	if len(parts) != 3 {
		return Request{}, ErrMalformedRequest
	}
	return Request{Action: parts[0], RoomID: parts[1], Password: parts[2]}, nil
}

// ValidateNickname rejects nicknames that would make server frames ambiguous:
// an empty name, a leading '@' (reserved for control notices), a ':' (the
// chat-line separator), or anything longer than 32 bytes.
func ValidateNickname(nickname string) error {
	switch {
	case nickname == "":
		return fmt.Errorf("%w: empty nickname", ErrMalformedRequest)
	case strings.HasPrefix(nickname, noticeMark):
		return fmt.Errorf("%w: nickname may not start with %q", ErrMalformedRequest, noticeMark)
	case strings.Contains(nickname, ":"):
		return fmt.Errorf("%w: nickname may not contain ':'", ErrMalformedRequest)
	case len(nickname) > maxNicknameLen:
		return fmt.Errorf("%w: nickname longer than %d bytes", ErrMalformedRequest, maxNicknameLen)
	}
	return nil
}

// EncodeNotice renders a control frame.
func EncodeNotice(tag, text string) string {
	return noticeMark + tag + " " + text
}

// ParseNotice decodes a control frame. It reports ok=false for chat lines.
func ParseNotice(line string) (tag, text string, ok bool) {
	if !strings.HasPrefix(line, noticeMark) {
		return "", "", false
	}
	tag, text, _ = strings.Cut(line[len(noticeMark):], " ")
	if tag == "" {
		return "", "", false
	}
	return tag, text, true
}

// ChatLine renders a chat payload with the sender's nickname prefixed.
func ChatLine(nickname, text string) string {
	return nickname + ": " + text
}

// Notice texts. Clients display the text after the tag verbatim.
func adminNotice() string {
	return EncodeNotice(NoticeAdmin, "You are the admin of this room.")
}

func joinedNotice(nickname string) string {
	return EncodeNotice(NoticeJoined, nickname+" joined the chat.")
}

func leftNotice(nickname string) string {
	return EncodeNotice(NoticeLeft, nickname+" left the chat.")
}

func kickedNotice() string {
	return EncodeNotice(NoticeKicked, "You have been kicked by the admin.")
}

func removedNotice(nickname string) string {
	return EncodeNotice(NoticeRemoved, nickname+" has been kicked from the room.")
}

func closedNotice(roomID string) string {
	return EncodeNotice(NoticeClosed, fmt.Sprintf("The room '%s' has been closed by the admin.", roomID))
}

func shutdownNotice() string {
	return EncodeNotice(NoticeShutdown, "The server is shutting down.")
}

// statusForError maps a handshake-phase failure to the status frame the peer
// receives before the connection is closed.
func statusForError(err error) string {
	switch {
	case errors.Is(err, ErrRoomExists):
		return StatusRoomExists
	case errors.Is(err, ErrNoSuchRoom), errors.Is(err, ErrRoomClosed):
		return StatusNoSuchRoom
	case errors.Is(err, ErrWrongPassword):
		return StatusWrongPassword
	case errors.Is(err, ErrInvalidAction):
		return StatusInvalidAction
	case errors.Is(err, ErrNicknameTaken):
		return StatusNicknameTaken
	case errors.Is(err, ErrServerClosed):
		return StatusShuttingDown
	default:
		return StatusInvalidRequest
	}
}
