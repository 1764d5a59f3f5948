// Package server manages individual chat sessions, handling the protocol
// phase machine, the inbound read loop, and the outbound write pump for each
// accepted TCP connection.
package server

import (
	"bufio"
	"errors"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

// SessionPhase is the protocol phase a session is currently in.
type SessionPhase int32

// Protocol phases. A session starts in PhaseAwaitingAction and ends in
// PhaseClosed, which is reachable from every other phase.
const (
	PhaseAwaitingAction SessionPhase = iota
	PhaseAwaitingNickname
	PhaseActive
	PhaseClosed
)

func (p SessionPhase) String() string {
	switch p {
	case PhaseAwaitingAction:
		return "AwaitingAction"
	case PhaseAwaitingNickname:
		return "AwaitingNickname"
	case PhaseActive:
		return "Active"
	case PhaseClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Session represents one connected peer. It owns the underlying connection
// exclusively: the read loop runs in the connection's goroutine, outbound
// frames are drained by the write pump, and the socket is closed exactly once
// no matter how many paths (leave, disconnect, kick, room close, shutdown)
// race to tear the session down.
type Session struct {
	id      string
	conn    net.Conn
	addr    string
	scanner *bufio.Scanner

	send chan string
	done chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	connOnce  sync.Once

	phase atomic.Int32

	// nickname and room are assigned under the room's lock when the member
	// is added and are never reassigned afterwards.
	nickname string
	room     *Room

	limiter        *rateLimiter
	maxMessageSize int
}

// NewSession wraps an accepted connection. The write pump starts immediately
// so handshake replies and notices can be delivered; Close shuts it down.
func NewSession(conn net.Conn) *Session {
	cfg := currentConfig()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 256), cfg.MaxMessageSize)

	addr := ""
	if remote := conn.RemoteAddr(); remote != nil {
		addr = remote.String()
	}

	s := &Session{
		id:             uuid.NewString(),
		conn:           conn,
		addr:           addr,
		scanner:        scanner,
		send:           make(chan string, sendBufferSize),
		done:           make(chan struct{}),
		limiter:        newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		maxMessageSize: cfg.MaxMessageSize,
	}

	go s.writePump()
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Nickname returns the nickname assigned at handshake completion, or ""
// before the session became a room member.
func (s *Session) Nickname() string {
	return s.nickname
}

// Phase returns the session's current protocol phase.
func (s *Session) Phase() SessionPhase {
	return SessionPhase(s.phase.Load())
}

func (s *Session) setPhase(p SessionPhase) {
	s.phase.Store(int32(p))
}

// Close drives the session to PhaseClosed. It is safe to call from any
// goroutine and any number of times; the write pump flushes pending frames
// and then closes the socket, which also unblocks a read in progress.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.setPhase(PhaseClosed)
		close(s.done)
	})
}

// IsClosed reports whether the session reached its terminal phase.
func (s *Session) IsClosed() bool {
	return s.Phase() == PhaseClosed
}

// enqueue hands a frame to the write pump without blocking. It reports false
// if the session is closed or its buffer is full, which callers treat as an
// implicit disconnect of this session.
func (s *Session) enqueue(line string) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- line:
		return true
	default:
		return false
	}
}

// write sends one frame directly, serialized against the write pump.
// Handshake replies use it so status codes reach the peer before the
// connection is closed.
func (s *Session) write(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	_, err := s.conn.Write([]byte(line + "\n"))
	return err
}

func (s *Session) writePump() {
	defer s.closeConn()

	for {
		select {
		case line := <-s.send:
			if err := s.write(line); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Write error to %s: %v", s.addr, err)
				}
				s.Close()
				return
			}
		case <-s.done:
			s.flushPending()
			return
		}
	}
}

// flushPending delivers frames that were queued before Close so kick, room
// close, and shutdown notices reach the peer before the socket goes away.
func (s *Session) flushPending() {
	for {
		select {
		case line := <-s.send:
			if err := s.write(line); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) closeConn() {
	s.connOnce.Do(func() {
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection from %s: %v", s.addr, err)
		}
	})
}

// readLine blocks until the next inbound frame. A clean end-of-stream is
// reported as io.EOF; a socket closed out-of-band by kick/close/shutdown
// surfaces here as well, which is how forced disconnects interrupt the read.
func (s *Session) readLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.scanner.Text()), nil
}

// readLoop runs the Active phase: every inbound frame is either the literal
// leave command or a chat payload broadcast to the other room members. It
// returns when the peer leaves, disconnects, or the session is forced closed.
func (s *Session) readLoop() {
	defer s.teardown()

	for {
		line, err := s.readLine()
		if err != nil {
			s.logReadExit(err)
			return
		}

		if line == "" {
			continue
		}

		if line == LeaveCommand {
			log.Printf("%s left room %q", s.nickname, s.room.ID())
			return
		}

		if !s.limiter.allow() {
			log.Printf("Rate limit exceeded for %s in room %q; discarding message", s.nickname, s.room.ID())
			continue
		}

		s.room.BroadcastChat(s, line)
	}
}

func (s *Session) logReadExit(err error) {
	switch {
	case errors.Is(err, io.EOF):
		log.Printf("Client %s (%s) disconnected", s.nickname, s.addr)
	case errors.Is(err, bufio.ErrTooLong):
		log.Printf("Message from %s exceeded maximum size of %d bytes", s.addr, s.maxMessageSize)
	case isExpectedCloseError(err):
		log.Printf("Client %s (%s) connection closed", s.nickname, s.addr)
	default:
		log.Printf("Read error from %s: %v", s.addr, err)
	}
}

// teardown funnels every exit path through the same removal: it is safe when
// racing with a forced disconnect that already removed this member.
func (s *Session) teardown() {
	if s.room != nil {
		s.room.RemoveMember(s)
	}
	s.Close()
}
