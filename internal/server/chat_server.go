// Package server runs the TCP listener that accepts chat connections, drives
// each through the handshake, and hands successful sessions to their
// per-connection read loops.
package server

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"
	"time"
)

// ChatServer owns the TCP listener and the per-connection goroutines. It can
// be started and shut down repeatedly; shutdown interrupts a blocked Accept
// by closing the listener and tears down every session via the registry.
type ChatServer struct {
	registry *Registry

	mu       sync.Mutex
	listener net.Listener
	running  bool
	sessions map[*Session]struct{}

	wg sync.WaitGroup
}

// NewChatServer creates a chat server over the given registry.
func NewChatServer(registry *Registry) *ChatServer {
	return &ChatServer{
		registry: registry,
		sessions: make(map[*Session]struct{}),
	}
}

// Start binds the TCP listener and launches the accept loop. It returns
// ErrAlreadyStarted if the server is already running and a bind failure
// as-is, which the admin surface reports as a fatal start failure.
func (cs *ChatServer) Start(addr string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.running {
		return ErrAlreadyStarted
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	cs.listener = listener
	cs.running = true
	cs.registry.reopen()

	cs.wg.Add(1)
	go func() {
		defer cs.wg.Done()
		cs.acceptLoop(listener)
	}()

	log.Printf("Chat server listening on %s", listener.Addr())
	return nil
}

// Addr returns the listener address, or nil when the server is stopped.
// Tests use it to discover the port after starting on ":0".
func (cs *ChatServer) Addr() net.Addr {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.listener == nil {
		return nil
	}
	return cs.listener.Addr()
}

// IsRunning reports whether the server is accepting connections.
func (cs *ChatServer) IsRunning() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.running
}

func (cs *ChatServer) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Println("Chat listener stopped")
				return
			}
			log.Printf("Accept error: %v", err)
			continue
		}

		cs.wg.Add(1)
		go func() {
			defer cs.wg.Done()
			cs.handle(conn)
		}()
	}
}

// handle drives one connection through the handshake and, on success, runs
// its read loop until the session closes. Nothing a connection does here can
// terminate the accept loop.
func (cs *ChatServer) handle(conn net.Conn) {
	ses := NewSession(conn)
	cs.track(ses)
	defer func() {
		cs.untrack(ses)
		ses.Close()
	}()

	log.Printf("Accepted connection from %s (session %s)", ses.addr, ses.id)

	if err := cs.handshake(ses); err != nil {
		log.Printf("Handshake with %s failed: %v", ses.addr, err)
		return
	}

	ses.readLoop()
}

// handshake performs the greeting, room action, and nickname exchanges. Any
// failure is answered with a status frame and is terminal for the connection:
// no session joins a room unless every step succeeded.
func (cs *ChatServer) handshake(ses *Session) error {
	if err := ses.write(Greeting); err != nil {
		return err
	}

	line, err := ses.readLine()
	if err != nil {
		return err
	}

	req, err := ParseRequest(line)
	if err != nil {
		_ = ses.write(StatusInvalidRequest)
		return err
	}

	var room *Room
	switch req.Action {
	case ActionCreate:
		room, err = cs.registry.CreateRoom(req.RoomID, req.Password)
	case ActionJoin:
		room, err = cs.registry.JoinRoom(req.RoomID, req.Password)
	default:
		err = ErrInvalidAction
	}
	if err != nil {
		_ = ses.write(statusForError(err))
		return err
	}

	ses.setPhase(PhaseAwaitingNickname)
	if err := ses.write(StatusNick); err != nil {
		return err
	}

	nickname, err := ses.readLine()
	if err != nil {
		return err
	}
	if err := ValidateNickname(nickname); err != nil {
		_ = ses.write(StatusInvalidRequest)
		return err
	}

	if err := room.AddMember(nickname, ses); err != nil {
		_ = ses.write(statusForError(err))
		return err
	}

	ses.setPhase(PhaseActive)
	return nil
}

// track registers an accepted session so shutdown can close connections that
// are still mid-handshake. A session accepted while the server is already
// stopping is closed on the spot.
func (cs *ChatServer) track(ses *Session) {
	cs.mu.Lock()
	stopping := !cs.running
	cs.sessions[ses] = struct{}{}
	cs.mu.Unlock()

	if stopping {
		ses.Close()
	}
}

func (cs *ChatServer) untrack(ses *Session) {
	cs.mu.Lock()
	delete(cs.sessions, ses)
	cs.mu.Unlock()
}

// Shutdown stops accepting connections, notifies and disconnects every
// member of every room, closes connections still in their handshake, and
// waits for the connection goroutines to finish or the timeout to elapse.
func (cs *ChatServer) Shutdown(timeout time.Duration) error {
	cs.mu.Lock()
	if !cs.running {
		cs.mu.Unlock()
		return ErrServerNotRunning
	}
	listener := cs.listener
	cs.listener = nil
	cs.running = false
	cs.mu.Unlock()

	log.Println("Initiating chat server shutdown...")

	if err := listener.Close(); err != nil && !isExpectedCloseError(err) {
		log.Printf("Error closing chat listener: %v", err)
	}

	cs.registry.Shutdown()

	// Room members have their notices queued by now; closing every tracked
	// session also covers connections that never completed the handshake.
	cs.mu.Lock()
	sessions := make([]*Session, 0, len(cs.sessions))
	for ses := range cs.sessions {
		sessions = append(sessions, ses)
	}
	cs.mu.Unlock()
	for _, ses := range sessions {
		ses.Close()
	}

	done := make(chan struct{})
	go func() {
		cs.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Chat server shutdown completed")
		return nil
	case <-time.After(timeout):
		log.Println("Chat server shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
