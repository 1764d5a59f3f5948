// Package server coordinates room creation, lookup, and teardown for the
// Roomcast service via the Registry type, the single source of truth for
// which rooms exist.
package server

import (
	"log"
	"slices"
	"sync"
)

// Registry maps room identifiers to rooms. Creation and existence checks are
// one atomic unit, so two concurrent CREATE requests for the same id can
// never both succeed. Once closed, create and join calls fail cleanly until
// the chat server is started again.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	closed bool

	events *EventBus
}

// NewRegistry creates an empty registry publishing on the given bus.
func NewRegistry(events *EventBus) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		events: events,
	}
}

// CreateRoom inserts a new empty room. The creator still has to join it by
// completing the nickname exchange, like any other member.
func (g *Registry) CreateRoom(id, password string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ErrServerClosed
	}
	if _, ok := g.rooms[id]; ok {
		return nil, ErrRoomExists
	}

	room := newRoom(id, password, g.events)
	g.rooms[id] = room

	g.events.publish(Event{Type: EventRoomCreated, Room: id})
	log.Printf("Room %q created", id)
	return room, nil
}

// JoinRoom validates the password and returns the room handle used to add
// the session once its nickname is accepted.
func (g *Registry) JoinRoom(id, password string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return nil, ErrServerClosed
	}
	room, ok := g.rooms[id]
	if !ok {
		return nil, ErrNoSuchRoom
	}
	if !room.checkPassword(password) {
		return nil, ErrWrongPassword
	}
	return room, nil
}

// Room looks up a room by id.
func (g *Registry) Room(id string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[id]
	return room, ok
}

// ListRooms snapshots every room for the admin surface, sorted by id.
func (g *Registry) ListRooms() []RoomInfo {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, RoomInfo{
			ID:          room.ID(),
			MemberCount: room.MemberCount(),
			Admin:       room.Admin(),
		})
	}
	slices.SortFunc(infos, func(a, b RoomInfo) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return infos
}

// ListMembers returns the nicknames of a room's current members in join order.
func (g *Registry) ListMembers(id string) ([]string, error) {
	room, ok := g.Room(id)
	if !ok {
		return nil, ErrNoSuchRoom
	}
	return room.MemberNicknames(), nil
}

// Kick removes the named member from the given room.
func (g *Registry) Kick(roomID, nickname string) error {
	room, ok := g.Room(roomID)
	if !ok {
		return ErrNoSuchRoom
	}
	return room.Kick(nickname)
}

// CloseRoom disconnects every member of the room and removes it. The removal
// is atomic with respect to new joins: once the entry is gone a JOIN fails
// with NoSuchRoom, and a join that already held the handle fails against the
// room's closed flag.
func (g *Registry) CloseRoom(id string) error {
	g.mu.Lock()
	room, ok := g.rooms[id]
	if !ok {
		g.mu.Unlock()
		return ErrNoSuchRoom
	}
	delete(g.rooms, id)
	g.mu.Unlock()

	room.close(closedNotice(id))
	return nil
}

// Shutdown notifies and disconnects every member of every room and clears
// the registry. Create and join calls racing with it observe the closed flag
// and fail with ErrServerClosed.
func (g *Registry) Shutdown() {
	g.mu.Lock()
	g.closed = true
	rooms := g.rooms
	g.rooms = make(map[string]*Room)
	g.mu.Unlock()

	for _, room := range rooms {
		room.close(shutdownNotice())
	}

	g.events.publish(Event{Type: EventServerStopped})
	log.Printf("Registry cleared, %d rooms closed", len(rooms))
}

// reopen lifts the closed flag when the chat server starts listening again.
func (g *Registry) reopen() {
	g.mu.Lock()
	g.closed = false
	g.mu.Unlock()
}
