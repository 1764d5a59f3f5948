// Package server implements rooms: named, password-protected groups of
// sessions with an admin, join-ordered membership, and broadcast fan-out.
package server

import (
	"log"
	"sync"
)

// Room is a named group of sessions sharing a broadcast channel. The first
// member to join becomes its admin and stays its admin for the room's whole
// lifetime, even after leaving. A room is never deleted just because it
// emptied; only an admin close or a server shutdown removes it.
type Room struct {
	id       string
	password string

	mu      sync.Mutex
	admin   string
	members []*Session // join order
	closed  bool

	events *EventBus
}

func newRoom(id, password string, events *EventBus) *Room {
	return &Room{
		id:       id,
		password: password,
		events:   events,
	}
}

// ID returns the room's immutable identifier.
func (r *Room) ID() string {
	return r.id
}

// Admin returns the nickname of the room's admin, or "" before the first
// member joined.
func (r *Room) Admin() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.admin
}

// MemberCount returns the number of current members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// MemberNicknames returns the nicknames of current members in join order.
func (r *Room) MemberNicknames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	nicknames := make([]string, 0, len(r.members))
	for _, m := range r.members {
		nicknames = append(nicknames, m.nickname)
	}
	return nicknames
}

// checkPassword compares verbatim; passwords are stored in plaintext for
// compatibility with existing deployments.
func (r *Room) checkPassword(password string) bool {
	return r.password == password
}

// AddMember registers a session under a nickname. The nickname must be
// unique among current members; the first member becomes admin and is told
// so. The other members receive a join notice.
func (r *Room) AddMember(nickname string, ses *Session) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRoomClosed
	}
	for _, m := range r.members {
		if m.nickname == nickname {
			r.mu.Unlock()
			return ErrNicknameTaken
		}
	}

	ses.nickname = nickname
	ses.room = r
	r.members = append(r.members, ses)

	becameAdmin := false
	if r.admin == "" {
		r.admin = nickname
		becameAdmin = true
	}
	others := r.membersExceptLocked(ses)
	r.mu.Unlock()

	if becameAdmin {
		ses.enqueue(adminNotice())
	}
	r.deliver(others, joinedNotice(nickname))
	r.events.publish(Event{Type: EventMemberJoined, Room: r.id, Nickname: nickname})
	log.Printf("%s joined room %q (session %s)", nickname, r.id, ses.id)
	return nil
}

// RemoveMember removes a session from the room and notifies the remaining
// members. It is idempotent: removing a session that is not a member is a
// no-op, so the self-teardown path and a racing forced disconnect can both
// call it safely.
func (r *Room) RemoveMember(ses *Session) bool {
	r.mu.Lock()
	idx := -1
	for i, m := range r.members {
		if m == ses {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return false
	}

	r.members = append(r.members[:idx], r.members[idx+1:]...)
	nickname := ses.nickname
	remaining := r.membersExceptLocked(nil)
	r.mu.Unlock()

	r.deliver(remaining, leftNotice(nickname))
	r.events.publish(Event{Type: EventMemberLeft, Room: r.id, Nickname: nickname})
	return true
}

// BroadcastChat fans a chat payload out to every member except the sender,
// with the sender's nickname prefixed.
func (r *Room) BroadcastChat(sender *Session, text string) {
	r.mu.Lock()
	targets := r.membersExceptLocked(sender)
	r.mu.Unlock()

	r.deliver(targets, ChatLine(sender.nickname, text))
}

// Kick sends a kick notice to the named member, forces its connection
// closed, and tells the remaining members. The removal funnels through
// RemoveMember, so a race with the member's own teardown is harmless.
func (r *Room) Kick(nickname string) error {
	r.mu.Lock()
	var target *Session
	for _, m := range r.members {
		if m.nickname == nickname {
			target = m
			break
		}
	}
	r.mu.Unlock()

	if target == nil {
		return ErrUserNotFound
	}

	target.enqueue(kickedNotice())
	target.Close()
	r.RemoveMember(target)

	r.mu.Lock()
	rest := r.membersExceptLocked(nil)
	r.mu.Unlock()
	r.deliver(rest, removedNotice(nickname))

	r.events.publish(Event{Type: EventMemberKicked, Room: r.id, Nickname: nickname})
	log.Printf("%s kicked from room %q", nickname, r.id)
	return nil
}

// close notifies every member with the given notice, forces their
// connections closed, and leaves the room empty and unjoinable. Each member
// receives exactly one notice. Closing twice is a no-op.
func (r *Room) close(notice string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	members := r.members
	r.members = nil
	r.mu.Unlock()

	for _, m := range members {
		m.enqueue(notice)
		m.Close()
	}

	r.events.publish(Event{Type: EventRoomClosed, Room: r.id})
	log.Printf("Room %q closed, %d members disconnected", r.id, len(members))
}

// membersExceptLocked snapshots the member list minus the excluded session.
// Callers must hold r.mu; a nil exclusion returns everyone.
func (r *Room) membersExceptLocked(except *Session) []*Session {
	targets := make([]*Session, 0, len(r.members))
	for _, m := range r.members {
		if m == except {
			continue
		}
		targets = append(targets, m)
	}
	return targets
}

// deliver enqueues a frame for every target. A member that cannot accept the
// frame (closed session or full buffer) is treated as implicitly
// disconnected and removed without aborting delivery to the others.
func (r *Room) deliver(targets []*Session, line string) {
	var failed []*Session
	for _, m := range targets {
		if !m.enqueue(line) {
			failed = append(failed, m)
		}
	}

	for _, m := range failed {
		log.Printf("Dropping unresponsive member %s from room %q", m.nickname, r.id)
		r.RemoveMember(m)
		m.Close()
	}
}
