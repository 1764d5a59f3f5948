// Package server defines the sentinel errors shared by the handshake,
// registry, and admin layers of the Roomcast service.
package server

import "errors"

var (
	// ErrMalformedRequest indicates a handshake frame that could not be
	// split into the expected fields.
	ErrMalformedRequest = errors.New("malformed handshake request")

	// ErrInvalidAction indicates a handshake action other than CREATE or JOIN.
	ErrInvalidAction = errors.New("invalid handshake action")

	ErrRoomExists    = errors.New("room already exists")
	ErrNoSuchRoom    = errors.New("no such room")
	ErrWrongPassword = errors.New("wrong room password")
	ErrNicknameTaken = errors.New("nickname already taken in this room")
	ErrUserNotFound  = errors.New("no member with that nickname")
	ErrRoomClosed    = errors.New("room already closed")

	ErrAlreadyStarted   = errors.New("server has already started")
	ErrServerClosed     = errors.New("server is shutting down")
	ErrServerNotRunning = errors.New("server is not running")
)
