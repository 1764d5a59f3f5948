// Package server implements the core connection and room engine for Roomcast.
//
// The implementation is organized into specialized files for configuration,
// the wire protocol, sessions, rooms, the registry, the TCP listener, and the
// admin HTTP surface to keep the codebase maintainable and testable as the
// project grows.
package server
