// Package server defines shared payload types and utility helpers that are
// reused across the registry, session, and admin layers.
package server

import "strings"

// RoomInfo is the admin-surface snapshot of one room.
type RoomInfo struct {
	ID          string `json:"id"`
	MemberCount int    `json:"memberCount"`
	Admin       string `json:"admin,omitempty"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "connection reset by peer") ||
		strings.Contains(errStr, "broken pipe")
}
