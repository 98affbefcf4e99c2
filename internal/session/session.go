// Package session implements the session store (spec.md §4.4): time-limited
// session records keyed by user id, with lazy expiry. Grounded on
// original_source/server/src/session.rs's SessionHandler.
package session

import "context"

// Status is the result of checking a session's liveness.
type Status int

const (
	// Active means the session exists and has not expired.
	Active Status = iota
	// Expired means the session existed but was older than the TTL; it has
	// already been deleted by the check.
	Expired
	// NotFound means no session document exists for the user id.
	NotFound
)

// Store is the session-store contract the request handler depends on.
type Store interface {
	// Start begins a session for userID. It is a no-op if an active session
	// already exists (spec.md §4.4).
	Start(ctx context.Context, userID string) error

	// End deletes userID's session if present; a no-op if absent.
	End(ctx context.Context, userID string) error

	// CheckActive reports userID's session status, lazily deleting it if
	// expired.
	CheckActive(ctx context.Context, userID string) (Status, error)
}
