package guild

import "errors"

// Sentinel errors the handler maps onto protocol.ServerError kinds.
var (
	// ErrNotInitialized means the named guild has no config document —
	// it either never existed or was deleted (maps to BadRequest).
	ErrNotInitialized = errors.New("guild: not initialized")

	// ErrPermissionDenied means the acting user is not an admin of the
	// guild for an admin-only operation.
	ErrPermissionDenied = errors.New("guild: permission denied")

	// ErrNotMember means the acting user is not a member of the guild at
	// all (not even as a regular user).
	ErrNotMember = errors.New("guild: not a member")

	// ErrChannelExists means CreateChannel was asked to create a channel
	// name already in use, including the reserved "config" name.
	ErrChannelExists = errors.New("guild: channel already exists")

	// ErrChannelNotFound means the named channel does not exist in the
	// guild.
	ErrChannelNotFound = errors.New("guild: channel not found")
)
