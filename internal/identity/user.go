// Package identity implements the user store (spec.md §4.5): account
// creation, credential checks, online status, and guild membership,
// grounded on original_source/server/src/user.rs's SensitiveUser/UserHandler.
package identity

import (
	"context"
	"errors"
)

// ErrUsernameTaken is returned by Store.Create when the username unique
// index rejects the insert.
var ErrUsernameTaken = errors.New("identity: username already taken")

// User is the account record surfaced outside this package. It never
// carries the password hash.
type User struct {
	ID       string
	Username string
	Online   bool
	Guilds   []string
}

// Store is the user-store contract the request handler depends on. The
// Mongo-backed implementation lives in mongo_store.go; tests drive the
// handler against an in-memory fake instead.
type Store interface {
	// Create allocates a new user id, hashes password, and inserts the
	// record. It returns ErrUsernameTaken if the username is already in use.
	Create(ctx context.Context, username, password string, online bool) (string, error)

	// Get fetches a user by id. It returns (nil, nil) if no such user exists.
	Get(ctx context.Context, userID string) (*User, error)

	// FindByName returns every user whose username equals name exactly.
	// The unique index means this is 0 or 1 elements in practice; the
	// plural form is kept for forward compatibility (spec.md §4.5).
	FindByName(ctx context.Context, name string) ([]User, error)

	// CheckCredentials reports whether userID's record has the given
	// username and password.
	CheckCredentials(ctx context.Context, userID, username, password string) (bool, error)

	// SetStatus updates a user's online flag.
	SetStatus(ctx context.Context, userID string, online bool) error

	// AddGuild appends guildID to a user's guild list.
	AddGuild(ctx context.Context, userID, guildID string) error
}
