// Package guild implements the guild/channel/message store (spec.md §4.6):
// one Mongo database per guild, one collection per channel plus a reserved
// "config" collection, and the admin/member privilege checks that gate every
// operation. Grounded on original_source/server/src/server_handler.rs's ServerHandler
// (the original calls a guild a "server"; this package uses "guild"
// throughout to avoid colliding with the network server).
package guild

import "context"

// reservedConfigName is the collection name no channel may use.
const reservedConfigName = "config"

// Config is a guild's admin/membership roster, independent of storage.
type Config struct {
	Name   string
	Admins []string
	Users  []string
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// checkAdmin returns ErrPermissionDenied if userID is not one of cfg's
// admins.
func checkAdmin(cfg *Config, userID string) error {
	if !contains(cfg.Admins, userID) {
		return ErrPermissionDenied
	}
	return nil
}

// checkMember returns ErrNotMember if userID is neither an admin nor a
// regular user of cfg.
func checkMember(cfg *Config, userID string) error {
	if contains(cfg.Admins, userID) || contains(cfg.Users, userID) {
		return nil
	}
	return ErrNotMember
}

// Store is the guild-store contract the request handler depends on. All
// operations taking actorUserID enforce the admin/membership rule spec.md
// §4.6 assigns to that operation.
type Store interface {
	// CreateGuild allocates a new guild id and makes actorUserID its sole
	// admin and member.
	CreateGuild(ctx context.Context, actorUserID, name string) (guildID string, err error)

	// DeleteGuild drops guildID entirely. actorUserID must be an admin.
	DeleteGuild(ctx context.Context, actorUserID, guildID string) error

	// GetName returns a guild's display name.
	GetName(ctx context.Context, guildID string) (string, error)

	// CreateChannel adds a channel to guildID. actorUserID must be an
	// admin. Returns ErrChannelExists if name is taken or reserved.
	CreateChannel(ctx context.Context, actorUserID, guildID, name string) error

	// DeleteChannel removes a channel from guildID. actorUserID must be
	// an admin. Returns ErrChannelNotFound if absent.
	DeleteChannel(ctx context.Context, actorUserID, guildID, name string) error

	// ListChannels lists every non-reserved channel name in guildID.
	// actorUserID must be a member.
	ListChannels(ctx context.Context, actorUserID, guildID string) ([]string, error)

	// SendMessage appends a message to channel in guildID, authored as
	// authorUsername. actorUserID must be a member.
	SendMessage(ctx context.Context, actorUserID, guildID, channel, content, authorUsername string) error

	// GetBlock returns the messages of the blockIndex'th block of
	// channel, in creation order. found is false once blockIndex is past
	// the last block (spec.md §4.7's EndOfChannel case). actorUserID
	// must be a member.
	GetBlock(ctx context.Context, actorUserID, guildID, channel string, blockIndex uint32) (messages []Message, found bool, err error)
}
