package handler_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/guildchat/server/internal/guild"
	"github.com/guildchat/server/internal/identity"
	"github.com/guildchat/server/internal/session"
)

// nextFakeID hands out sequential, wire-valid 24-hex ids for tests.
var (
	fakeIDMu  sync.Mutex
	fakeIDCtr int
)

func nextFakeID() string {
	fakeIDMu.Lock()
	defer fakeIDMu.Unlock()
	fakeIDCtr++
	return fmt.Sprintf("%024x", fakeIDCtr)
}

// fakeIdentityStore is an in-memory identity.Store used to drive the
// handler without a live database.
type fakeIdentityStore struct {
	mu    sync.Mutex
	users map[string]*identity.User
	pass  map[string]string
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{users: make(map[string]*identity.User), pass: make(map[string]string)}
}

func (f *fakeIdentityStore) Create(_ context.Context, username, password string, online bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return "", identity.ErrUsernameTaken
		}
	}
	id := nextFakeID()
	f.users[id] = &identity.User{ID: id, Username: username, Online: online}
	f.pass[id] = password
	return id, nil
}

func (f *fakeIdentityStore) Get(_ context.Context, userID string) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (f *fakeIdentityStore) FindByName(_ context.Context, name string) ([]identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []identity.User
	for _, u := range f.users {
		if u.Username == name {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeIdentityStore) CheckCredentials(_ context.Context, userID, username, password string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return false, nil
	}
	return u.Username == username && f.pass[userID] == password, nil
}

func (f *fakeIdentityStore) SetStatus(_ context.Context, userID string, online bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Online = online
	}
	return nil
}

func (f *fakeIdentityStore) AddGuild(_ context.Context, userID, guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Guilds = append(u.Guilds, guildID)
	}
	return nil
}

var _ identity.Store = (*fakeIdentityStore)(nil)

// fakeSessionStore is an in-memory session.Store. Tests that need an
// expired session write directly into started with a past timestamp.
type fakeSessionStore struct {
	mu      sync.Mutex
	started map[string]time.Time
	ttl     time.Duration
}

func newFakeSessionStore(ttl time.Duration) *fakeSessionStore {
	return &fakeSessionStore{started: make(map[string]time.Time), ttl: ttl}
}

func (f *fakeSessionStore) Start(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.started[userID]; ok {
		return nil
	}
	f.started[userID] = time.Now()
	return nil
}

func (f *fakeSessionStore) End(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.started, userID)
	return nil
}

func (f *fakeSessionStore) CheckActive(_ context.Context, userID string) (session.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start, ok := f.started[userID]
	if !ok {
		return session.NotFound, nil
	}
	if time.Since(start) > f.ttl {
		delete(f.started, userID)
		return session.Expired, nil
	}
	return session.Active, nil
}

var _ session.Store = (*fakeSessionStore)(nil)

// fakeGuildRecord mirrors guild.Config plus its channel blocks.
type fakeGuildRecord struct {
	name     string
	admins   map[string]bool
	users    map[string]bool
	channels map[string][][]guild.Message
}

// fakeGuildStore is an in-memory guild.Store reimplementing the
// privilege/membership rules directly, independent of any Mongo-backed
// implementation.
type fakeGuildStore struct {
	mu     sync.Mutex
	guilds map[string]*fakeGuildRecord
}

func newFakeGuildStore() *fakeGuildStore {
	return &fakeGuildStore{guilds: make(map[string]*fakeGuildRecord)}
}

func (f *fakeGuildStore) CreateGuild(_ context.Context, actorUserID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := nextFakeID()
	f.guilds[id] = &fakeGuildRecord{
		name:     name,
		admins:   map[string]bool{actorUserID: true},
		users:    map[string]bool{actorUserID: true},
		channels: make(map[string][][]guild.Message),
	}
	return id, nil
}

func (f *fakeGuildStore) DeleteGuild(_ context.Context, actorUserID, guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return guild.ErrNotInitialized
	}
	if !g.admins[actorUserID] {
		return guild.ErrPermissionDenied
	}
	delete(f.guilds, guildID)
	return nil
}

func (f *fakeGuildStore) GetName(_ context.Context, guildID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return "", guild.ErrNotInitialized
	}
	return g.name, nil
}

func (f *fakeGuildStore) CreateChannel(_ context.Context, actorUserID, guildID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return guild.ErrNotInitialized
	}
	if !g.admins[actorUserID] {
		return guild.ErrPermissionDenied
	}
	if name == "config" {
		return guild.ErrChannelExists
	}
	if _, exists := g.channels[name]; exists {
		return guild.ErrChannelExists
	}
	g.channels[name] = [][]guild.Message{{{Content: "channel created...", Author: "SERVER"}}}
	return nil
}

func (f *fakeGuildStore) DeleteChannel(_ context.Context, actorUserID, guildID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return guild.ErrNotInitialized
	}
	if !g.admins[actorUserID] {
		return guild.ErrPermissionDenied
	}
	if _, exists := g.channels[name]; !exists {
		return guild.ErrChannelNotFound
	}
	delete(g.channels, name)
	return nil
}

func (f *fakeGuildStore) ListChannels(_ context.Context, actorUserID, guildID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return nil, guild.ErrNotInitialized
	}
	if !g.admins[actorUserID] && !g.users[actorUserID] {
		return nil, guild.ErrNotMember
	}
	var names []string
	for n := range g.channels {
		names = append(names, n)
	}
	return names, nil
}

const fakeBlockCapacity = 50

func (f *fakeGuildStore) SendMessage(_ context.Context, actorUserID, guildID, channel, content, authorUsername string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return guild.ErrNotInitialized
	}
	if !g.admins[actorUserID] && !g.users[actorUserID] {
		return guild.ErrNotMember
	}
	blocks, exists := g.channels[channel]
	if !exists {
		return guild.ErrChannelNotFound
	}
	msg := guild.Message{Content: content, Author: authorUsername}
	last := len(blocks) - 1
	if last >= 0 && len(blocks[last]) < fakeBlockCapacity {
		blocks[last] = append(blocks[last], msg)
	} else {
		blocks = append(blocks, []guild.Message{msg})
	}
	g.channels[channel] = blocks
	return nil
}

func (f *fakeGuildStore) GetBlock(_ context.Context, actorUserID, guildID, channel string, blockIndex uint32) ([]guild.Message, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return nil, false, guild.ErrNotInitialized
	}
	if !g.admins[actorUserID] && !g.users[actorUserID] {
		return nil, false, guild.ErrNotMember
	}
	blocks, exists := g.channels[channel]
	if !exists || int(blockIndex) >= len(blocks) {
		return nil, false, nil
	}
	return blocks[blockIndex], true, nil
}

var _ guild.Store = (*fakeGuildStore)(nil)
