// Package handler implements the request dispatcher (spec.md §4.7): it
// pattern-matches on a decoded protocol.Request's tagged variant and
// delegates to the session, identity, and guild stores, turning their
// results into a protocol.Response. Grounded on
// original_source/server/src/handler.rs's RequestHandler.
package handler

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/guildchat/server/internal/guild"
	"github.com/guildchat/server/internal/identity"
	"github.com/guildchat/server/internal/logging"
	"github.com/guildchat/server/internal/protocol"
	"github.com/guildchat/server/internal/session"
)

// Handler composes the three store handles the request dispatch needs plus
// a logger. It holds only interface values and a pointer, so it is cheaply
// copyable, matching spec.md §9's "shared handles" design note.
type Handler struct {
	Sessions session.Store
	Users    identity.Store
	Guilds   guild.Store
	Log      *logrus.Entry
}

// New builds a Handler from its three store dependencies and a logger; a
// nil log falls back to an entry on logging.Default().
func New(sessions session.Store, users identity.Store, guilds guild.Store, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logging.Default())
	}
	return &Handler{Sessions: sessions, Users: users, Guilds: guilds, Log: log}
}

// Handle dispatches req and returns the response to write back. It has no
// error return: every failure, including unexpected store errors, becomes a
// protocol.Err response.
func (h *Handler) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	switch protocol.RequestType(req.Tp.Type) {
	case protocol.TypePing:
		return h.handlePing(req)
	case protocol.TypeSignUp:
		return h.handleSignUp(ctx, req)
	case protocol.TypeSignIn:
		return h.handleSignIn(ctx, req)
	case protocol.TypeSignOut:
		return h.handleSignOut(ctx, req)
	case protocol.TypeNewServer:
		return h.handleNewGuild(ctx, req)
	case protocol.TypeDeleteServer:
		return h.handleDeleteGuild(ctx, req)
	case protocol.TypeNewChannel:
		return h.handleNewChannel(ctx, req)
	case protocol.TypeDeleteChannel:
		return h.handleDeleteChannel(ctx, req)
	case protocol.TypeGetChannels:
		return h.handleGetChannels(ctx, req)
	case protocol.TypeSendMessage:
		return h.handleSendMessage(ctx, req)
	case protocol.TypeGetMessages:
		return h.handleGetMessages(ctx, req)
	default:
		return protocol.Err(protocol.ErrBadRequest)
	}
}

func (h *Handler) handlePing(req protocol.Request) protocol.Response {
	var text string
	if err := req.Tp.Decode(&text); err != nil {
		return protocol.Err(protocol.ErrBadRequest)
	}
	return protocol.Pong(text)
}

func (h *Handler) handleSignUp(ctx context.Context, req protocol.Request) protocol.Response {
	var payload protocol.SignUpPayload
	if err := req.Tp.Decode(&payload); err != nil {
		return protocol.Err(protocol.ErrBadRequest)
	}

	userID, err := h.Users.Create(ctx, payload.Username, payload.Password, false)
	if err != nil {
		if errors.Is(err, identity.ErrUsernameTaken) {
			return protocol.Err(protocol.ErrBadRequest)
		}
		return h.internalError(ctx, req.Tp.Type, "sign up", err)
	}

	if err := h.Sessions.Start(ctx, userID); err != nil {
		return h.internalError(ctx, req.Tp.Type, "start session after sign up", err)
	}
	return protocol.SessionCreated(userID)
}

func (h *Handler) handleSignIn(ctx context.Context, req protocol.Request) protocol.Response {
	var payload protocol.SignInPayload
	if err := req.Tp.Decode(&payload); err != nil {
		return protocol.Err(protocol.ErrBadRequest)
	}
	if !protocol.ValidID(payload.ID) {
		return protocol.Err(protocol.ErrBadRequest)
	}

	// Order matters (spec.md §9): verify credentials, then flip the
	// online flag, then start the session — never the reverse.
	ok, err := h.Users.CheckCredentials(ctx, payload.ID, payload.Username, payload.Password)
	if err != nil {
		return h.internalError(ctx, req.Tp.Type, "check credentials", err)
	}
	if !ok {
		return protocol.Err(protocol.ErrInvalidCredentials)
	}

	if err := h.Users.SetStatus(ctx, payload.ID, true); err != nil {
		return h.internalError(ctx, req.Tp.Type, "set status online", err)
	}
	if err := h.Sessions.Start(ctx, payload.ID); err != nil {
		return h.internalError(ctx, req.Tp.Type, "start session after sign in", err)
	}
	return protocol.Success()
}

func (h *Handler) handleSignOut(ctx context.Context, req protocol.Request) protocol.Response {
	if req.SessionCookie == nil {
		return protocol.Err(protocol.ErrBadRequest)
	}
	userID := string(*req.SessionCookie)

	status, err := h.Sessions.CheckActive(ctx, userID)
	if err != nil {
		return h.internalError(ctx, req.Tp.Type, "check active session for sign out", err)
	}
	switch status {
	case session.NotFound:
		return protocol.Err(protocol.ErrBadRequest)
	case session.Expired:
		return protocol.Err(protocol.ErrSessionExpired)
	}

	if err := h.Sessions.End(ctx, userID); err != nil {
		return h.internalError(ctx, req.Tp.Type, "end session", err)
	}
	if err := h.Users.SetStatus(ctx, userID, false); err != nil {
		return h.internalError(ctx, req.Tp.Type, "set status offline", err)
	}
	return protocol.Success()
}

// requireSession resolves req's cookie into an authenticated user id for
// resource operations (everything except SignOut, which has its own
// BadRequest-on-missing-cookie rule per spec.md §4.7). A missing cookie
// yields PermissionDenied.
func (h *Handler) requireSession(ctx context.Context, req protocol.Request) (userID string, errResp *protocol.Response) {
	if req.SessionCookie == nil {
		resp := protocol.Err(protocol.ErrPermissionDenied)
		return "", &resp
	}
	userID = string(*req.SessionCookie)

	status, err := h.Sessions.CheckActive(ctx, userID)
	if err != nil {
		resp := h.internalError(ctx, req.Tp.Type, "check active session", err)
		return "", &resp
	}
	switch status {
	case session.NotFound:
		resp := protocol.Err(protocol.ErrBadRequest)
		return "", &resp
	case session.Expired:
		resp := protocol.Err(protocol.ErrSessionExpired)
		return "", &resp
	}
	return userID, nil
}

func (h *Handler) handleNewGuild(ctx context.Context, req protocol.Request) protocol.Response {
	userID, errResp := h.requireSession(ctx, req)
	if errResp != nil {
		return *errResp
	}

	var payload protocol.NewServerPayload
	if err := req.Tp.Decode(&payload); err != nil {
		return protocol.Err(protocol.ErrBadRequest)
	}

	guildID, err := h.Guilds.CreateGuild(ctx, userID, payload.Name)
	if err != nil {
		return h.internalError(ctx, req.Tp.Type, "create guild", err)
	}
	if err := h.Users.AddGuild(ctx, userID, guildID); err != nil {
		return h.internalError(ctx, req.Tp.Type, "record guild membership", err)
	}
	return protocol.ServerCreated(guildID)
}

func (h *Handler) handleDeleteGuild(ctx context.Context, req protocol.Request) protocol.Response {
	userID, errResp := h.requireSession(ctx, req)
	if errResp != nil {
		return *errResp
	}

	var payload protocol.DeleteServerPayload
	if err := req.Tp.Decode(&payload); err != nil {
		return protocol.Err(protocol.ErrBadRequest)
	}

	if err := h.Guilds.DeleteGuild(ctx, userID, payload.ID); err != nil {
		return h.mapGuildError(ctx, req.Tp.Type, err, "delete guild")
	}
	return protocol.Success()
}

func (h *Handler) handleNewChannel(ctx context.Context, req protocol.Request) protocol.Response {
	userID, errResp := h.requireSession(ctx, req)
	if errResp != nil {
		return *errResp
	}

	var payload protocol.NewChannelPayload
	if err := req.Tp.Decode(&payload); err != nil {
		return protocol.Err(protocol.ErrBadRequest)
	}

	if err := h.Guilds.CreateChannel(ctx, userID, payload.GuildID, payload.Name); err != nil {
		return h.mapGuildError(ctx, req.Tp.Type, err, "create channel")
	}
	return protocol.Success()
}

func (h *Handler) handleDeleteChannel(ctx context.Context, req protocol.Request) protocol.Response {
	userID, errResp := h.requireSession(ctx, req)
	if errResp != nil {
		return *errResp
	}

	var payload protocol.DeleteChannelPayload
	if err := req.Tp.Decode(&payload); err != nil {
		return protocol.Err(protocol.ErrBadRequest)
	}

	if err := h.Guilds.DeleteChannel(ctx, userID, payload.GuildID, payload.Name); err != nil {
		return h.mapGuildError(ctx, req.Tp.Type, err, "delete channel")
	}
	return protocol.Success()
}

func (h *Handler) handleGetChannels(ctx context.Context, req protocol.Request) protocol.Response {
	userID, errResp := h.requireSession(ctx, req)
	if errResp != nil {
		return *errResp
	}

	var payload protocol.GetChannelsPayload
	if err := req.Tp.Decode(&payload); err != nil {
		return protocol.Err(protocol.ErrBadRequest)
	}

	names, err := h.Guilds.ListChannels(ctx, userID, payload.GuildID)
	if err != nil {
		return h.mapGuildError(ctx, req.Tp.Type, err, "list channels")
	}
	return protocol.ChannelList(names)
}

func (h *Handler) handleSendMessage(ctx context.Context, req protocol.Request) protocol.Response {
	userID, errResp := h.requireSession(ctx, req)
	if errResp != nil {
		return *errResp
	}

	var payload protocol.SendMessagePayload
	if err := req.Tp.Decode(&payload); err != nil {
		return protocol.Err(protocol.ErrBadRequest)
	}

	user, err := h.Users.Get(ctx, userID)
	if err != nil {
		return h.internalError(ctx, req.Tp.Type, "load author for send message", err)
	}
	if user == nil {
		return protocol.Err(protocol.ErrBadRequest)
	}

	if err := h.Guilds.SendMessage(ctx, userID, payload.GuildID, payload.ChannelName, payload.Content, user.Username); err != nil {
		return h.mapGuildError(ctx, req.Tp.Type, err, "send message")
	}
	return protocol.Success()
}

func (h *Handler) handleGetMessages(ctx context.Context, req protocol.Request) protocol.Response {
	userID, errResp := h.requireSession(ctx, req)
	if errResp != nil {
		return *errResp
	}

	var payload protocol.GetMessagesPayload
	if err := req.Tp.Decode(&payload); err != nil {
		return protocol.Err(protocol.ErrBadRequest)
	}

	messages, found, err := h.Guilds.GetBlock(ctx, userID, payload.GuildID, payload.ChannelName, payload.BlockIndex)
	if err != nil {
		return h.mapGuildError(ctx, req.Tp.Type, err, "get messages")
	}
	if !found {
		return protocol.EndOfChannel()
	}

	dtos := make([]protocol.MessageDTO, len(messages))
	for i, m := range messages {
		dtos[i] = protocol.MessageDTO{Content: m.Content, Author: m.Author}
	}
	return protocol.MessagesFound(dtos)
}

// mapGuildError turns a guild package sentinel error into the
// protocol.ServerError kind spec.md §4.7 assigns it, logging anything it
// doesn't recognize as an internal error.
func (h *Handler) mapGuildError(ctx context.Context, reqType string, err error, op string) protocol.Response {
	switch {
	case errors.Is(err, guild.ErrNotInitialized):
		return protocol.Err(protocol.ErrBadRequest)
	case errors.Is(err, guild.ErrChannelExists):
		return protocol.Err(protocol.ErrBadRequest)
	case errors.Is(err, guild.ErrChannelNotFound):
		return protocol.Err(protocol.ErrBadRequest)
	case errors.Is(err, guild.ErrPermissionDenied):
		return protocol.Err(protocol.ErrPermissionDenied)
	case errors.Is(err, guild.ErrNotMember):
		return protocol.Err(protocol.ErrPermissionDenied)
	default:
		return h.internalError(ctx, reqType, op, err)
	}
}

// loggerFor returns h.Log enriched with whatever fields main.go attached to
// ctx for this connection (spec.md §7: "connection id, request type" on
// every InternalServerError).
func (h *Handler) loggerFor(ctx context.Context) *logrus.Entry {
	entry := h.Log
	if ctxEntry := logging.FromContext(ctx); ctxEntry != nil {
		for field, value := range ctxEntry.Data {
			entry = entry.WithField(field, value)
		}
	}
	return entry
}

func (h *Handler) internalError(ctx context.Context, reqType, op string, err error) protocol.Response {
	h.loggerFor(ctx).WithFields(logrus.Fields{
		"request_type": reqType,
		"op":           op,
	}).WithError(err).Error("internal error handling request")
	return protocol.Err(protocol.ErrInternalServerError)
}
