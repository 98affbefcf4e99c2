package protocol

import "encoding/json"

// RequestType tags the variant carried by a Request's Body.
type RequestType string

const (
	TypePing          RequestType = "Ping"
	TypeSignUp        RequestType = "SignUp"
	TypeSignIn        RequestType = "SignIn"
	TypeSignOut       RequestType = "SignOut"
	TypeNewServer     RequestType = "NewServer"
	TypeDeleteServer  RequestType = "DeleteServer"
	TypeNewChannel    RequestType = "NewChannel"
	TypeDeleteChannel RequestType = "DeleteChannel"
	TypeGetChannels   RequestType = "GetChannels"
	TypeSendMessage   RequestType = "SendMessage"
	TypeGetMessages   RequestType = "GetMessages"
)

// ResponseType tags the variant carried by a Response's Body.
type ResponseType string

const (
	TypePong           ResponseType = "Pong"
	TypeError          ResponseType = "Error"
	TypeSessionCreated ResponseType = "SessionCreated"
	TypeServerCreated  ResponseType = "ServerCreated"
	TypeChannelList    ResponseType = "ChannelList"
	TypeMessagesFound  ResponseType = "MessagesFound"
	TypeEndOfChannel   ResponseType = "EndOfChannel"
	TypeSuccess        ResponseType = "Success"
)

// ServerError is the error taxonomy surfaced to clients (spec.md §7).
type ServerError string

const (
	ErrInternalServerError ServerError = "InternalServerError"
	ErrPermissionDenied    ServerError = "PermissionDenied"
	ErrSessionExpired      ServerError = "SessionExpired"
	ErrInvalidCredentials  ServerError = "InvalidCredentials"
	ErrBadRequest          ServerError = "BadRequest"
)

// Body is a tagged JSON union: a type tag plus its variant-specific payload.
// This generalizes the teacher's protocol.Packet{Type, Payload} shape to
// carry both request and response variants.
type Body struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewBody marshals payload (which may be nil for unit variants) into a Body.
func NewBody(tag string, payload any) (Body, error) {
	if payload == nil {
		return Body{Type: tag}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Body{}, err
	}
	return Body{Type: tag, Payload: raw}, nil
}

// Decode unmarshals b's payload into out.
func (b Body) Decode(out any) error {
	if len(b.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(b.Payload, out)
}

// Request is the wire envelope for every client → server message
// (spec.md §6): a tagged variant plus an optional session cookie.
type Request struct {
	Tp            Body    `json:"tp"`
	SessionCookie *Cookie `json:"session_cookie"`
}

// Response is the wire envelope for every server → client message.
type Response struct {
	Body
}

// ---------------------------------------------------------------------------
// Request payloads
// ---------------------------------------------------------------------------

// SignUpPayload carries credentials for account creation.
type SignUpPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignInPayload carries credentials plus the claimed user id for sign-in.
type SignInPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	ID       string `json:"id"`
}

// NewServerPayload names the guild to create.
type NewServerPayload struct {
	Name string `json:"name"`
}

// DeleteServerPayload names the guild to delete.
type DeleteServerPayload struct {
	ID string `json:"id"`
}

// NewChannelPayload names the channel to create within a guild.
type NewChannelPayload struct {
	GuildID string `json:"guild_id"`
	Name    string `json:"name"`
}

// DeleteChannelPayload names the channel to delete within a guild.
type DeleteChannelPayload struct {
	GuildID string `json:"guild_id"`
	Name    string `json:"name"`
}

// GetChannelsPayload names the guild whose channels should be listed.
type GetChannelsPayload struct {
	GuildID string `json:"guild_id"`
}

// SendMessagePayload carries the content of a new channel message.
type SendMessagePayload struct {
	GuildID     string `json:"guild_id"`
	ChannelName string `json:"channel_name"`
	Content     string `json:"content"`
}

// GetMessagesPayload requests one block of a channel's history.
type GetMessagesPayload struct {
	GuildID     string `json:"guild_id"`
	ChannelName string `json:"channel_name"`
	BlockIndex  uint32 `json:"block_index"`
}

// ---------------------------------------------------------------------------
// Response payloads
// ---------------------------------------------------------------------------

// SessionCreatedPayload carries the new session cookie (== user id).
type SessionCreatedPayload struct {
	ID string `json:"id"`
}

// ServerCreatedPayload carries the id of a newly created guild.
type ServerCreatedPayload struct {
	ID string `json:"id"`
}

// ChannelListPayload carries channel names within a guild.
type ChannelListPayload struct {
	Channels []string `json:"channels"`
}

// MessageDTO is one message as returned to clients.
type MessageDTO struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

// MessagesFoundPayload carries one block's messages in insertion order.
type MessagesFoundPayload struct {
	Messages []MessageDTO `json:"messages"`
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewRequest builds a Request for tag with the given payload and cookie.
func NewRequest(tag RequestType, payload any, cookie *Cookie) (Request, error) {
	body, err := NewBody(string(tag), payload)
	if err != nil {
		return Request{}, err
	}
	return Request{Tp: body, SessionCookie: cookie}, nil
}

func newResponse(tag ResponseType, payload any) Response {
	body, err := NewBody(string(tag), payload)
	if err != nil {
		// Every response payload type above marshals unconditionally;
		// a failure here means a programmer error in a new payload type.
		panic("protocol: response payload does not marshal: " + err.Error())
	}
	return Response{Body: body}
}

// Pong builds a Response{Pong(text)}.
func Pong(text string) Response { return newResponse(TypePong, text) }

// Success builds a Response{Success}.
func Success() Response { return newResponse(TypeSuccess, nil) }

// EndOfChannel builds a Response{EndOfChannel}.
func EndOfChannel() Response { return newResponse(TypeEndOfChannel, nil) }

// Err builds a Response{Error(kind)}.
func Err(kind ServerError) Response { return newResponse(TypeError, kind) }

// SessionCreated builds a Response{SessionCreated(id)}.
func SessionCreated(id string) Response {
	return newResponse(TypeSessionCreated, SessionCreatedPayload{ID: id})
}

// ServerCreated builds a Response{ServerCreated(id)}.
func ServerCreated(id string) Response {
	return newResponse(TypeServerCreated, ServerCreatedPayload{ID: id})
}

// ChannelList builds a Response{ChannelList(names)}.
func ChannelList(names []string) Response {
	return newResponse(TypeChannelList, ChannelListPayload{Channels: names})
}

// MessagesFound builds a Response{MessagesFound(messages)}.
func MessagesFound(messages []MessageDTO) Response {
	return newResponse(TypeMessagesFound, MessagesFoundPayload{Messages: messages})
}
