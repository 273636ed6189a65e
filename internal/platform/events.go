// ABOUTME: Inbound event shapes and the handler contract the gateway dispatches to
// ABOUTME: Slash command invocations arrive as Invocation with a Responder for replies

package platform

import "context"

// Invocation is a slash command call. Options hold *User for user options,
// string for string options and int64 for integer options.
type Invocation struct {
	ID          string
	Command     string
	GuildID     string
	ChannelID   string
	User        *User
	MemberRoles []string
	Options     map[string]any
}

// Response is a reply to an invocation. Ephemeral replies are visible only
// to the invoking user.
type Response struct {
	Content   string
	Embeds    []*Embed
	Ephemeral bool
}

// Responder replies to one invocation. The first call answers the
// interaction; later calls are sent as follow-ups.
type Responder interface {
	Respond(ctx context.Context, resp *Response) error
}

// EventHandler receives platform events in arrival order. Each call may run
// on its own goroutine.
type EventHandler interface {
	OnReady(ctx context.Context, self *User)
	OnMessageCreate(ctx context.Context, msg *Message)
	OnMessageUpdate(ctx context.Context, msg *Message)
	OnMessageDelete(ctx context.Context, evt *MessageDelete)
	OnCommand(ctx context.Context, inv *Invocation, r Responder)
}
