// ABOUTME: Platform-neutral types and the client contract used by the bot core
// ABOUTME: The discord package implements Client; tests use platformtest.Fake

package platform

import (
	"context"
	"errors"
	"slices"
)

// ErrNotFound is returned when a member, role, user or channel does not exist
var ErrNotFound = errors.New("not found")

// User is a platform account
type User struct {
	ID            string
	Username      string
	Discriminator string
	Bot           bool
}

// Tag renders the user the way staff see it in logs ("name#1234").
func (u *User) Tag() string {
	if u == nil {
		return ""
	}
	return Tag(u.Username, u.Discriminator)
}

// Tag joins a username and discriminator. Accounts without a legacy
// discriminator render as "name#0".
func Tag(username, discriminator string) string {
	if discriminator == "" {
		discriminator = "0"
	}
	return username + "#" + discriminator
}

// Member is a user's membership in a guild
type Member struct {
	GuildID string
	User    *User
	Roles   []string
}

// HasRole reports whether the member currently holds roleID.
func (m *Member) HasRole(roleID string) bool {
	return slices.Contains(m.Roles, roleID)
}

// HasAnyRole reports whether roles and allowed share at least one id.
func HasAnyRole(roles, allowed []string) bool {
	for _, r := range roles {
		if slices.Contains(allowed, r) {
			return true
		}
	}
	return false
}

// Role is a guild role
type Role struct {
	ID   string
	Name string
}

// EmbedField is one name/value row of an embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter is the footer line of an embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// EmbedAuthor is the author line of an embed
type EmbedAuthor struct {
	Name string `json:"name"`
}

// Embed is a rich-content block. JSON tags follow the platform's wire format
// so stored embed payloads round-trip without a translation table.
type Embed struct {
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Color       int           `json:"color,omitempty"`
	Fields      []*EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter  `json:"footer,omitempty"`
	Author      *EmbedAuthor  `json:"author,omitempty"`
	Timestamp   string        `json:"timestamp,omitempty"`
}

// Message is a message observed on the platform
type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	Author    *User
	Content   string
	Embeds    []*Embed
}

// MessageDelete describes a deletion. Cached carries whatever the gateway
// still held for the message and is nil when nothing was cached.
type MessageDelete struct {
	ID        string
	ChannelID string
	GuildID   string
	Cached    *Message
}

// OutgoingMessage is a message the bot sends
type OutgoingMessage struct {
	Content string
	Embeds  []*Embed
}

// Client is the subset of platform operations the bot consumes.
type Client interface {
	// Member returns ErrNotFound when userID is not in the guild.
	Member(ctx context.Context, guildID, userID string) (*Member, error)
	// Role returns ErrNotFound when roleID does not exist in the guild.
	Role(ctx context.Context, guildID, roleID string) (*Role, error)
	GuildRoles(ctx context.Context, guildID string) ([]*Role, error)
	AddRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error
	SendDM(ctx context.Context, userID string, msg *OutgoingMessage) error
	SendChannel(ctx context.Context, channelID string, msg *OutgoingMessage) (*Message, error)
}
