// ABOUTME: discordgo-backed implementation of platform.Client
// ABOUTME: Maps 404 responses to platform.ErrNotFound and forwards audit log reasons

package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/staffbot/internal/platform"
)

// Client implements platform.Client on top of a discordgo session
type Client struct {
	session *discordgo.Session
}

// NewClient wraps an existing session.
func NewClient(s *discordgo.Session) *Client {
	return &Client{session: s}
}

// isNotFound reports whether err is a REST 404.
func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}

func (c *Client) Member(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, platform.ErrNotFound
		}
		return nil, fmt.Errorf("fetching member %s: %w", userID, err)
	}
	return toMember(guildID, m), nil
}

// Role checks the state cache first and falls back to the guild role list.
func (c *Client) Role(ctx context.Context, guildID, roleID string) (*platform.Role, error) {
	if c.session.State != nil {
		if r, err := c.session.State.Role(guildID, roleID); err == nil {
			return toRole(r), nil
		}
	}

	roles, err := c.GuildRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.ID == roleID {
			return r, nil
		}
	}
	return nil, platform.ErrNotFound
}

func (c *Client) GuildRoles(ctx context.Context, guildID string) ([]*platform.Role, error) {
	roles, err := c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("listing roles of guild %s: %w", guildID, err)
	}
	out := make([]*platform.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRole(r))
	}
	return out, nil
}

func (c *Client) AddRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	err := c.session.GuildMemberRoleAdd(guildID, userID, roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("adding role %s to %s: %w", roleID, userID, err)
	}
	return nil
}

func (c *Client) RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	err := c.session.GuildMemberRoleRemove(guildID, userID, roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("removing role %s from %s: %w", roleID, userID, err)
	}
	return nil
}

func (c *Client) SendDM(ctx context.Context, userID string, msg *platform.OutgoingMessage) error {
	ch, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("opening DM channel with %s: %w", userID, err)
	}
	if _, err := c.session.ChannelMessageSendComplex(ch.ID, toMessageSend(msg), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("sending DM to %s: %w", userID, err)
	}
	return nil
}

func (c *Client) SendChannel(ctx context.Context, channelID string, msg *platform.OutgoingMessage) (*platform.Message, error) {
	sent, err := c.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("sending to channel %s: %w", channelID, err)
	}
	return toMessage(sent), nil
}

var _ platform.Client = (*Client)(nil)
