// ABOUTME: Conversions between discordgo types and the platform-neutral model
// ABOUTME: Also flattens slash command options into typed Invocation values

package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/2389/staffbot/internal/platform"
)

func toUser(u *discordgo.User) *platform.User {
	if u == nil {
		return nil
	}
	return &platform.User{
		ID:            u.ID,
		Username:      u.Username,
		Discriminator: u.Discriminator,
		Bot:           u.Bot,
	}
}

func toMember(guildID string, m *discordgo.Member) *platform.Member {
	if m == nil {
		return nil
	}
	return &platform.Member{
		GuildID: guildID,
		User:    toUser(m.User),
		Roles:   m.Roles,
	}
}

func toRole(r *discordgo.Role) *platform.Role {
	return &platform.Role{ID: r.ID, Name: r.Name}
}

func toEmbed(e *discordgo.MessageEmbed) *platform.Embed {
	if e == nil {
		return nil
	}
	out := &platform.Embed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
		Timestamp:   e.Timestamp,
	}
	for _, f := range e.Fields {
		if f == nil {
			continue
		}
		out.Fields = append(out.Fields, &platform.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != nil {
		out.Footer = &platform.EmbedFooter{Text: e.Footer.Text}
	}
	if e.Author != nil {
		out.Author = &platform.EmbedAuthor{Name: e.Author.Name}
	}
	return out
}

func fromEmbed(e *platform.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
		Timestamp:   e.Timestamp,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != nil {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer.Text}
	}
	if e.Author != nil {
		out.Author = &discordgo.MessageEmbedAuthor{Name: e.Author.Name}
	}
	return out
}

func fromEmbeds(embeds []*platform.Embed) []*discordgo.MessageEmbed {
	if len(embeds) == 0 {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		if e != nil {
			out = append(out, fromEmbed(e))
		}
	}
	return out
}

func toMessage(m *discordgo.Message) *platform.Message {
	if m == nil {
		return nil
	}
	out := &platform.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Author:    toUser(m.Author),
		Content:   m.Content,
	}
	for _, e := range m.Embeds {
		if e != nil {
			out.Embeds = append(out.Embeds, toEmbed(e))
		}
	}
	return out
}

func toMessageDelete(evt *discordgo.MessageDelete) *platform.MessageDelete {
	out := &platform.MessageDelete{
		ID:        evt.ID,
		ChannelID: evt.ChannelID,
		GuildID:   evt.GuildID,
	}
	if evt.BeforeDelete != nil {
		out.Cached = toMessage(evt.BeforeDelete)
	}
	return out
}

// toInvocation flattens an application command interaction. It returns nil
// for any other interaction type.
func toInvocation(i *discordgo.Interaction) *platform.Invocation {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	data := i.ApplicationCommandData()

	inv := &platform.Invocation{
		ID:        i.ID,
		Command:   data.Name,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Options:   make(map[string]any, len(data.Options)),
	}
	if i.Member != nil {
		inv.User = toUser(i.Member.User)
		inv.MemberRoles = i.Member.Roles
	} else {
		inv.User = toUser(i.User)
	}

	for _, opt := range data.Options {
		if opt == nil {
			continue
		}
		switch opt.Type {
		case discordgo.ApplicationCommandOptionUser:
			id, _ := opt.Value.(string)
			u := &platform.User{ID: id}
			if data.Resolved != nil {
				if ru, ok := data.Resolved.Users[id]; ok {
					u = toUser(ru)
				}
			}
			inv.Options[opt.Name] = u
		case discordgo.ApplicationCommandOptionString:
			inv.Options[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			inv.Options[opt.Name] = opt.IntValue()
		case discordgo.ApplicationCommandOptionBoolean:
			inv.Options[opt.Name] = opt.BoolValue()
		default:
			inv.Options[opt.Name] = opt.Value
		}
	}
	return inv
}

func toMessageSend(msg *platform.OutgoingMessage) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: msg.Content,
		Embeds:  fromEmbeds(msg.Embeds),
	}
}
