// ABOUTME: Slash command registration
// ABOUTME: Replaces the guild's command set with the bot's command table

package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Deploy overwrites the guild's application commands. When appID is empty
// the bot's own user id is used.
func (g *Gateway) Deploy(ctx context.Context, appID, guildID string, commands []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	if appID == "" {
		self, err := g.session.User("@me", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("looking up application id: %w", err)
		}
		appID = self.ID
	}

	registered, err := g.session.ApplicationCommandBulkOverwrite(appID, guildID, commands, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("registering commands: %w", err)
	}
	for _, cmd := range registered {
		g.logger.Info("command registered", "name", cmd.Name, "id", cmd.ID, "guild", guildID)
	}
	return registered, nil
}
