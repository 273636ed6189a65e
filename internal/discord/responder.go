// ABOUTME: Interaction replies for slash commands
// ABOUTME: The first reply answers the interaction, later ones become follow-ups

package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/staffbot/internal/platform"
)

type responder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction

	mu       sync.Mutex
	answered bool
}

func newResponder(s *discordgo.Session, i *discordgo.Interaction) *responder {
	return &responder{session: s, interaction: i}
}

func (r *responder) Respond(ctx context.Context, resp *platform.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var flags discordgo.MessageFlags
	if resp.Ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	embeds := fromEmbeds(resp.Embeds)

	if !r.answered {
		err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: resp.Content,
				Embeds:  embeds,
				Flags:   flags,
			},
		}, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("responding to interaction: %w", err)
		}
		r.answered = true
		return nil
	}

	_, err := r.session.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
		Content: resp.Content,
		Embeds:  embeds,
		Flags:   flags,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sending follow-up: %w", err)
	}
	return nil
}

var _ platform.Responder = (*responder)(nil)
