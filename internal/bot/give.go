// ABOUTME: The /give command: schema, typed arguments and reply rendering
// ABOUTME: Maps grant errors to the ephemeral messages staff see

package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/staffbot/internal/grant"
	"github.com/2389/staffbot/internal/platform"
)

// GiveCommandName is the slash command name.
const GiveCommandName = "give"

// GrantedColor is the embed color of the success reply.
const GrantedColor = 0x09a2df

const (
	optTarget   = "target"
	optRoleType = "role_type"
	optTime     = "time"
)

// ErrBadArguments means the platform delivered options that do not match the schema.
var ErrBadArguments = errors.New("malformed command arguments")

// GiveCommand is the registration schema for /give.
func GiveCommand() *discordgo.ApplicationCommand {
	minMinutes := 1.0
	maxMinutes := float64(grant.MaxMinutes)

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(grant.Kinds()))
	for _, k := range grant.Kinds() {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: k.DisplayName(), Value: string(k)})
	}

	return &discordgo.ApplicationCommand{
		Name:        GiveCommandName,
		Description: "Gives a user a temporary role.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        optTarget,
				Description: "The user to give the role to.",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optRoleType,
				Description: "The type of car permissions to grant.",
				Required:    true,
				Choices:     choices,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        optTime,
				Description: "Duration for the role (in minutes).",
				Required:    true,
				MinValue:    &minMinutes,
				MaxValue:    maxMinutes,
			},
		},
	}
}

// GiveArgs are the parsed /give options
type GiveArgs struct {
	Target  *platform.User
	Kind    string // validated by the grant manager
	Minutes int64
}

// Duration converts Minutes, saturating instead of wrapping when the value
// does not fit. A saturated result is always out of the grantable range.
func (g GiveArgs) Duration() time.Duration {
	switch {
	case g.Minutes > grant.MaxMinutes:
		return time.Duration(math.MaxInt64)
	case g.Minutes < -grant.MaxMinutes:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(g.Minutes) * time.Minute
}

// ParseGiveArgs extracts typed arguments from the invocation options.
func ParseGiveArgs(opts map[string]any) (GiveArgs, error) {
	var args GiveArgs
	var ok bool

	if args.Target, ok = opts[optTarget].(*platform.User); !ok || args.Target == nil || args.Target.ID == "" {
		return GiveArgs{}, fmt.Errorf("%w: %s must be a user", ErrBadArguments, optTarget)
	}
	if args.Kind, ok = opts[optRoleType].(string); !ok {
		return GiveArgs{}, fmt.Errorf("%w: %s must be a string", ErrBadArguments, optRoleType)
	}
	if args.Minutes, ok = opts[optTime].(int64); !ok {
		return GiveArgs{}, fmt.Errorf("%w: %s must be an integer", ErrBadArguments, optTime)
	}
	return args, nil
}

func (a *App) handleGive(ctx context.Context, inv *platform.Invocation, r platform.Responder) error {
	args, err := ParseGiveArgs(inv.Options)
	if err != nil {
		return err
	}

	ticket, err := a.grants.Grant(ctx, grant.Request{
		IssuerID:    inv.User.ID,
		IssuerTag:   inv.User.Tag(),
		IssuerRoles: inv.MemberRoles,
		SubjectID:   args.Target.ID,
		Kind:        args.Kind,
		Duration:    args.Duration(),
	})
	if err != nil {
		resp, ok := a.grantFailure(err, args)
		if !ok {
			return err
		}
		a.logger.Info("grant rejected",
			"issuer", inv.User.ID,
			"subject", args.Target.ID,
			"kind", args.Kind,
			"reason", err,
		)
		return r.Respond(ctx, resp)
	}

	return r.Respond(ctx, grantedReply(inv.User, args, ticket))
}

// grantFailure renders the reply for a rejected grant. ok is false for
// errors that should surface as a generic failure.
func (a *App) grantFailure(err error, args GiveArgs) (*platform.Response, bool) {
	ephemeral := func(text string) (*platform.Response, bool) {
		return &platform.Response{Content: "❌ " + text, Ephemeral: true}, true
	}

	kind := grant.Kind(args.Kind)
	switch {
	case errors.Is(err, grant.ErrUnauthorized):
		return ephemeral("You do not have permission to use this command.")
	case errors.Is(err, grant.ErrSubjectNotFound):
		return ephemeral(fmt.Sprintf("Could not find %s in this server.", args.Target.Tag()))
	case errors.Is(err, grant.ErrInvalidPermissionKind):
		return ephemeral("Invalid role type specified.")
	case errors.Is(err, grant.ErrRoleMisconfigured):
		return ephemeral(fmt.Sprintf("Role with ID %s (%s) not found. Please check your config.", a.grants.RoleID(kind), kind.DisplayName()))
	case errors.Is(err, grant.ErrInvalidDuration) && args.Minutes > grant.MaxMinutes:
		return ephemeral(fmt.Sprintf("Duration must be at most %d minutes.", grant.MaxMinutes))
	case errors.Is(err, grant.ErrInvalidDuration):
		return ephemeral(fmt.Sprintf("Duration must be at least %d minute.", int(grant.MinDuration/time.Minute)))
	case errors.Is(err, grant.ErrAlreadyGranted):
		return ephemeral(fmt.Sprintf("%s already has the %s role.", args.Target.Tag(), kind.DisplayName()))
	case errors.Is(err, grant.ErrPlatformOperation):
		return &platform.Response{
			Embeds: []*platform.Embed{{
				Title:       "❌ Error",
				Description: "There was an error granting the role. Please check my permissions or try again.",
				Color:       0xFF0000,
			}},
			Ephemeral: true,
		}, true
	default:
		return nil, false
	}
}

func grantedReply(issuer *platform.User, args GiveArgs, t *grant.Ticket) *platform.Response {
	return &platform.Response{
		Embeds: []*platform.Embed{{
			Title: "✅ Role Granted",
			Description: fmt.Sprintf("<@%s> has granted %s to <@%s>, the permission expires after %d minutes.",
				issuer.ID, t.Kind, t.SubjectID, args.Minutes),
			Color:     GrantedColor,
			Footer:    &platform.EmbedFooter{Text: "Given by " + issuer.Tag()},
			Timestamp: t.GrantedAt.UTC().Format(time.RFC3339),
		}},
	}
}
