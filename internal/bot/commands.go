// ABOUTME: Slash command dispatch with panic recovery and timing
// ABOUTME: Unknown commands are logged and ignored

package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/staffbot/internal/metrics"
	"github.com/2389/staffbot/internal/platform"
)

// GenericFailure is shown when a command fails unexpectedly.
const GenericFailure = "There was an error while executing this command!"

type commandHandler func(ctx context.Context, inv *platform.Invocation, r platform.Responder) error

// Commands returns the schema of every command the bot serves, for registration.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{GiveCommand()}
}

// OnCommand runs the handler for inv. Handler errors and panics are logged
// and answered with GenericFailure.
func (a *App) OnCommand(ctx context.Context, inv *platform.Invocation, r platform.Responder) {
	handler, ok := a.commands[inv.Command]
	if !ok {
		a.logger.Warn("unknown command", "command", inv.Command, "interaction", inv.ID)
		return
	}

	start := time.Now()
	defer func() {
		metrics.CommandDuration.WithLabelValues(inv.Command).Observe(time.Since(start).Seconds())
	}()

	if err := a.runCommand(ctx, handler, inv, r); err != nil {
		a.logger.Error("command failed",
			"command", inv.Command,
			"interaction", inv.ID,
			"user", inv.User.Tag(),
			"error", err,
		)
		if rerr := r.Respond(ctx, &platform.Response{Content: GenericFailure, Ephemeral: true}); rerr != nil {
			a.logger.Warn("sending failure reply", "command", inv.Command, "error", rerr)
		}
	}
}

func (a *App) runCommand(ctx context.Context, h commandHandler, inv *platform.Invocation, r platform.Responder) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()
	return h(ctx, inv, r)
}
