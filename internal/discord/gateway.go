// ABOUTME: Gateway session lifecycle and event dispatch
// ABOUTME: Translates discordgo events into platform.EventHandler calls

package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/staffbot/internal/platform"
)

// Intents the bot needs: guild and member data, message content for the
// shadow store, and DMs.
const Intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMembers |
	discordgo.IntentGuildMessages |
	discordgo.IntentMessageContent |
	discordgo.IntentDirectMessages

// stateMessageCount is how many messages per channel discordgo keeps so
// that delete events carry the message they removed.
const stateMessageCount = 200

// Gateway owns the discordgo session
type Gateway struct {
	session *discordgo.Session
	logger  *slog.Logger

	mu      sync.RWMutex
	ctx     context.Context
	removes []func()
	closed  bool
}

// New creates a session for the given bot token. It does not connect.
func New(token string, logger *slog.Logger) (*Gateway, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.State.MaxMessageCount = stateMessageCount
	s.StateEnabled = true

	return &Gateway{
		session: s,
		logger:  logger.With("component", "discord"),
		ctx:     context.Background(),
	}, nil
}

// Session exposes the underlying session.
func (g *Gateway) Session() *discordgo.Session {
	return g.session
}

// Client returns a platform.Client backed by this session.
func (g *Gateway) Client() *Client {
	return NewClient(g.session)
}

// eventContext is the context handed to event handlers; it is cancelled
// when Run's context is.
func (g *Gateway) eventContext() context.Context {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ctx
}

// Register wires h to the session's event stream. Call before Run.
func (g *Gateway) Register(h platform.EventHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.removes = append(g.removes,
		g.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
			g.logger.Info("gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
			h.OnReady(g.eventContext(), toUser(r.User))
		}),
		g.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			h.OnMessageCreate(g.eventContext(), toMessage(m.Message))
		}),
		g.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageUpdate) {
			h.OnMessageUpdate(g.eventContext(), toMessage(m.Message))
		}),
		g.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageDelete) {
			h.OnMessageDelete(g.eventContext(), toMessageDelete(m))
		}),
		g.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			inv := toInvocation(i.Interaction)
			if inv == nil {
				return
			}
			h.OnCommand(g.eventContext(), inv, newResponder(s, i.Interaction))
		}),
	)
}

// Run connects and blocks until ctx is done. The session stays open; call
// Close once dependent resources are released.
func (g *Gateway) Run(ctx context.Context) error {
	g.mu.Lock()
	g.ctx = ctx
	g.mu.Unlock()

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	g.logger.Info("gateway connected")

	<-ctx.Done()
	return nil
}

// Close disconnects the session. It is safe to call more than once.
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	removes := g.removes
	g.removes = nil
	g.mu.Unlock()

	for _, remove := range removes {
		remove()
	}
	if err := g.session.Close(); err != nil {
		return fmt.Errorf("closing discord session: %w", err)
	}
	g.logger.Info("gateway disconnected")
	return nil
}
