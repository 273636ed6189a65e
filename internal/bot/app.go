// ABOUTME: Application context that receives platform events and routes them
// ABOUTME: Owns the command table, the shadow store writes and sweeper startup

package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/staffbot/internal/grant"
	"github.com/2389/staffbot/internal/metrics"
	"github.com/2389/staffbot/internal/platform"
	"github.com/2389/staffbot/internal/store"
)

// Granter issues temporary role grants.
type Granter interface {
	Grant(ctx context.Context, req grant.Request) (*grant.Ticket, error)
	RoleID(kind grant.Kind) string
}

// DeletionAuditor handles deletions in the watched channel.
type DeletionAuditor interface {
	HandleDelete(ctx context.Context, evt *platform.MessageDelete)
}

// BackgroundRunner runs until ctx is done.
type BackgroundRunner interface {
	Run(ctx context.Context)
}

// Config holds the settings the event router needs
type Config struct {
	WatchedChannelID string
}

// Deps are the collaborators an App dispatches to
type Deps struct {
	Store   store.MessageStore
	Grants  Granter
	Auditor DeletionAuditor
	Sweeper BackgroundRunner // optional
}

// App implements platform.EventHandler
type App struct {
	store    store.MessageStore
	grants   Granter
	auditor  DeletionAuditor
	sweeper  BackgroundRunner
	cfg      Config
	commands map[string]commandHandler
	logger   *slog.Logger
	now      func() time.Time

	readyOnce sync.Once
	self      *platform.User
	selfMu    sync.RWMutex
}

// New creates an App. The command table is fixed at construction.
func New(deps Deps, cfg Config, logger *slog.Logger) *App {
	a := &App{
		store:   deps.Store,
		grants:  deps.Grants,
		auditor: deps.Auditor,
		sweeper: deps.Sweeper,
		cfg:     cfg,
		logger:  logger.With("component", "bot"),
		now:     time.Now,
	}
	a.commands = map[string]commandHandler{
		GiveCommandName: a.handleGive,
	}
	return a
}

// OnReady records the bot's identity and starts the retention sweeper the
// first time the gateway becomes ready.
func (a *App) OnReady(ctx context.Context, self *platform.User) {
	a.selfMu.Lock()
	a.self = self
	a.selfMu.Unlock()

	a.readyOnce.Do(func() {
		a.logger.Info("bot ready", "user", self.Tag())
		if a.sweeper != nil {
			go a.sweeper.Run(ctx)
		}
	})
}

// Self returns the bot user once ready.
func (a *App) Self() *platform.User {
	a.selfMu.RLock()
	defer a.selfMu.RUnlock()
	return a.self
}

// OnMessageCreate shadow-stores messages in the watched channel and every
// bot-authored message.
func (a *App) OnMessageCreate(ctx context.Context, msg *platform.Message) {
	fromBot := msg.Author != nil && msg.Author.Bot
	if msg.ChannelID != a.cfg.WatchedChannelID && !fromBot {
		return
	}
	a.storeMessage(ctx, msg, "create")
}

// OnMessageUpdate replaces the stored copy of an edited watched-channel message.
func (a *App) OnMessageUpdate(ctx context.Context, msg *platform.Message) {
	if msg.ChannelID != a.cfg.WatchedChannelID {
		return
	}

	sm, err := store.FromMessage(msg, a.now())
	if err != nil {
		a.logger.Error("capturing edited message", "message", msg.ID, "error", err)
		return
	}

	// Partial updates can omit the author; keep what the first capture saw.
	if sm.AuthorID == "" || sm.GuildID == "" {
		if prev, err := a.store.Get(ctx, msg.ID); err == nil {
			if sm.AuthorID == "" {
				sm.AuthorID, sm.AuthorTag = prev.AuthorID, prev.AuthorTag
			}
			if sm.GuildID == "" {
				sm.GuildID = prev.GuildID
			}
		}
	}
	a.put(ctx, sm, "update")
}

// OnMessageDelete forwards to the auditor.
func (a *App) OnMessageDelete(ctx context.Context, evt *platform.MessageDelete) {
	a.auditor.HandleDelete(ctx, evt)
}

func (a *App) storeMessage(ctx context.Context, msg *platform.Message, event string) {
	sm, err := store.FromMessage(msg, a.now())
	if err != nil {
		a.logger.Error("capturing message", "message", msg.ID, "event", event, "error", err)
		return
	}
	a.put(ctx, sm, event)
}

func (a *App) put(ctx context.Context, sm *store.StoredMessage, event string) {
	if err := a.store.Put(ctx, sm); err != nil {
		metrics.StoreErrors.WithLabelValues("put").Inc()
		a.logger.Error("storing message", "message", sm.ID, "event", event, "error", err)
		return
	}
	metrics.MessagesStored.Inc()
	a.logger.Debug("message stored", "message", sm.ID, "channel", sm.ChannelID, "event", event)
}

var _ platform.EventHandler = (*App)(nil)
