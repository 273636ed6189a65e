// ABOUTME: Deletion auditor for the watched log channel
// ABOUTME: Reconciles delete events with the shadow store and DMs the operator a reconstruction

package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/staffbot/internal/metrics"
	"github.com/2389/staffbot/internal/platform"
	"github.com/2389/staffbot/internal/store"
)

// AlertColor is the embed color of deletion alerts.
const AlertColor = 0xFF0000

// AlertTitle heads every deletion alert.
const AlertTitle = "⚠️ Message Deleted in Log Channel"

// Notifier delivers the alert to the operator under the best-effort policy.
type Notifier interface {
	Operator(ctx context.Context, operatorID string, msg *platform.OutgoingMessage) bool
}

// Deduper reports whether a key was already handled. Forget releases a key
// whose handling failed so a redelivery is processed.
type Deduper interface {
	CheckAndMark(key string) bool
	Forget(key string)
}

// Config holds the auditor's fixed targets
type Config struct {
	WatchedChannelID string
	OperatorID       string
}

// Auditor reacts to deletions in the watched channel
type Auditor struct {
	store    store.MessageStore
	client   platform.Client
	notifier Notifier
	seen     Deduper
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Auditor. seen may be nil to disable replay suppression.
func New(st store.MessageStore, client platform.Client, notifier Notifier, seen Deduper, cfg Config, logger *slog.Logger) *Auditor {
	return &Auditor{
		store:    st,
		client:   client,
		notifier: notifier,
		seen:     seen,
		cfg:      cfg,
		logger:   logger.With("component", "audit"),
		now:      time.Now,
	}
}

// HandleDelete audits one deletion. Errors are logged, never returned.
//
// The stored record is evicted once the alert has been handed to the
// notifier, whether or not the DM went through. If the lookup fails no
// alert is sent, nothing is evicted, and a redelivered event is audited.
func (a *Auditor) HandleDelete(ctx context.Context, evt *platform.MessageDelete) {
	if evt.ChannelID != a.cfg.WatchedChannelID {
		return
	}
	key := "delete:" + evt.ID
	if a.seen != nil && a.seen.CheckAndMark(key) {
		a.logger.Debug("ignoring replayed delete event", "message", evt.ID)
		return
	}

	stored, err := a.audit(ctx, evt)
	if err != nil {
		if a.seen != nil {
			a.seen.Forget(key)
		}
		a.logger.Error("handling message deletion", "message", evt.ID, "error", err)
		return
	}
	if stored == nil {
		return
	}

	if _, err := a.store.Delete(ctx, evt.ID); err != nil {
		metrics.StoreErrors.WithLabelValues("delete").Inc()
		a.logger.Error("removing audited message from store", "message", evt.ID, "error", err)
	}
}

// audit sends the alert and returns the stored record it was built from, if any.
func (a *Auditor) audit(ctx context.Context, evt *platform.MessageDelete) (*store.StoredMessage, error) {
	stored, err := a.store.Get(ctx, evt.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		stored = nil
	case err != nil:
		metrics.StoreErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("looking up deleted message: %w", err)
	}

	guildID := evt.GuildID
	if guildID == "" && stored != nil {
		guildID = stored.GuildID
	}
	roles := a.roleNames(ctx, guildID)

	r := Reconstruct(stored, evt.Cached, roles)
	source := "fallback"
	if r.FromStore {
		source = "stored"
	}
	metrics.DeletionAlerts.WithLabelValues(source).Inc()

	deletedAt := a.now()
	alert := &platform.OutgoingMessage{
		Embeds: []*platform.Embed{{
			Title:       AlertTitle,
			Description: AlertText(evt.ChannelID, r, deletedAt),
			Color:       AlertColor,
			Timestamp:   deletedAt.UTC().Format(time.RFC3339),
		}},
	}

	delivered := a.notifier.Operator(ctx, a.cfg.OperatorID, alert)
	a.logger.Info("message deletion audited",
		"message", evt.ID,
		"channel", evt.ChannelID,
		"source", source,
		"delivered", delivered,
	)
	return stored, nil
}

// roleNames loads the guild's current roles. Without them, role references
// are left as raw tokens.
func (a *Auditor) roleNames(ctx context.Context, guildID string) RoleResolver {
	if guildID == "" {
		return nil
	}
	roles, err := a.client.GuildRoles(ctx, guildID)
	if err != nil {
		a.logger.Warn("loading guild roles for mention rewriting", "guild", guildID, "error", err)
		return nil
	}
	return NewRoleNames(roles)
}
