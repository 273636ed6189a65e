// ABOUTME: Best-effort notification delivery over DMs, channels and an optional mirror
// ABOUTME: Delivery failures are logged and counted, never returned to the caller

package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/2389/staffbot/internal/metrics"
	"github.com/2389/staffbot/internal/platform"
)

// sendTimeout bounds a single delivery attempt.
const sendTimeout = 15 * time.Second

// Mirror receives a copy of staff-facing alerts on a second platform.
type Mirror interface {
	Mirror(ctx context.Context, msg *platform.OutgoingMessage) error
}

// BestEffort is the delivery policy for every notification: run send, log
// and count a failure, and report whether it went through. The error never
// reaches the actor that triggered the notification.
func BestEffort(ctx context.Context, logger *slog.Logger, sink, target string, send func(ctx context.Context) error) bool {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := send(ctx); err != nil {
		logger.Warn("notification not delivered", "sink", sink, "target", target, "error", err)
		metrics.NotifyFailures.WithLabelValues(sink).Inc()
		return false
	}
	return true
}

// Notifier delivers alerts under the BestEffort policy
type Notifier struct {
	client platform.Client
	mirror Mirror
	logger *slog.Logger
}

// New creates a Notifier. mirror may be nil.
func New(client platform.Client, mirror Mirror, logger *slog.Logger) *Notifier {
	return &Notifier{
		client: client,
		mirror: mirror,
		logger: logger.With("component", "notify"),
	}
}

// DirectMessage DMs userID. Users with DMs closed are expected; the failure is only logged.
func (n *Notifier) DirectMessage(ctx context.Context, userID string, msg *platform.OutgoingMessage) bool {
	return BestEffort(ctx, n.logger, "dm", userID, func(ctx context.Context) error {
		return n.client.SendDM(ctx, userID, msg)
	})
}

// Channel posts msg to a staff channel and mirrors it.
func (n *Notifier) Channel(ctx context.Context, channelID string, msg *platform.OutgoingMessage) bool {
	ok := false
	if channelID != "" {
		ok = BestEffort(ctx, n.logger, "channel", channelID, func(ctx context.Context) error {
			_, err := n.client.SendChannel(ctx, channelID, msg)
			return err
		})
	}
	n.mirrorCopy(ctx, msg)
	return ok
}

// Operator DMs the operator and mirrors the alert.
func (n *Notifier) Operator(ctx context.Context, operatorID string, msg *platform.OutgoingMessage) bool {
	ok := n.DirectMessage(ctx, operatorID, msg)
	n.mirrorCopy(ctx, msg)
	return ok
}

func (n *Notifier) mirrorCopy(ctx context.Context, msg *platform.OutgoingMessage) {
	if n.mirror == nil {
		return
	}
	BestEffort(ctx, n.logger, "mirror", "", func(ctx context.Context) error {
		return n.mirror.Mirror(ctx, msg)
	})
}
