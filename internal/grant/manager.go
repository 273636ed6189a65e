// ABOUTME: Temporary role grants with a deferred, fire-once revocation
// ABOUTME: Validates the issuer and subject, adds the role, and schedules its removal

package grant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/2389/staffbot/internal/metrics"
	"github.com/2389/staffbot/internal/platform"
)

var (
	ErrUnauthorized          = errors.New("issuer is not allowed to grant roles")
	ErrSubjectNotFound       = errors.New("subject is not a member of the guild")
	ErrInvalidPermissionKind = errors.New("invalid permission kind")
	ErrInvalidDuration       = errors.New("duration out of range")
	ErrRoleMisconfigured     = errors.New("mapped role does not exist")
	ErrAlreadyGranted        = errors.New("subject already holds the role")
	ErrPlatformOperation     = errors.New("platform operation failed")
)

// MinDuration is the shortest grant accepted.
const MinDuration = time.Minute

// MaxMinutes is the longest grant accepted, in whole minutes. Anything
// longer does not fit in a time.Duration.
const MaxMinutes = math.MaxInt64 / int64(time.Minute)

// MaxDuration is MaxMinutes as a duration.
const MaxDuration = time.Duration(MaxMinutes) * time.Minute

// expireTimeout bounds the platform calls made when a grant expires.
const expireTimeout = 30 * time.Second

// ExpiredColor is the embed color of expiry notices.
const ExpiredColor = 0xFFA500

// Scheduler runs fn once after delay and returns a ticket id. An empty id
// means the task was refused and fn will never run.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) string
}

// Notifier delivers best-effort notifications.
type Notifier interface {
	DirectMessage(ctx context.Context, userID string, msg *platform.OutgoingMessage) bool
	Channel(ctx context.Context, channelID string, msg *platform.OutgoingMessage) bool
}

// Config holds the guild-specific settings the manager needs
type Config struct {
	GuildID        string
	AllowedRoles   []string        // issuer must hold at least one
	RoleIDs        map[Kind]string // kind -> guild role id
	AlertChannelID string          // receives expiry notices
}

// Request is a validated /give invocation
type Request struct {
	IssuerID    string
	IssuerTag   string
	IssuerRoles []string
	SubjectID   string
	Kind        string
	Duration    time.Duration
}

// Ticket is one in-flight grant. It lives only in memory.
type Ticket struct {
	ID           string
	SubjectID    string
	SubjectTag   string
	Kind         Kind
	RoleID       string
	RoleName     string
	GrantedBy    string
	GrantedByTag string
	GrantedAt    time.Time
	Duration     time.Duration
}

// ExpiresAt is when the revocation is due.
func (t *Ticket) ExpiresAt() time.Time {
	return t.GrantedAt.Add(t.Duration)
}

// Manager grants roles and revokes them when their duration elapses
type Manager struct {
	client    platform.Client
	scheduler Scheduler
	notifier  Notifier
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager creates a Manager.
func NewManager(client platform.Client, scheduler Scheduler, notifier Notifier, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		client:    client,
		scheduler: scheduler,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger.With("component", "grant"),
		now:       time.Now,
	}
}

// RoleID returns the configured role for kind, or "" when unmapped.
func (m *Manager) RoleID(kind Kind) string {
	return m.cfg.RoleIDs[kind]
}

// Grant validates req, adds the role and schedules its removal.
//
// Checks run in order: issuer authorization, subject membership, permission
// kind and role mapping, duration, then whether the role is already held.
// The first failure is returned and nothing is mutated.
func (m *Manager) Grant(ctx context.Context, req Request) (*Ticket, error) {
	t, err := m.grant(ctx, req)
	result := "granted"
	if err != nil {
		result = resultLabel(err)
	}
	metrics.Grants.WithLabelValues(req.Kind, result).Inc()
	return t, err
}

func (m *Manager) grant(ctx context.Context, req Request) (*Ticket, error) {
	if !platform.HasAnyRole(req.IssuerRoles, m.cfg.AllowedRoles) {
		return nil, ErrUnauthorized
	}

	member, err := m.client.Member(ctx, m.cfg.GuildID, req.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubjectNotFound, err)
	}

	kind, err := ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	roleID := m.cfg.RoleIDs[kind]
	if roleID == "" {
		return nil, fmt.Errorf("%w: no role configured for %s", ErrRoleMisconfigured, kind)
	}
	role, err := m.client.Role(ctx, m.cfg.GuildID, roleID)
	if err != nil {
		return nil, fmt.Errorf("%w: role %s (%s): %w", ErrRoleMisconfigured, roleID, kind.DisplayName(), err)
	}

	if req.Duration < MinDuration || req.Duration > MaxDuration {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidDuration, req.Duration)
	}

	if member.HasRole(roleID) {
		return nil, ErrAlreadyGranted
	}

	minutes := int(req.Duration / time.Minute)
	reason := fmt.Sprintf("Given by %s for %d minutes.", req.IssuerTag, minutes)
	if err := m.client.AddRole(ctx, m.cfg.GuildID, req.SubjectID, roleID, reason); err != nil {
		return nil, fmt.Errorf("%w: adding role: %w", ErrPlatformOperation, err)
	}

	t := &Ticket{
		SubjectID:    req.SubjectID,
		SubjectTag:   member.User.Tag(),
		Kind:         kind,
		RoleID:       roleID,
		RoleName:     role.Name,
		GrantedBy:    req.IssuerID,
		GrantedByTag: req.IssuerTag,
		GrantedAt:    m.now(),
		Duration:     req.Duration,
	}
	t.ID = m.scheduler.Schedule(req.Duration, func() { m.expire(t) })
	if t.ID == "" {
		m.rollback(ctx, t)
		return nil, fmt.Errorf("%w: revocation could not be scheduled", ErrPlatformOperation)
	}
	metrics.PendingGrants.Inc()

	m.logger.Info("role granted",
		"ticket", t.ID,
		"subject", t.SubjectID,
		"kind", t.Kind,
		"role", t.RoleID,
		"issuer", t.GrantedBy,
		"expires_at", t.ExpiresAt(),
	)
	return t, nil
}

// rollback takes back a role whose revocation was never scheduled, so it
// cannot outlive the grant.
func (m *Manager) rollback(ctx context.Context, t *Ticket) {
	reason := fmt.Sprintf("Grant by %s could not be scheduled for expiry.", t.GrantedByTag)
	if err := m.client.RemoveRole(ctx, m.cfg.GuildID, t.SubjectID, t.RoleID, reason); err != nil {
		m.logger.Error("rolling back unscheduled grant, role stays until removed by hand",
			"subject", t.SubjectID, "role", t.RoleID, "error", err)
		return
	}
	m.logger.Warn("grant rolled back, scheduler refused the revocation", "subject", t.SubjectID, "role", t.RoleID)
}

// Abandon accounts for n pending grants dropped at shutdown. Their roles
// stay on the subjects.
func (m *Manager) Abandon(n int) {
	if n <= 0 {
		return
	}
	metrics.PendingGrants.Sub(float64(n))
	m.logger.Warn("pending grants abandoned, roles will not be revoked", "count", n)
}

// expire removes the role if the subject still holds it, then notifies the
// subject and the staff channel. Each notification is attempted on its own.
func (m *Manager) expire(t *Ticket) {
	metrics.PendingGrants.Dec()

	ctx, cancel := context.WithTimeout(context.Background(), expireTimeout)
	defer cancel()

	logger := m.logger.With("ticket", t.ID, "subject", t.SubjectID, "role", t.RoleID)

	member, err := m.client.Member(ctx, m.cfg.GuildID, t.SubjectID)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			logger.Info("subject left the guild before expiry")
			metrics.Revocations.WithLabelValues(string(t.Kind), "already_removed").Inc()
			return
		}
		logger.Error("checking member at expiry", "error", err)
		metrics.Revocations.WithLabelValues(string(t.Kind), "failed").Inc()
		return
	}
	if !member.HasRole(t.RoleID) {
		logger.Debug("role already removed, nothing to expire")
		metrics.Revocations.WithLabelValues(string(t.Kind), "already_removed").Inc()
		return
	}

	reason := fmt.Sprintf("Time expired for %s given by %s.", t.RoleName, t.GrantedByTag)
	if err := m.client.RemoveRole(ctx, m.cfg.GuildID, t.SubjectID, t.RoleID, reason); err != nil {
		logger.Error("removing expired role", "error", err)
		metrics.Revocations.WithLabelValues(string(t.Kind), "failed").Inc()
		return
	}
	metrics.Revocations.WithLabelValues(string(t.Kind), "removed").Inc()
	logger.Info("expired role removed")

	notice := ExpiredNotice(t, m.now())
	m.notifier.DirectMessage(ctx, t.SubjectID, notice)
	m.notifier.Channel(ctx, m.cfg.AlertChannelID, notice)
}

// ExpiredNotice is the embed sent to the subject and the staff channel.
func ExpiredNotice(t *Ticket, at time.Time) *platform.OutgoingMessage {
	return &platform.OutgoingMessage{
		Embeds: []*platform.Embed{{
			Title:       "⏳ Role Expired",
			Description: fmt.Sprintf("The **%s** role has been automatically removed from %s.", t.RoleName, t.SubjectTag),
			Color:       ExpiredColor,
			Timestamp:   at.UTC().Format(time.RFC3339),
		}},
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrSubjectNotFound):
		return "subject_not_found"
	case errors.Is(err, ErrInvalidPermissionKind):
		return "invalid_kind"
	case errors.Is(err, ErrRoleMisconfigured):
		return "role_misconfigured"
	case errors.Is(err, ErrInvalidDuration):
		return "invalid_duration"
	case errors.Is(err, ErrAlreadyGranted):
		return "already_granted"
	case errors.Is(err, ErrPlatformOperation):
		return "platform_error"
	default:
		return "error"
	}
}
