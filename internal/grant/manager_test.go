// ABOUTME: Tests for temporary role grants and their deferred revocation
// ABOUTME: Uses a manual scheduler so expiry runs deterministically

package grant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/staffbot/internal/metrics"
	"github.com/2389/staffbot/internal/notify"
	"github.com/2389/staffbot/internal/platform/platformtest"
)

const (
	guildID    = "g1"
	staffRole  = "r-staff"
	leoRole    = "r-leo"
	exoticRole = "r-exotic"
	alertChan  = "c-alerts"
)

type manualScheduler struct {
	mu      sync.Mutex
	delays  []time.Duration
	tasks   []func()
	stopped bool
}

func (s *manualScheduler) Schedule(delay time.Duration, fn func()) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ""
	}
	s.delays = append(s.delays, delay)
	s.tasks = append(s.tasks, fn)
	return "ticket-" + string(rune('a'+len(s.tasks)-1))
}

func (s *manualScheduler) fireAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}
}

type fixture struct {
	fake  *platformtest.Fake
	sched *manualScheduler
	mgr   *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := platformtest.New()
	fake.AddGuildRole(leoRole, "LEO Car Perms")
	fake.AddGuildRole(exoticRole, "Exotic Car Perms")
	fake.AddMember("issuer", "sergeant", staffRole)
	fake.AddMember("subject", "cadet")

	sched := &manualScheduler{}
	cfg := Config{
		GuildID:      guildID,
		AllowedRoles: []string{staffRole},
		RoleIDs: map[Kind]string{
			KindLEOCarPerms:    leoRole,
			KindExoticCarPerms: exoticRole,
		},
		AlertChannelID: alertChan,
	}
	mgr := NewManager(fake, sched, notify.New(fake, nil, slog.Default()), cfg, slog.Default())
	return &fixture{fake: fake, sched: sched, mgr: mgr}
}

func validRequest(kind Kind) Request {
	return Request{
		IssuerID:    "issuer",
		IssuerTag:   "sergeant#0",
		IssuerRoles: []string{staffRole},
		SubjectID:   "subject",
		Kind:        string(kind),
		Duration:    time.Minute,
	}
}

func TestGrant_ThenExpire(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.mgr.Grant(context.Background(), validRequest(KindLEOCarPerms))
	require.NoError(t, err)
	assert.Equal(t, "ticket-a", ticket.ID)
	assert.Equal(t, "LEO Car Perms", ticket.RoleName)
	assert.Equal(t, "cadet#0", ticket.SubjectTag)
	assert.Equal(t, ticket.GrantedAt.Add(time.Minute), ticket.ExpiresAt())

	assert.True(t, f.fake.MemberHasRole("subject", leoRole), "role should be present immediately")
	require.Equal(t, []time.Duration{time.Minute}, f.sched.delays)
	require.Len(t, f.fake.Added, 1)
	assert.Equal(t, "Given by sergeant#0 for 1 minutes.", f.fake.Added[0].Reason)

	f.sched.fireAll()

	assert.False(t, f.fake.MemberHasRole("subject", leoRole), "role should be removed after expiry")
	require.Len(t, f.fake.Removed, 1)
	assert.Equal(t, "Time expired for LEO Car Perms given by sergeant#0.", f.fake.Removed[0].Reason)
}

func TestGrant_ExpiryNotifiesSubjectAndChannel(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.Grant(context.Background(), validRequest(KindExoticCarPerms))
	require.NoError(t, err)
	assert.True(t, f.fake.MemberHasRole("subject", exoticRole))

	f.sched.fireAll()

	dms := f.fake.SentDMs()
	require.Len(t, dms, 1)
	assert.Equal(t, "subject", dms[0].To)
	assert.Equal(t, "⏳ Role Expired", dms[0].Msg.Embeds[0].Title)
	assert.Contains(t, dms[0].Msg.Embeds[0].Description, "**Exotic Car Perms**")
	assert.Contains(t, dms[0].Msg.Embeds[0].Description, "cadet#0")

	posts := f.fake.SentPosts()
	require.Len(t, posts, 1)
	assert.Equal(t, alertChan, posts[0].To)
}

func TestGrant_ExpiryDMFailureStillPostsToChannel(t *testing.T) {
	f := newFixture(t)
	f.fake.DMErr = errors.New("cannot send messages to this user")

	_, err := f.mgr.Grant(context.Background(), validRequest(KindLEOCarPerms))
	require.NoError(t, err)
	f.sched.fireAll()

	assert.Empty(t, f.fake.SentDMs())
	assert.Len(t, f.fake.SentPosts(), 1)
	assert.False(t, f.fake.MemberHasRole("subject", leoRole))
}

func TestGrant_ExpiryNoopWhenRoleAlreadyRemoved(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.Grant(context.Background(), validRequest(KindLEOCarPerms))
	require.NoError(t, err)

	f.fake.StripRole("subject", leoRole)
	f.sched.fireAll()

	assert.Empty(t, f.fake.Removed)
	assert.Zero(t, f.fake.Sends())
}

func TestGrant_ExpiryNoopWhenSubjectLeft(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.Grant(context.Background(), validRequest(KindLEOCarPerms))
	require.NoError(t, err)

	f.fake.MemberErr = errors.New("unknown member")
	f.sched.fireAll()

	assert.Empty(t, f.fake.Removed)
	assert.Zero(t, f.fake.Sends())
}

func TestGrant_ExpiryRemoveFailureSkipsNotices(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.Grant(context.Background(), validRequest(KindLEOCarPerms))
	require.NoError(t, err)

	f.fake.RemoveRoleErr = errors.New("missing permissions")
	f.sched.fireAll()

	assert.Zero(t, f.fake.Sends())
}

func TestGrant_AlreadyGranted(t *testing.T) {
	f := newFixture(t)
	f.fake.AddMember("subject", "cadet", leoRole)

	_, err := f.mgr.Grant(context.Background(), validRequest(KindLEOCarPerms))
	assert.ErrorIs(t, err, ErrAlreadyGranted)
	assert.Zero(t, f.fake.Mutations())
	assert.Empty(t, f.sched.delays)
}

func TestGrant_Unauthorized(t *testing.T) {
	f := newFixture(t)
	req := validRequest(KindLEOCarPerms)
	req.IssuerRoles = []string{"r-civilian"}

	_, err := f.mgr.Grant(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, f.fake.Mutations())
	assert.Zero(t, f.fake.Sends())
	assert.Empty(t, f.sched.delays)
}

func TestGrant_SubjectNotFound(t *testing.T) {
	f := newFixture(t)
	req := validRequest(KindLEOCarPerms)
	req.SubjectID = "ghost"

	_, err := f.mgr.Grant(context.Background(), req)
	assert.ErrorIs(t, err, ErrSubjectNotFound)
	assert.Zero(t, f.fake.Mutations())
}

func TestGrant_InvalidKind(t *testing.T) {
	f := newFixture(t)
	req := validRequest("boat_perms")

	_, err := f.mgr.Grant(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidPermissionKind)
}

func TestGrant_RoleMisconfigured(t *testing.T) {
	t.Run("unmapped kind", func(t *testing.T) {
		f := newFixture(t)
		delete(f.mgr.cfg.RoleIDs, KindLEOCarPerms)

		_, err := f.mgr.Grant(context.Background(), validRequest(KindLEOCarPerms))
		assert.ErrorIs(t, err, ErrRoleMisconfigured)
	})

	t.Run("role missing from guild", func(t *testing.T) {
		f := newFixture(t)
		f.mgr.cfg.RoleIDs[KindLEOCarPerms] = "r-deleted"

		_, err := f.mgr.Grant(context.Background(), validRequest(KindLEOCarPerms))
		assert.ErrorIs(t, err, ErrRoleMisconfigured)
		assert.Zero(t, f.fake.Mutations())
	})
}

func TestGrant_InvalidDuration(t *testing.T) {
	f := newFixture(t)
	req := validRequest(KindLEOCarPerms)
	req.Duration = 30 * time.Second

	_, err := f.mgr.Grant(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.Zero(t, f.fake.Mutations())
}

func TestGrant_DurationBeyondMaxRejected(t *testing.T) {
	f := newFixture(t)
	req := validRequest(KindLEOCarPerms)
	req.Duration = time.Duration(math.MaxInt64)

	_, err := f.mgr.Grant(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.Zero(t, f.fake.Mutations())
	assert.Empty(t, f.sched.delays)
}

func TestGrant_MaxDurationAccepted(t *testing.T) {
	f := newFixture(t)
	req := validRequest(KindLEOCarPerms)
	req.Duration = MaxDuration

	ticket, err := f.mgr.Grant(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{MaxDuration}, f.sched.delays)
	assert.Equal(t, fmt.Sprintf("Given by sergeant#0 for %d minutes.", MaxMinutes), f.fake.Added[0].Reason)
	assert.True(t, ticket.ExpiresAt().After(ticket.GrantedAt))
}

func pendingGrants(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, metrics.PendingGrants.Write(&m))
	return m.GetGauge().GetValue()
}

func TestGrant_SchedulerStoppedRollsBack(t *testing.T) {
	f := newFixture(t)
	f.sched.stopped = true
	before := pendingGrants(t)

	ticket, err := f.mgr.Grant(context.Background(), validRequest(KindLEOCarPerms))

	assert.ErrorIs(t, err, ErrPlatformOperation)
	assert.Nil(t, ticket)
	require.Len(t, f.fake.Added, 1)
	require.Len(t, f.fake.Removed, 1)
	assert.False(t, f.fake.MemberHasRole("subject", leoRole))
	assert.Equal(t, before, pendingGrants(t))
}

func TestAbandon_LowersPendingGauge(t *testing.T) {
	f := newFixture(t)
	before := pendingGrants(t)

	_, err := f.mgr.Grant(context.Background(), validRequest(KindLEOCarPerms))
	require.NoError(t, err)
	assert.Equal(t, before+1, pendingGrants(t))

	f.mgr.Abandon(1)
	f.mgr.Abandon(0)
	assert.Equal(t, before, pendingGrants(t))
}

func TestGrant_ValidationOrder(t *testing.T) {
	f := newFixture(t)
	// Every check would fail; authorization must be reported first.
	req := Request{IssuerRoles: nil, SubjectID: "ghost", Kind: "nope", Duration: 0}

	_, err := f.mgr.Grant(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnauthorized)

	req.IssuerRoles = []string{staffRole}
	_, err = f.mgr.Grant(context.Background(), req)
	assert.ErrorIs(t, err, ErrSubjectNotFound)

	req.SubjectID = "subject"
	_, err = f.mgr.Grant(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidPermissionKind)
}

func TestGrant_PlatformFailure(t *testing.T) {
	f := newFixture(t)
	f.fake.AddRoleErr = errors.New("missing access")

	_, err := f.mgr.Grant(context.Background(), validRequest(KindLEOCarPerms))
	assert.ErrorIs(t, err, ErrPlatformOperation)
	assert.Empty(t, f.sched.delays, "nothing is scheduled when the role was not added")
}

func TestGrant_OverlappingGrantsExpireIndependently(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.Grant(context.Background(), validRequest(KindLEOCarPerms))
	require.NoError(t, err)

	// Staff removes the role by hand and grants it again before the first timer fires.
	f.fake.StripRole("subject", leoRole)
	_, err = f.mgr.Grant(context.Background(), validRequest(KindLEOCarPerms))
	require.NoError(t, err)
	require.Len(t, f.sched.delays, 2)

	f.sched.fireAll()

	assert.Len(t, f.fake.Removed, 1, "second timer finds the role gone and does nothing")
	assert.False(t, f.fake.MemberHasRole("subject", leoRole))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("exotic_car_perms")
	require.NoError(t, err)
	assert.Equal(t, KindExoticCarPerms, k)
	assert.Equal(t, "Exotic Car Perms", k.DisplayName())

	_, err = ParseKind("")
	assert.ErrorIs(t, err, ErrInvalidPermissionKind)
}
