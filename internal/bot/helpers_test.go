// ABOUTME: Shared fixtures for bot tests
// ABOUTME: Wires a real grant manager and auditor to the in-memory fakes

package bot

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/2389/staffbot/internal/audit"
	"github.com/2389/staffbot/internal/grant"
	"github.com/2389/staffbot/internal/notify"
	"github.com/2389/staffbot/internal/platform"
	"github.com/2389/staffbot/internal/platform/platformtest"
	"github.com/2389/staffbot/internal/store"
)

const (
	guildID   = "g1"
	watched   = "c-log"
	staffChan = "c-staff"
	operator  = "op-1"
	staffRole = "r-staff"
	leoRole   = "r-leo"
)

type stubScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	tasks  []func()
}

func (s *stubScheduler) Schedule(delay time.Duration, fn func()) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, delay)
	s.tasks = append(s.tasks, fn)
	return "ticket"
}

func (s *stubScheduler) fireAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}
}

type testBot struct {
	app   *App
	fake  *platformtest.Fake
	store *store.MockStore
	sched *stubScheduler
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	logger := slog.Default()
	fake := platformtest.New()
	fake.AddGuildRole(leoRole, "LEO Car Perms")
	fake.AddGuildRole("123", "Staff")
	fake.AddMember("issuer", "sergeant", staffRole)
	fake.AddMember("subject", "cadet")

	st := store.NewMockStore()
	sched := &stubScheduler{}
	notifier := notify.New(fake, nil, logger)

	grants := grant.NewManager(fake, sched, notifier, grant.Config{
		GuildID:        guildID,
		AllowedRoles:   []string{staffRole},
		RoleIDs:        map[grant.Kind]string{grant.KindLEOCarPerms: leoRole, grant.KindExoticCarPerms: "r-missing"},
		AlertChannelID: staffChan,
	}, logger)
	auditor := audit.New(st, fake, notifier, nil, audit.Config{WatchedChannelID: watched, OperatorID: operator}, logger)

	app := New(Deps{Store: st, Grants: grants, Auditor: auditor}, Config{WatchedChannelID: watched}, logger)
	return &testBot{app: app, fake: fake, store: st, sched: sched}
}

func giveInvocation(issuerRoles []string, target *platform.User, kind string, minutes int64) *platform.Invocation {
	return &platform.Invocation{
		ID:          "i1",
		Command:     GiveCommandName,
		GuildID:     guildID,
		ChannelID:   "c-cmd",
		User:        &platform.User{ID: "issuer", Username: "sergeant"},
		MemberRoles: issuerRoles,
		Options: map[string]any{
			optTarget:   target,
			optRoleType: kind,
			optTime:     minutes,
		},
	}
}

func subject() *platform.User {
	return &platform.User{ID: "subject", Username: "cadet"}
}

var bg = context.Background()
