// ABOUTME: In-memory platform.Client used by tests across packages
// ABOUTME: Records every mutation and send so tests can assert side effects

package platformtest

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/2389/staffbot/internal/platform"
)

// RoleChange records one AddRole or RemoveRole call
type RoleChange struct {
	GuildID string
	UserID  string
	RoleID  string
	Reason  string
}

// Sent records one delivered message
type Sent struct {
	To  string
	Msg *platform.OutgoingMessage
}

// Fake is an in-memory platform.Client. Errors set on the struct are
// returned by the matching operation.
type Fake struct {
	mu      sync.Mutex
	members map[string]*platform.Member // keyed by userID
	roles   map[string]*platform.Role   // keyed by roleID

	Added   []RoleChange
	Removed []RoleChange
	DMs     []Sent
	Posts   []Sent

	AddRoleErr    error
	RemoveRoleErr error
	MemberErr     error
	DMErr         error
	ChannelErr    error
	GuildRolesErr error
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		members: make(map[string]*platform.Member),
		roles:   make(map[string]*platform.Role),
	}
}

// AddMember registers a guild member holding roles.
func (f *Fake) AddMember(userID, username string, roles ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[userID] = &platform.Member{
		User:  &platform.User{ID: userID, Username: username},
		Roles: slices.Clone(roles),
	}
}

// AddGuildRole registers a role in the guild.
func (f *Fake) AddGuildRole(roleID, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[roleID] = &platform.Role{ID: roleID, Name: name}
}

// MemberHasRole reports the live role state for userID.
func (f *Fake) MemberHasRole(userID, roleID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	return ok && m.HasRole(roleID)
}

// StripRole removes a role without recording it, as if another actor did it.
func (f *Fake) StripRole(userID, roleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.members[userID]; ok {
		m.Roles = slices.DeleteFunc(m.Roles, func(r string) bool { return r == roleID })
	}
}

// Mutations returns the number of role changes made through the client.
func (f *Fake) Mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Added) + len(f.Removed)
}

// Sends returns the number of DMs and channel posts attempted successfully.
func (f *Fake) Sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.DMs) + len(f.Posts)
}

// SentDMs returns a copy of the recorded DMs.
func (f *Fake) SentDMs() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.DMs)
}

// SentPosts returns a copy of the recorded channel posts.
func (f *Fake) SentPosts() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Posts)
}

func (f *Fake) Member(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MemberErr != nil {
		return nil, f.MemberErr
	}
	m, ok := f.members[userID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	cp := *m
	cp.GuildID = guildID
	cp.Roles = slices.Clone(m.Roles)
	return &cp, nil
}

func (f *Fake) Role(ctx context.Context, guildID, roleID string) (*platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[roleID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *Fake) GuildRoles(ctx context.Context, guildID string) ([]*platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GuildRolesErr != nil {
		return nil, f.GuildRolesErr
	}
	roles := make([]*platform.Role, 0, len(f.roles))
	for _, r := range f.roles {
		cp := *r
		roles = append(roles, &cp)
	}
	return roles, nil
}

func (f *Fake) AddRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AddRoleErr != nil {
		return f.AddRoleErr
	}
	m, ok := f.members[userID]
	if !ok {
		return platform.ErrNotFound
	}
	if !m.HasRole(roleID) {
		m.Roles = append(m.Roles, roleID)
	}
	f.Added = append(f.Added, RoleChange{GuildID: guildID, UserID: userID, RoleID: roleID, Reason: reason})
	return nil
}

func (f *Fake) RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RemoveRoleErr != nil {
		return f.RemoveRoleErr
	}
	m, ok := f.members[userID]
	if !ok {
		return platform.ErrNotFound
	}
	m.Roles = slices.DeleteFunc(m.Roles, func(r string) bool { return r == roleID })
	f.Removed = append(f.Removed, RoleChange{GuildID: guildID, UserID: userID, RoleID: roleID, Reason: reason})
	return nil
}

func (f *Fake) SendDM(ctx context.Context, userID string, msg *platform.OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DMErr != nil {
		return f.DMErr
	}
	f.DMs = append(f.DMs, Sent{To: userID, Msg: msg})
	return nil
}

func (f *Fake) SendChannel(ctx context.Context, channelID string, msg *platform.OutgoingMessage) (*platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ChannelErr != nil {
		return nil, f.ChannelErr
	}
	f.Posts = append(f.Posts, Sent{To: channelID, Msg: msg})
	return &platform.Message{ChannelID: channelID, Content: msg.Content, Embeds: msg.Embeds}, nil
}

// Responder records replies to an invocation.
type Responder struct {
	mu        sync.Mutex
	Responses []*platform.Response
	Err       error
}

func (r *Responder) Respond(ctx context.Context, resp *platform.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Responses = append(r.Responses, resp)
	return nil
}

// Last returns the most recent reply or nil.
func (r *Responder) Last() *platform.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Responses) == 0 {
		return nil
	}
	return r.Responses[len(r.Responses)-1]
}

// ErrUnavailable is a generic failure tests can inject.
var ErrUnavailable = errors.New("platform unavailable")

var _ platform.Client = (*Fake)(nil)
