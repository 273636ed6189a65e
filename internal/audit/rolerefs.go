// ABOUTME: Rewrites role mention tokens (<@&id>) into readable @Name text
// ABOUTME: Unknown role ids are left as the original token

package audit

import (
	"regexp"

	"github.com/2389/staffbot/internal/platform"
)

var roleRefPattern = regexp.MustCompile(`<@&(\d+)>`)

// RoleResolver maps a role id to its display name.
type RoleResolver interface {
	RoleName(id string) (string, bool)
}

// RoleNames is a RoleResolver backed by a map of id to name.
type RoleNames map[string]string

func (r RoleNames) RoleName(id string) (string, bool) {
	name, ok := r[id]
	return name, ok
}

// NewRoleNames indexes roles by id.
func NewRoleNames(roles []*platform.Role) RoleNames {
	names := make(RoleNames, len(roles))
	for _, r := range roles {
		names[r.ID] = r.Name
	}
	return names
}

// RewriteRoleRefs replaces each <@&id> in text with @Name. A nil resolver
// returns text unchanged.
func RewriteRoleRefs(text string, roles RoleResolver) string {
	if text == "" || roles == nil {
		return text
	}
	return roleRefPattern.ReplaceAllStringFunc(text, func(token string) string {
		id := roleRefPattern.FindStringSubmatch(token)[1]
		if name, ok := roles.RoleName(id); ok {
			return "@" + name
		}
		return token
	})
}
