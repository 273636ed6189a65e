// ABOUTME: Permission kinds that /give can grant and their display names
// ABOUTME: Each kind maps to exactly one guild role through configuration

package grant

import "fmt"

// Kind is a category of temporary permission
type Kind string

const (
	KindLEOCarPerms    Kind = "leo_car_perms"
	KindExoticCarPerms Kind = "exotic_car_perms"
)

var displayNames = map[Kind]string{
	KindLEOCarPerms:    "LEO Car Perms",
	KindExoticCarPerms: "Exotic Car Perms",
}

// Kinds returns every recognized kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindLEOCarPerms, KindExoticCarPerms}
}

// ParseKind validates a raw option value.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := displayNames[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPermissionKind, s)
	}
	return k, nil
}

// DisplayName is the human label, e.g. "LEO Car Perms".
func (k Kind) DisplayName() string {
	if name, ok := displayNames[k]; ok {
		return name
	}
	return string(k)
}
