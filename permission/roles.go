package permission

import (
	"slices"
	"strings"
)

// Built-in roles. RoleAdmin is the superset role.
const (
	RoleBuyer     = "buyer"
	RoleSeller    = "seller"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// DefaultRole is assigned to users whose record carries no roles.
const DefaultRole = RoleBuyer

// Normalize trims, lower-cases, deduplicates and sorts roles. Empty entries
// are dropped. The result is never nil.
func Normalize(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Satisfies reports whether have meets required under the default superset
// role. An empty required set is never satisfied.
func Satisfies(have, required []string) bool {
	return satisfies(RoleAdmin, have, required)
}

func satisfies(superset string, have, required []string) bool {
	if len(required) == 0 {
		return false
	}
	held := make(map[string]struct{}, len(have))
	for _, r := range Normalize(have) {
		held[r] = struct{}{}
	}
	if _, ok := held[superset]; ok && superset != "" {
		return true
	}
	for _, r := range Normalize(required) {
		if _, ok := held[r]; ok {
			return true
		}
	}
	return false
}
