package permission

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrUnknownRole is returned when a role is not part of the registry.
var ErrUnknownRole = errors.New("unknown role")

// ErrEmptyRequirement is returned when a requirement names no roles.
var ErrEmptyRequirement = errors.New("role requirement is empty")

// ErrRegistryFrozen is returned by Register after Freeze.
var ErrRegistryFrozen = errors.New("registry frozen")

// Registry is the closed role vocabulary of a deployment. It is configured
// during initialization and frozen before use.
type Registry struct {
	superset string

	mu     sync.RWMutex
	roles  map[string]struct{}
	frozen bool
}

// NewRegistry creates a [Registry] holding superset and roles. superset may
// be empty, in which case no role implies every other.
func NewRegistry(superset string, roles ...string) (*Registry, error) {
	r := &Registry{
		superset: strings.ToLower(strings.TrimSpace(superset)),
		roles:    make(map[string]struct{}),
	}
	if r.superset != "" {
		r.roles[r.superset] = struct{}{}
	}
	for _, role := range roles {
		if err := r.Register(role); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns a frozen registry with the built-in roles and
// admin as the superset role.
func DefaultRegistry() *Registry {
	r, _ := NewRegistry(RoleAdmin, RoleBuyer, RoleSeller, RoleModerator)
	r.Freeze()
	return r
}

// Register adds a role. Registering an existing role is a no-op.
func (r *Registry) Register(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return errors.New("role name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	r.roles[name] = struct{}{}
	return nil
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Known reports whether name is registered.
func (r *Registry) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roles[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Roles returns the registered roles, sorted.
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.roles))
	for name := range r.roles {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Superset returns the role that satisfies every requirement, if any.
func (r *Registry) Superset() string {
	return r.superset
}

// Requirement normalizes a role requirement and checks it against the
// vocabulary.
func (r *Registry) Requirement(required ...string) ([]string, error) {
	roles := Normalize(required)
	if len(roles) == 0 {
		return nil, ErrEmptyRequirement
	}
	for _, role := range roles {
		if !r.Known(role) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
		}
	}
	return roles, nil
}

// Satisfies reports whether have meets required under this registry's
// superset role.
func (r *Registry) Satisfies(have, required []string) bool {
	return satisfies(r.superset, have, required)
}
