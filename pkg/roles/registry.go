package roles

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gridkv/warden/pkg/grants"
	"github.com/gridkv/warden/pkg/pathmatch"
)

// ErrUnknownRole is returned when a role name is not registered. It is a
// caller error and is surfaced as-is, never downgraded to a deny decision.
var ErrUnknownRole = errors.New("unknown role")

// BundleEntry is one (pattern, access level) pair in a role's bundle.
type BundleEntry struct {
	Pattern pathmatch.Pattern
	Level   grants.AccessLevel
}

// Role is a named bundle. Granting a role materializes one grant per bundle
// entry, each tagged with the role name.
type Role struct {
	Name        string
	Description string
	Bundle      []BundleEntry
}

// Registry is an immutable name → role table. Construct with NewRegistry;
// lookups are lock-free.
type Registry struct {
	roles map[string]Role
}

// NewRegistry builds a registry from the given definitions. Duplicate names
// and empty bundles are configuration bugs and fail construction.
func NewRegistry(defs []Role) (*Registry, error) {
	table := make(map[string]Role, len(defs))
	for _, r := range defs {
		if r.Name == "" {
			return nil, fmt.Errorf("role with empty name")
		}
		if len(r.Bundle) == 0 {
			return nil, fmt.Errorf("role %q has an empty bundle", r.Name)
		}
		if _, dup := table[r.Name]; dup {
			return nil, fmt.Errorf("duplicate role %q", r.Name)
		}
		for _, e := range r.Bundle {
			if e.Pattern.IsZero() {
				return nil, fmt.Errorf("role %q has an unparsed pattern", r.Name)
			}
		}
		table[r.Name] = r
	}
	return &Registry{roles: table}, nil
}

// Expand returns the bundle for the named role, or ErrUnknownRole.
func (r *Registry) Expand(name string) ([]BundleEntry, error) {
	role, ok := r.roles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
	return role.Bundle, nil
}

// Names returns the registered role names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.roles))
	for name := range r.roles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Built-in role names.
const (
	RoleViewer  = "viewer"
	RoleEditor  = "editor"
	RoleAdmin   = "admin"
	RoleAuditor = "auditor"
)

// BuiltInRoles returns the stock role definitions shipped with the engine.
// Deployments typically pass these to NewRegistry, optionally appending their
// own definitions.
func BuiltInRoles() []Role {
	return []Role{
		{
			Name:        RoleViewer,
			Description: "Read access to public profile, content, and message areas",
			Bundle: []BundleEntry{
				{Pattern: pathmatch.MustParse("profile/*"), Level: grants.Read},
				{Pattern: pathmatch.MustParse("content/*"), Level: grants.Read},
				{Pattern: pathmatch.MustParse("messages/*/public"), Level: grants.Read},
			},
		},
		{
			Name:        RoleEditor,
			Description: "Read and write access to profile and content areas",
			Bundle: []BundleEntry{
				{Pattern: pathmatch.MustParse("profile/*"), Level: grants.Read},
				{Pattern: pathmatch.MustParse("profile/*"), Level: grants.Write},
				{Pattern: pathmatch.MustParse("content/**"), Level: grants.Read},
				{Pattern: pathmatch.MustParse("content/**"), Level: grants.Write},
			},
		},
		{
			Name:        RoleAdmin,
			Description: "Full read and write access to the whole keyspace",
			Bundle: []BundleEntry{
				{Pattern: pathmatch.MustParse("**"), Level: grants.Read},
				{Pattern: pathmatch.MustParse("**"), Level: grants.Write},
			},
		},
		{
			Name:        RoleAuditor,
			Description: "Read-only access to the whole keyspace",
			Bundle: []BundleEntry{
				{Pattern: pathmatch.MustParse("**"), Level: grants.Read},
			},
		},
	}
}
