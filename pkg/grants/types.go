package grants

import (
	"fmt"
	"strings"

	"github.com/gridkv/warden/pkg/pathmatch"
)

// Principal identifies a grantee: a user, a service identity, or a group.
// Identifiers are opaque; equality is exact string match. Group-membership
// expansion happens upstream in the identity subsystem, which issues separate
// checks for the user principal and each group principal.
type Principal string

// Epoch is an externally supplied monotonic counter used for grant expiry and
// cache TTL comparisons. The engine never reads a clock of its own.
type Epoch uint64

// AccessLevel is the operation class a grant covers. Write does not imply
// Read: a Read check against a Write-only grant is denied, and callers that
// need both must hold a grant for each.
type AccessLevel uint8

const (
	// Read permits read operations under the granted patterns.
	Read AccessLevel = iota
	// Write permits write operations under the granted patterns.
	Write
)

func (l AccessLevel) String() string {
	switch l {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("access_level(%d)", uint8(l))
	}
}

// ParseAccessLevel parses the string form produced by String.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch strings.ToLower(s) {
	case "read":
		return Read, nil
	case "write":
		return Write, nil
	default:
		return 0, fmt.Errorf("unknown access level %q", s)
	}
}

// Grant is one authoritative permission record. The triple
// (Principal, Pattern, Level) is the record's identity: granting again for
// the same triple replaces the expiry (and role tag) instead of creating a
// second record.
type Grant struct {
	Principal Principal
	Pattern   pathmatch.Pattern
	Level     AccessLevel

	// GrantedAt is the epoch the grant was (last) issued at.
	GrantedAt Epoch

	// ExpiresAt, when set, is the epoch at which the grant dies. The boundary
	// is inclusive: at now == *ExpiresAt the grant is already expired.
	ExpiresAt *Epoch

	// Role names the role bundle this grant was materialized from, or "" for
	// a direct grant. Role revocation removes only records still carrying the
	// role's tag.
	Role string
}

// Expired reports whether the grant is dead at the given epoch.
func (g Grant) Expired(now Epoch) bool {
	return g.ExpiresAt != nil && *g.ExpiresAt <= now
}

// Key returns the record identity used by the store and by durable
// persistence as the primary key.
func (g Grant) Key() string {
	return string(g.Principal) + "\x00" + g.Pattern.String() + "\x00" + g.Level.String()
}
