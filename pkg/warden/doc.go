// Package warden is the public API of the path-scoped authorization engine.
//
// The Service answers "may principal P perform operation O on path X?" for
// the storage engine's read/write paths, and exposes the grant lifecycle
// (grant, revoke, role grant/revoke) to the administrative plane. Decisions
// are memoized per principal with an epoch TTL; every mutation invalidates
// the mutated principal's cached decisions before it returns.
//
// Time is a caller-supplied epoch counter throughout. The engine never reads
// a clock on the decision path, which keeps checks pure and tests
// deterministic.
package warden
