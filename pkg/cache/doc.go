// Package cache memoizes (principal, path, access level) permission
// decisions with an epoch-based TTL.
//
// Entries live in a bounded per-principal LRU. Expiry is lazy: an entry older
// than the TTL is treated as absent on lookup, whether or not it was ever
// explicitly removed. Invalidation is deliberately coarse — any grant
// mutation drops every cached decision for the mutated principal, because a
// single recursive-wildcard grant can affect an unbounded set of concrete
// paths and precise invalidation would cost as much as not caching.
package cache
