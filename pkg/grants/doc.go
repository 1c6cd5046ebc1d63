// Package grants defines the authorization data model (principals, access
// levels, epochs, grant records) and the in-memory grant store.
//
// The store shards all state by principal: each principal owns an independent
// record map plus a pattern trie, guarded by its own RWMutex. Mutations and
// reads for the same principal are mutually exclusive, so a reader never
// observes a partially applied multi-pattern grant; operations on different
// principals proceed in parallel with no shared coordination.
//
// Expiry uses caller-supplied epochs (a monotonic counter such as a logical
// clock or block height), never the wall clock. A grant whose expiry epoch is
// less than or equal to the current epoch is dead: matching ignores it and
// the sweeper may collect it.
package grants
