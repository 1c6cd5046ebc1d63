// Package storage persists grant records durably. The engine answers checks
// from its in-memory store; persistence exists so grants survive process
// restarts. The durable primary key is (principal, pattern, access_level) —
// the same identity the in-memory store uses.
//
// Three backends ship with the engine: Memory (tests and single-process
// deployments that accept loss on restart), SQL (database/sql, works with
// sqlite and postgres), and Redis.
package storage
