// Package roles defines named, preconfigured bundles of (pattern, access
// level) grants. Role definitions are process-wide, read-only configuration
// loaded at startup; per-tenant role customization belongs to the
// surrounding platform, not this engine.
package roles
