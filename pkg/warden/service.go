package warden

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gridkv/warden/pkg/audit"
	"github.com/gridkv/warden/pkg/cache"
	"github.com/gridkv/warden/pkg/grants"
	"github.com/gridkv/warden/pkg/observability"
	"github.com/gridkv/warden/pkg/pathmatch"
	"github.com/gridkv/warden/pkg/roles"
	"github.com/gridkv/warden/pkg/storage"
)

var tracer = otel.Tracer("warden/service")

// Error surface of the service. Both are caller errors: they are surfaced
// immediately and never downgraded to a false decision, which would be
// indistinguishable from a legitimate deny.
var (
	ErrInvalidPattern = pathmatch.ErrInvalidPattern
	ErrUnknownRole    = roles.ErrUnknownRole
)

// Config assembles a Service.
type Config struct {
	// Roles is the static role registry. Nil means no roles are registered
	// and every GrantRole call fails with ErrUnknownRole.
	Roles *roles.Registry

	// Cache tunes the decision cache.
	Cache cache.Config

	// Persistence, when set, makes grants durable. The service loads the
	// persisted records during New and writes through on every mutation.
	Persistence storage.Persistence

	// Audit receives grant-lifecycle events. Nil disables auditing.
	Audit audit.Recorder

	// Logger defaults to an info-level JSON logger on stdout.
	Logger *observability.Logger

	// Metrics, when set, is updated on checks, mutations, and sweeps.
	Metrics *observability.Metrics
}

// Service is the permission decision engine. All methods are safe for
// concurrent use; mutations and checks for the same principal are mutually
// exclusive, different principals never contend.
type Service struct {
	store       *grants.Store
	registry    *roles.Registry
	decisions   *cache.DecisionCache
	persistence storage.Persistence
	recorder    audit.Recorder
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// New builds a Service and, when persistence is configured, restores the
// persisted grant records into the in-memory store.
func New(ctx context.Context, cfg Config) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	recorder := cfg.Audit
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}

	s := &Service{
		store:       grants.NewStore(),
		registry:    cfg.Roles,
		decisions:   cache.New(cfg.Cache),
		persistence: cfg.Persistence,
		recorder:    recorder,
		logger:      logger,
		metrics:     cfg.Metrics,
	}

	if s.persistence != nil {
		records, err := s.persistence.LoadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to restore grants: %w", err)
		}
		byPrincipal := make(map[grants.Principal][]grants.Grant)
		for _, g := range records {
			byPrincipal[g.Principal] = append(byPrincipal[g.Principal], g)
		}
		for p, gs := range byPrincipal {
			s.store.UpsertBatch(p, gs)
		}
		logger.WithField("grants", len(records)).Info("restored grant records")
	}

	s.syncGrantGauge()
	return s, nil
}

// Grant issues one grant per pattern at the given access level. The patterns
// are validated before anything is applied, so a malformed pattern leaves
// the principal's state untouched. A ttl, when set, expires the grants at
// now+ttl (inclusive boundary: at that epoch they are already dead).
// Re-granting an existing (pattern, level) refreshes its expiry.
func (s *Service) Grant(ctx context.Context, principal grants.Principal, patterns []string, level grants.AccessLevel, now grants.Epoch, ttl *grants.Epoch) error {
	ctx, span := tracer.Start(ctx, "Grant",
		trace.WithAttributes(
			attribute.String("principal", string(principal)),
			attribute.String("level", level.String()),
			attribute.Int("patterns", len(patterns)),
		),
	)
	defer span.End()

	records, err := s.buildRecords(principal, patterns, level, now, ttl, "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid pattern")
		return err
	}
	if err := s.applyUpsert(ctx, principal, records, "grant"); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return err
	}

	event := audit.NewEvent(audit.EventTypeGrant, principal, now)
	event.Patterns = patterns
	event.Level = level.String()
	s.record(ctx, event)
	return nil
}

// Revoke removes the grants for the given patterns at the given level.
// Patterns with no matching grant are skipped silently: revoking something
// never granted is a no-op, not an error.
func (s *Service) Revoke(ctx context.Context, principal grants.Principal, patterns []string, level grants.AccessLevel) error {
	ctx, span := tracer.Start(ctx, "Revoke",
		trace.WithAttributes(
			attribute.String("principal", string(principal)),
			attribute.String("level", level.String()),
			attribute.Int("patterns", len(patterns)),
		),
	)
	defer span.End()

	parsed := make([]pathmatch.Pattern, 0, len(patterns))
	for _, raw := range patterns {
		p, err := pathmatch.Parse(raw)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid pattern")
			return err
		}
		parsed = append(parsed, p)
	}

	removed := s.store.DeleteBatch(principal, parsed, level)
	if err := s.afterDelete(ctx, principal, keysFor(parsed, level), "revoke"); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return err
	}

	event := audit.NewEvent(audit.EventTypeRevoke, principal, 0)
	event.Patterns = patterns
	event.Level = level.String()
	event.Count = removed
	s.record(ctx, event)
	return nil
}

// GrantRole materializes one grant per entry of the named role's bundle,
// each tagged with the role name so RevokeRole can find them again.
func (s *Service) GrantRole(ctx context.Context, principal grants.Principal, roleName string, now grants.Epoch, ttl *grants.Epoch) error {
	ctx, span := tracer.Start(ctx, "GrantRole",
		trace.WithAttributes(
			attribute.String("principal", string(principal)),
			attribute.String("role", roleName),
		),
	)
	defer span.End()

	if s.registry == nil {
		return fmt.Errorf("%w: %q (no roles registered)", ErrUnknownRole, roleName)
	}
	bundle, err := s.registry.Expand(roleName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown role")
		return err
	}

	records := make([]grants.Grant, 0, len(bundle))
	for _, entry := range bundle {
		records = append(records, newRecord(principal, entry.Pattern, entry.Level, now, ttl, roleName))
	}
	if err := s.applyUpsert(ctx, principal, records, "grant_role"); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return err
	}

	event := audit.NewEvent(audit.EventTypeRoleGrant, principal, now)
	event.Role = roleName
	event.Count = len(records)
	s.record(ctx, event)
	return nil
}

// RevokeRole removes exactly the grants still tagged with the named role.
// Grants whose tag was overwritten by a later direct grant are left alone.
func (s *Service) RevokeRole(ctx context.Context, principal grants.Principal, roleName string) error {
	ctx, span := tracer.Start(ctx, "RevokeRole",
		trace.WithAttributes(
			attribute.String("principal", string(principal)),
			attribute.String("role", roleName),
		),
	)
	defer span.End()

	if s.registry == nil {
		return fmt.Errorf("%w: %q (no roles registered)", ErrUnknownRole, roleName)
	}
	if _, err := s.registry.Expand(roleName); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown role")
		return err
	}

	removed := s.store.DeleteRole(principal, roleName)
	if err := s.afterDelete(ctx, principal, storage.Keys(removed), "revoke_role"); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return err
	}

	event := audit.NewEvent(audit.EventTypeRoleRevoke, principal, 0)
	event.Role = roleName
	event.Count = len(removed)
	s.record(ctx, event)
	return nil
}

// IsPermitted reports whether the principal may perform the operation class
// on the concrete path at the given epoch. Any matching, non-expired grant
// of the requested level permits; absence of grants is an ordinary false.
func (s *Service) IsPermitted(principal grants.Principal, path string, level grants.AccessLevel, now grants.Epoch) bool {
	if s.metrics != nil {
		start := time.Now()
		defer func() {
			s.metrics.CheckDuration.WithLabelValues(level.String()).Observe(time.Since(start).Seconds())
		}()
	}

	cached, gen, ok := s.decisions.Get(principal, path, level, now)
	if ok {
		s.countCheck(level, cached, "cache")
		return cached
	}

	decision := decide(s.store.Candidates(principal, path), path, level, now)
	s.decisions.Put(principal, path, level, decision, now, gen)
	s.countCheck(level, decision, "store")
	return decision
}

// BatchIsPermitted evaluates many paths in one call. The principal's grant
// records are snapshotted exactly once and every path is evaluated against
// that shared set, so the per-path cost is a pattern walk rather than a
// store lookup. Element i of the result corresponds to paths[i] and always
// equals what IsPermitted would have returned.
func (s *Service) BatchIsPermitted(principal grants.Principal, paths []string, level grants.AccessLevel, now grants.Epoch) []bool {
	var candidates []grants.Grant
	snapshotted := false

	out := make([]bool, len(paths))
	for i, path := range paths {
		cached, gen, ok := s.decisions.Get(principal, path, level, now)
		if ok {
			s.countCheck(level, cached, "cache")
			out[i] = cached
			continue
		}

		if !snapshotted {
			candidates = s.store.Snapshot(principal)
			snapshotted = true
		}
		decision := decide(candidates, path, level, now)
		s.decisions.Put(principal, path, level, decision, now, gen)
		s.countCheck(level, decision, "store")
		out[i] = decision
	}

	if s.metrics != nil {
		s.metrics.BatchChecksTotal.Inc()
		s.metrics.BatchSizePaths.Observe(float64(len(paths)))
	}
	return out
}

// EffectiveLevels returns the access levels the principal currently holds on
// the concrete path. Introspection for the admin plane; bypasses the cache.
func (s *Service) EffectiveLevels(principal grants.Principal, path string, now grants.Epoch) []grants.AccessLevel {
	candidates := s.store.Candidates(principal, path)
	var out []grants.AccessLevel
	for _, level := range []grants.AccessLevel{grants.Read, grants.Write} {
		if decide(candidates, path, level, now) {
			out = append(out, level)
		}
	}
	return out
}

// ListGrants returns copies of the principal's current grant records,
// including expired ones not yet swept.
func (s *Service) ListGrants(principal grants.Principal) []grants.Grant {
	return s.store.Snapshot(principal)
}

// SweepExpired removes every grant record dead at the given epoch and
// reports how many were removed. Matching already ignores expired grants,
// so sweeping only reclaims space; it is safe to run at any frequency.
func (s *Service) SweepExpired(ctx context.Context, now grants.Epoch) (int, error) {
	ctx, span := tracer.Start(ctx, "SweepExpired",
		trace.WithAttributes(attribute.Int64("epoch", int64(now))),
	)
	defer span.End()

	removedByPrincipal := s.store.SweepExpired(ctx, now)

	total := 0
	for principal, removed := range removedByPrincipal {
		total += len(removed)
		if s.persistence != nil {
			if err := s.persistence.DeleteGrants(ctx, principal, storage.Keys(removed)); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "persistence failed")
				return total, fmt.Errorf("failed to persist sweep for %q: %w", principal, err)
			}
		}
	}
	span.SetAttributes(attribute.Int("removed", total))

	if s.metrics != nil {
		s.metrics.SweepsTotal.Inc()
		s.metrics.SweptGrantsTotal.Add(float64(total))
	}
	s.syncGrantGauge()

	if total > 0 {
		event := audit.NewEvent(audit.EventTypeExpirySweep, "", now)
		event.Count = total
		s.record(ctx, event)
		s.logger.WithFields(map[string]interface{}{
			"removed": total,
			"epoch":   uint64(now),
		}).Info("swept expired grants")
	}
	return total, nil
}

// CacheStats exposes decision cache statistics for operational dashboards.
func (s *Service) CacheStats() cache.Stats {
	stats := s.decisions.Stats()
	if s.metrics != nil {
		s.metrics.CacheEntries.Set(float64(stats.Entries))
	}
	return stats
}

// decide applies the decision policy to a candidate set: permit iff any
// non-expired candidate of the requested level matches the path. There is no
// deny concept, so candidates never conflict.
func decide(candidates []grants.Grant, path string, level grants.AccessLevel, now grants.Epoch) bool {
	for _, g := range candidates {
		if g.Level != level || g.Expired(now) {
			continue
		}
		if g.Pattern.Matches(path) {
			return true
		}
	}
	return false
}

func newRecord(principal grants.Principal, pattern pathmatch.Pattern, level grants.AccessLevel, now grants.Epoch, ttl *grants.Epoch, role string) grants.Grant {
	g := grants.Grant{
		Principal: principal,
		Pattern:   pattern,
		Level:     level,
		GrantedAt: now,
		Role:      role,
	}
	if ttl != nil {
		expires := now + *ttl
		g.ExpiresAt = &expires
	}
	return g
}

func (s *Service) buildRecords(principal grants.Principal, patterns []string, level grants.AccessLevel, now grants.Epoch, ttl *grants.Epoch, role string) ([]grants.Grant, error) {
	records := make([]grants.Grant, 0, len(patterns))
	for _, raw := range patterns {
		p, err := pathmatch.Parse(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, newRecord(principal, p, level, now, ttl, role))
	}
	return records, nil
}

// applyUpsert applies records in memory, writes them through persistence,
// and invalidates the principal's cached decisions.
func (s *Service) applyUpsert(ctx context.Context, principal grants.Principal, records []grants.Grant, operation string) error {
	s.store.UpsertBatch(principal, records)
	s.invalidate(principal)
	s.countMutation(operation)
	s.syncGrantGauge()

	if s.persistence != nil {
		if err := s.persistence.SaveGrants(ctx, records); err != nil {
			// The in-memory state is applied and authoritative; surface the
			// persistence failure so the admin caller can retry.
			s.logger.WithError(err).WithPrincipal(string(principal)).Error("failed to persist grants")
			return fmt.Errorf("failed to persist grants: %w", err)
		}
	}
	return nil
}

func (s *Service) afterDelete(ctx context.Context, principal grants.Principal, keys []storage.RecordKey, operation string) error {
	s.invalidate(principal)
	s.countMutation(operation)
	s.syncGrantGauge()

	if s.persistence != nil && len(keys) > 0 {
		if err := s.persistence.DeleteGrants(ctx, principal, keys); err != nil {
			s.logger.WithError(err).WithPrincipal(string(principal)).Error("failed to persist revocation")
			return fmt.Errorf("failed to persist revocation: %w", err)
		}
	}
	return nil
}

func (s *Service) invalidate(principal grants.Principal) {
	s.decisions.InvalidatePrincipal(principal)
	if s.metrics != nil {
		s.metrics.CacheInvalidationsTotal.Inc()
	}
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	if err := s.recorder.Record(ctx, event); err != nil {
		s.logger.WithError(err).WithField("type", string(event.Type)).Warn("failed to record audit event")
	}
}

func (s *Service) countCheck(level grants.AccessLevel, decision bool, source string) {
	if s.metrics == nil {
		return
	}
	outcome := "deny"
	if decision {
		outcome = "permit"
	}
	s.metrics.ChecksTotal.WithLabelValues(level.String(), outcome, source).Inc()
	switch source {
	case "cache":
		s.metrics.CacheHitsTotal.Inc()
	case "store":
		s.metrics.CacheMissesTotal.Inc()
	}
}

func (s *Service) countMutation(operation string) {
	if s.metrics == nil {
		return
	}
	s.metrics.GrantMutationsTotal.WithLabelValues(operation).Inc()
}

func (s *Service) syncGrantGauge() {
	if s.metrics == nil {
		return
	}
	s.metrics.GrantsActive.Set(float64(s.store.Len()))
}

func keysFor(patterns []pathmatch.Pattern, level grants.AccessLevel) []storage.RecordKey {
	out := make([]storage.RecordKey, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, storage.RecordKey{Pattern: p.String(), Level: level})
	}
	return out
}
