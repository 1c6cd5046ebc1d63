package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gridkv/warden/pkg/grants"
	"github.com/gridkv/warden/pkg/pathmatch"
)

// RedisStore persists grants in Redis, one hash per principal. The hash
// field is "pattern\x00level" and the value a small JSON document, so the
// durable key is still (principal, pattern, access_level).
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	URL       string
	Password  string
	DB        int
	KeyPrefix string
}

// redisRecord is the stored value; the identity lives in the key and field.
type redisRecord struct {
	GrantedAt uint64  `json:"granted_at"`
	ExpiresAt *uint64 `json:"expires_at,omitempty"`
	Role      string  `json:"role,omitempty"`
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB > 0 {
		opts.DB = cfg.DB
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "warden"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) principalKey(p grants.Principal) string {
	return s.prefix + ":grants:" + string(p)
}

func fieldKey(pattern string, level grants.AccessLevel) string {
	return pattern + "\x00" + level.String()
}

// SaveGrants implements Persistence. Records are written through a pipeline
// grouped by principal.
func (s *RedisStore) SaveGrants(ctx context.Context, records []grants.Grant) error {
	if len(records) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, g := range records {
		rec := redisRecord{GrantedAt: uint64(g.GrantedAt), Role: g.Role}
		if g.ExpiresAt != nil {
			e := uint64(*g.ExpiresAt)
			rec.ExpiresAt = &e
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal grant: %w", err)
		}
		pipe.HSet(ctx, s.principalKey(g.Principal), fieldKey(g.Pattern.String(), g.Level), data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save failed: %w", err)
	}
	return nil
}

// DeleteGrants implements Persistence.
func (s *RedisStore) DeleteGrants(ctx context.Context, principal grants.Principal, keys []RecordKey) error {
	if len(keys) == 0 {
		return nil
	}

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fieldKey(k.Pattern, k.Level))
	}
	if err := s.client.HDel(ctx, s.principalKey(principal), fields...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// LoadAll implements Persistence. Principal hashes are discovered with SCAN
// so startup does not block the server on a large keyspace.
func (s *RedisStore) LoadAll(ctx context.Context) ([]grants.Grant, error) {
	var out []grants.Grant

	match := s.prefix + ":grants:*"
	iter := s.client.Scan(ctx, 0, match, 256).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		principal := grants.Principal(key[len(s.prefix)+len(":grants:"):])

		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("redis load failed for %q: %w", key, err)
		}
		for field, value := range fields {
			g, err := decodeRedisField(principal, field, []byte(value))
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return out, nil
}

func decodeRedisField(principal grants.Principal, field string, value []byte) (grants.Grant, error) {
	sep := -1
	for i := 0; i < len(field); i++ {
		if field[i] == 0 {
			sep = i
			break
		}
	}
	if sep < 0 {
		return grants.Grant{}, fmt.Errorf("malformed grant field %q", field)
	}

	pattern, err := pathmatch.Parse(field[:sep])
	if err != nil {
		return grants.Grant{}, fmt.Errorf("stored pattern %q is invalid: %w", field[:sep], err)
	}
	level, err := grants.ParseAccessLevel(field[sep+1:])
	if err != nil {
		return grants.Grant{}, fmt.Errorf("stored access level in %q is invalid: %w", field, err)
	}

	var rec redisRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return grants.Grant{}, fmt.Errorf("failed to unmarshal grant %q: %w", field, err)
	}

	g := grants.Grant{
		Principal: principal,
		Pattern:   pattern,
		Level:     level,
		GrantedAt: grants.Epoch(rec.GrantedAt),
		Role:      rec.Role,
	}
	if rec.ExpiresAt != nil {
		e := grants.Epoch(*rec.ExpiresAt)
		g.ExpiresAt = &e
	}
	return g, nil
}

// Close implements Persistence.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
