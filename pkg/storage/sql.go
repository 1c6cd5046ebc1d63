package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gridkv/warden/pkg/grants"
	"github.com/gridkv/warden/pkg/pathmatch"
)

// SQLStore persists grants through database/sql. The schema uses $N
// placeholders and ON CONFLICT upserts, which both sqlite and postgres
// accept, so the same store works against either driver.
type SQLStore struct {
	db *sql.DB
}

const sqlSchema = `
	CREATE TABLE IF NOT EXISTS warden_grants (
		principal    TEXT NOT NULL,
		pattern      TEXT NOT NULL,
		access_level TEXT NOT NULL,
		granted_at   BIGINT NOT NULL,
		expires_at   BIGINT,
		role         TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (principal, pattern, access_level)
	)
`

// NewSQLStore wraps an open database handle and ensures the grants table
// exists. The caller owns the handle's pool configuration; Close closes it.
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, sqlSchema); err != nil {
		return nil, fmt.Errorf("failed to create grants table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// SaveGrants implements Persistence. All records are written in one
// transaction so a multi-pattern grant is durable atomically.
func (s *SQLStore) SaveGrants(ctx context.Context, records []grants.Grant) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO warden_grants (principal, pattern, access_level, granted_at, expires_at, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (principal, pattern, access_level)
		DO UPDATE SET granted_at = EXCLUDED.granted_at, expires_at = EXCLUDED.expires_at, role = EXCLUDED.role
	`
	for _, g := range records {
		var expires interface{}
		if g.ExpiresAt != nil {
			expires = int64(*g.ExpiresAt)
		}
		if _, err := tx.ExecContext(ctx, query,
			string(g.Principal),
			g.Pattern.String(),
			g.Level.String(),
			int64(g.GrantedAt),
			expires,
			g.Role,
		); err != nil {
			return fmt.Errorf("failed to save grant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit grants: %w", err)
	}
	return nil
}

// DeleteGrants implements Persistence.
func (s *SQLStore) DeleteGrants(ctx context.Context, principal grants.Principal, keys []RecordKey) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `DELETE FROM warden_grants WHERE principal = $1 AND pattern = $2 AND access_level = $3`
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, query, string(principal), k.Pattern, k.Level.String()); err != nil {
			return fmt.Errorf("failed to delete grant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deletes: %w", err)
	}
	return nil
}

// LoadAll implements Persistence.
func (s *SQLStore) LoadAll(ctx context.Context) ([]grants.Grant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT principal, pattern, access_level, granted_at, expires_at, role
		FROM warden_grants
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load grants: %w", err)
	}
	defer rows.Close()

	var out []grants.Grant
	for rows.Next() {
		var (
			principal, pattern, level, role string
			grantedAt                       int64
			expiresAt                       sql.NullInt64
		)
		if err := rows.Scan(&principal, &pattern, &level, &grantedAt, &expiresAt, &role); err != nil {
			return nil, fmt.Errorf("failed to scan grant row: %w", err)
		}

		g, err := decodeGrant(principal, pattern, level, role, grantedAt, expiresAt)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func decodeGrant(principal, pattern, level, role string, grantedAt int64, expiresAt sql.NullInt64) (grants.Grant, error) {
	parsed, err := pathmatch.Parse(pattern)
	if err != nil {
		return grants.Grant{}, fmt.Errorf("stored pattern %q is invalid: %w", pattern, err)
	}
	lvl, err := grants.ParseAccessLevel(level)
	if err != nil {
		return grants.Grant{}, fmt.Errorf("stored access level for %q is invalid: %w", pattern, err)
	}

	g := grants.Grant{
		Principal: grants.Principal(principal),
		Pattern:   parsed,
		Level:     lvl,
		GrantedAt: grants.Epoch(grantedAt),
		Role:      role,
	}
	if expiresAt.Valid {
		e := grants.Epoch(expiresAt.Int64)
		g.ExpiresAt = &e
	}
	return g, nil
}

// Close implements Persistence.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
