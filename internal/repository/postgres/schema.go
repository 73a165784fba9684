package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates tables and indexes if they don't exist.
//
// Folders reference their parent with ON DELETE RESTRICT and files reference
// their folder the same way, so a non-empty folder can never be deleted even
// if a caller skips the child count check. The sibling index makes names
// unique per (owner, parent); root folders share the COALESCE sentinel 0.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
				status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'banned', 'inactive')),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.Users),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				token_hash TEXT NOT NULL UNIQUE,
				expires_at TIMESTAMPTZ NOT NULL,
				revoked_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.RefreshTokens, tables.Users),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				id BIGSERIAL PRIMARY KEY,
				name VARCHAR(100) NOT NULL,
				parent_id BIGINT REFERENCES %[1]s(id) ON DELETE RESTRICT,
				owner_id BIGINT NOT NULL REFERENCES %[2]s(id) ON DELETE CASCADE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CHECK (parent_id IS NULL OR parent_id <> id)
			)
		`, tables.Folders, tables.Users),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				path TEXT NOT NULL,
				url TEXT NOT NULL,
				mime TEXT NOT NULL,
				size BIGINT NOT NULL DEFAULT 0,
				category TEXT NOT NULL DEFAULT 'document',
				folder_id BIGINT REFERENCES %s(id) ON DELETE RESTRICT,
				owner_id BIGINT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.Files, tables.Folders, tables.Users),

		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (owner_id, COALESCE(parent_id, 0), name)`, siblingIndexName(tables), tables.Folders),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_parent ON %[1]s (parent_id)`, tables.Folders),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_owner_folder ON %[1]s (owner_id, folder_id)`, tables.Files),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_folder ON %[1]s (folder_id)`, tables.Files),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_created ON %[1]s (created_at)`, tables.Files),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_user ON %[1]s (user_id)`, tables.RefreshTokens),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}

// DropAll drops every table in dependency order
func DropAll(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range tables.All() {
		if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

// siblingIndexName names the unique index behind folder name conflicts
func siblingIndexName(tables *TableNames) string {
	return fmt.Sprintf("idx_%s_sibling_name", tables.Folders)
}
