package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// schemaVersion is the newest migration this build understands.
const schemaVersion = 1

// ErrSchemaTooNew guards against running an old build against a database
// already migrated further by a newer one.
var ErrSchemaTooNew = errors.New("database schema is newer than this build supports")

// The UNIQUE constraint on tags.name doubles as the index the prefix LIKE
// scan needs; post_count and antecedent_name get explicit ones.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS tags (
	id         INTEGER PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	post_count INTEGER NOT NULL DEFAULT 0,
	category   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tag_aliases (
	id              INTEGER PRIMARY KEY,
	antecedent_name TEXT NOT NULL,
	consequent_name TEXT NOT NULL,
	status          TEXT NOT NULL,
	post_count      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tags_post_count ON tags(post_count DESC);
CREATE INDEX IF NOT EXISTS idx_tag_aliases_antecedent ON tag_aliases(antecedent_name);
`

type migration struct {
	version int
	sql     string
}

// migrationList returns every migration in order; forward-only.
func migrationList() []migration {
	return []migration{
		{version: 1, sql: schemaV1},
	}
}

// migrate brings the database up to schemaVersion, applying each pending
// migration in its own transaction.
func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_ts INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating migration table: %w", err)
	}

	current, err := currentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > schemaVersion {
		return fmt.Errorf("%w: database v%d, build v%d", ErrSchemaTooNew, current, schemaVersion)
	}

	for _, m := range migrationList() {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("migration v%d: %w", m.version, err)
		}
	}
	return nil
}

func currentSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, applied_ts) VALUES (?, ?)
	`, m.version, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return tx.Commit()
}
