// Package store provides the taxonomy storage backends: a SQLite store for
// deployment and a patricia-trie memory store for development and tests.
// Both implement search.TagStore with identical matching semantics; the
// choice between them is a config switch, not an API difference.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/ferrwyn/autocompleted/pkg/search"
)

// ErrStoreClosed is returned for reads attempted after Close.
var ErrStoreClosed = errors.New("store is closed")

const (
	// defaultQueryTimeout bounds a single read. Matches the upstream
	// deployment's 3000ms statement timeout.
	defaultQueryTimeout = 3 * time.Second

	// walCheckpointInterval keeps the WAL from growing without bound
	// during long daemon sessions.
	walCheckpointInterval = 5 * time.Minute
)

const tagsByPrefixSQL = `
SELECT id, name, post_count, category
FROM tags
WHERE name LIKE ? ESCAPE '\'
  AND post_count >= ?
ORDER BY post_count DESC, name ASC
LIMIT ?`

// The NOT LIKE clause drops alias rows whose canonical tag already matches
// the prefix directly; those rows surface through tagsByPrefixSQL and would
// only feed the deduplicator.
const aliasesByPrefixSQL = `
SELECT a.id, a.antecedent_name, a.consequent_name, a.status, a.post_count,
       t.id, t.name, t.post_count, t.category
FROM tag_aliases a
JOIN tags t ON t.name = a.consequent_name
WHERE a.antecedent_name LIKE ? ESCAPE '\'
  AND a.post_count >= ?
  AND t.post_count >= ?
  AND t.name NOT LIKE ? ESCAPE '\'
  AND a.status IN (%s)
ORDER BY a.post_count DESC, a.antecedent_name ASC
LIMIT ?`

// SQLiteStore reads the taxonomy from a SQLite database through the pure Go
// driver. All matching semantics live in the two SQL statements; Go code
// only binds parameters and scans rows.
type SQLiteStore struct {
	db           *sql.DB
	path         string
	queryTimeout time.Duration

	stmtMu sync.RWMutex
	stmts  map[string]*sql.Stmt

	stopCh    chan struct{}
	stoppedCh chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// SQLiteOptions configures OpenSQLite.
type SQLiteOptions struct {
	// Path is the database file; parent directories are created as needed.
	Path string
	// QueryTimeout bounds each read; zero means defaultQueryTimeout.
	QueryTimeout time.Duration
}

// OpenSQLite opens (creating if necessary) the database, applies pragmas
// and pending migrations, and starts the WAL checkpoint loop. The caller
// must Close the returned store.
func OpenSQLite(ctx context.Context, opts SQLiteOptions) (*SQLiteStore, error) {
	if opts.Path == "" {
		return nil, errors.New("sqlite store: empty database path")
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = defaultQueryTimeout
	}
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// case_sensitive_like makes prefix LIKE match the contract and lets
	// SQLite use the name index for it.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=case_sensitive_like(1)", opts.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single writer; SQLite behaves best this way.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	s := &SQLiteStore{
		db:           db,
		path:         opts.Path,
		queryTimeout: opts.QueryTimeout,
		stmts:        make(map[string]*sql.Stmt),
		stopCh:       make(chan struct{}),
		stoppedCh:    make(chan struct{}),
	}
	go s.walCheckpointLoop()
	return s, nil
}

// TagsByPrefix implements search.TagStore against the tags table.
func (s *SQLiteStore) TagsByPrefix(ctx context.Context, prefix string, minPostCount, limit int) ([]search.Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	stmt, err := s.prepared(ctx, "tags_by_prefix", tagsByPrefixSQL)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, search.LikePattern(prefix), minPostCount, limit)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	var out []search.Tag
	for rows.Next() {
		var t search.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.PostCount, &t.Category); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading tag rows: %w", err)
	}
	return out, nil
}

// AliasesByPrefix implements search.TagStore against the join of
// tag_aliases and tags.
func (s *SQLiteStore) AliasesByPrefix(ctx context.Context, prefix string, statuses []search.AliasStatus, minPostCount, limit int) ([]search.AliasedTag, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	// One cached statement per status-set size; the set itself is bound.
	name := fmt.Sprintf("aliases_by_prefix_%d", len(statuses))
	stmt, err := s.prepared(ctx, name, fmt.Sprintf(aliasesByPrefixSQL, placeholders(len(statuses))))
	if err != nil {
		return nil, err
	}

	pattern := search.LikePattern(prefix)
	args := make([]any, 0, len(statuses)+5)
	args = append(args, pattern, minPostCount, minPostCount, pattern)
	for _, st := range statuses {
		args = append(args, string(st))
	}
	args = append(args, limit)

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("querying aliases: %w", err)
	}
	defer rows.Close()

	var out []search.AliasedTag
	for rows.Next() {
		var at search.AliasedTag
		err := rows.Scan(
			&at.Alias.ID, &at.Alias.AntecedentName, &at.Alias.ConsequentName,
			&at.Alias.Status, &at.Alias.PostCount,
			&at.Tag.ID, &at.Tag.Name, &at.Tag.PostCount, &at.Tag.Category,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning alias row: %w", err)
		}
		out = append(out, at)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading alias rows: %w", err)
	}
	return out, nil
}

// ImportTags loads a tag CSV dump inside one transaction, upserting by id.
// Returns the number of rows written.
func (s *SQLiteStore) ImportTags(ctx context.Context, r io.Reader) (int, error) {
	tags, err := ReadTags(r)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tags (id, name, post_count, category)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			post_count = excluded.post_count,
			category = excluded.category`)
	if err != nil {
		return 0, fmt.Errorf("preparing tag insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tags {
		if _, err := stmt.ExecContext(ctx, t.ID, t.Name, t.PostCount, t.Category); err != nil {
			return 0, fmt.Errorf("inserting tag %q: %w", t.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return len(tags), nil
}

// ImportAliases loads an alias CSV dump inside one transaction, upserting
// by id. Returns the number of rows written.
func (s *SQLiteStore) ImportAliases(ctx context.Context, r io.Reader) (int, error) {
	aliases, err := ReadAliases(r)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tag_aliases (id, antecedent_name, consequent_name, status, post_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			antecedent_name = excluded.antecedent_name,
			consequent_name = excluded.consequent_name,
			status = excluded.status,
			post_count = excluded.post_count`)
	if err != nil {
		return 0, fmt.Errorf("preparing alias insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range aliases {
		_, err := stmt.ExecContext(ctx, a.ID, a.AntecedentName, a.ConsequentName, string(a.Status), a.PostCount)
		if err != nil {
			return 0, fmt.Errorf("inserting alias %q: %w", a.AntecedentName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return len(aliases), nil
}

// Counts reports the table sizes, for startup logging and the REPL.
func (s *SQLiteStore) Counts(ctx context.Context) (tags, aliases int64, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&tags); err != nil {
		return 0, 0, fmt.Errorf("counting tags: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tag_aliases`).Scan(&aliases); err != nil {
		return 0, 0, fmt.Errorf("counting aliases: %w", err)
	}
	return tags, aliases, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close stops the checkpoint loop, closes cached statements, merges the WAL
// back into the main file and closes the connection. Safe to call twice.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.stoppedCh

		s.stmtMu.Lock()
		for _, stmt := range s.stmts {
			stmt.Close()
		}
		s.stmts = nil
		s.stmtMu.Unlock()

		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// prepared returns a cached prepared statement, creating it on first use.
func (s *SQLiteStore) prepared(ctx context.Context, name, query string) (*sql.Stmt, error) {
	s.stmtMu.RLock()
	if s.stmts == nil {
		s.stmtMu.RUnlock()
		return nil, ErrStoreClosed
	}
	if stmt, ok := s.stmts[name]; ok {
		s.stmtMu.RUnlock()
		return stmt, nil
	}
	s.stmtMu.RUnlock()

	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()
	if s.stmts == nil {
		return nil, ErrStoreClosed
	}
	if stmt, ok := s.stmts[name]; ok {
		return stmt, nil
	}
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("preparing %s: %w", name, err)
	}
	s.stmts[name] = stmt
	return stmt, nil
}

func (s *SQLiteStore) walCheckpointLoop() {
	defer close(s.stoppedCh)

	ticker := time.NewTicker(walCheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
				log.Warnf("WAL checkpoint failed: %v", err)
			}
		}
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
