package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	sqlitedrv "modernc.org/sqlite" // SQLite driver
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/custodia-labs/weft/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driven"
	"github.com/custodia-labs/weft/internal/identity"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "weft.db"

// Store is a unified SQLite-based storage that provides access to
// the graph and search interfaces through wrapper types.
//
// Writes go through a single connection so write transactions are
// serialised; reads use a separate pool and see WAL snapshots.
type Store struct {
	writer *sql.DB
	reader *sql.DB
	path   string
	ids    *identity.Assigner
}

// Option configures a Store.
type Option func(*Store)

// WithAssigner replaces the identifier assigner.
func WithAssigner(a *identity.Assigner) Option {
	return func(s *Store) {
		if a != nil {
			s.ids = a
		}
	}
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.weft/data/weft.db.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".weft", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	base := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	writer, err := sql.Open("sqlite", base+"&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	writer.SetMaxOpenConns(1)

	s := &Store{
		writer: writer,
		path:   dbPath,
		ids:    identity.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(migrations.FS); err != nil {
		writer.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	reader, err := sql.Open("sqlite", base+"&_pragma=query_only(1)")
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("opening read pool: %w", err)
	}
	reader.SetMaxOpenConns(max(4, runtime.NumCPU()))
	s.reader = reader

	return s, nil
}

// Close closes both connection pools.
func (s *Store) Close() error {
	return errors.Join(s.reader.Close(), s.writer.Close())
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// GraphStore returns a GraphStore interface backed by this store.
func (s *Store) GraphStore() driven.GraphStore {
	return &graphStore{store: s}
}

// SearchEngine returns a SearchEngine interface backed by this store.
func (s *Store) SearchEngine() driven.SearchEngine {
	return &searchEngine{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.writer.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.writer.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, content string) error {
	tx, err := s.writer.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(content); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Helper Functions ====================

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const nodeColumns = `node_key, short_id, full_id, doc_id, kind, level, title,
	start_off, end_off, parent_key, short_nonce`

const documentColumns = `doc_id, source_path, content_hash, size, created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanNode scans one node row selected with nodeColumns.
func scanNode(row rowScanner) (*domain.Node, error) {
	var n domain.Node
	var kind string
	var level sql.NullInt64
	var title sql.NullString
	var parent sql.NullInt64

	if err := row.Scan(&n.Key, &n.ShortID, &n.FullID, &n.DocID, &kind, &level, &title,
		&n.Start, &n.End, &parent, &n.Nonce); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning node: %w", err)
	}

	n.Kind = domain.NodeKind(kind)
	n.Level = int(level.Int64)
	n.Title = title.String
	if parent.Valid {
		key := parent.Int64
		n.ParentKey = &key
	}
	return &n, nil
}

// scanNodes drains rows of nodeColumns.
func scanNodes(rows *sql.Rows) ([]domain.Node, error) {
	defer rows.Close()

	var nodes []domain.Node //nolint:prealloc // size unknown from query
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}
	return nodes, nil
}

// scanDocument scans one document row selected with documentColumns.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.SourcePath, &doc.ContentHash, &doc.Size, &doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &doc, nil
}

// scanDocuments drains rows of documentColumns.
func scanDocuments(rows *sql.Rows) ([]domain.Document, error) {
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullKey(k *int64) sql.NullInt64 {
	if k == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *k, Valid: true}
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure whose message names column ("table.column", or a
// "table." prefix to match any column of the table).
func isUniqueViolation(err error, column string) bool {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return strings.Contains(se.Error(), column)
	default:
		return false
	}
}

// orderChildren orders sibling keys along their next edges. Keys not on
// the chain keep their input order after it.
func orderChildren(keys []int64, next map[int64]int64) []int64 {
	if len(keys) < 2 {
		return keys
	}
	member := make(map[int64]bool, len(keys))
	hasPrev := make(map[int64]bool, len(keys))
	for _, k := range keys {
		member[k] = true
	}
	for _, k := range keys {
		if dst, ok := next[k]; ok && member[dst] {
			hasPrev[dst] = true
		}
	}

	out := make([]int64, 0, len(keys))
	seen := make(map[int64]bool, len(keys))
	for _, head := range keys {
		if hasPrev[head] || seen[head] {
			continue
		}
		for k, ok := head, true; ok && member[k] && !seen[k]; k, ok = next[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range keys {
		if !seen[k] {
			out = append(out, k)
		}
	}
	return out
}
