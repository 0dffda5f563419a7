package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driven"
	"github.com/custodia-labs/weft/internal/query"
)

// DefaultSearchLimit applies when SearchOptions.Limit is not positive.
const DefaultSearchLimit = 20

// Column weights for bm25(): title, body.
const (
	titleWeight = 2.0
	bodyWeight  = 1.0
)

// ==================== Search Engine ====================

// searchEngine implements driven.SearchEngine over the nodes_fts table.
type searchEngine struct {
	store *Store
}

var _ driven.SearchEngine = (*searchEngine)(nil)

// Search compiles the query and returns hits ranked by BM25.
func (e *searchEngine) Search(ctx context.Context, q string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	expr, err := query.Compile(q)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	stmt := `
		SELECT n.node_key, n.short_id, n.doc_id, n.kind, COALESCE(n.title, ''),
			-bm25(nodes_fts, ?, ?),
			snippet(nodes_fts, -1, '[', ']', '...', 12)
		FROM nodes_fts
		JOIN nodes n ON n.node_key = nodes_fts.rowid
		WHERE nodes_fts MATCH ?`
	args := []any{titleWeight, bodyWeight, expr}
	if opts.DocID != "" {
		stmt += ` AND n.doc_id = ?`
		args = append(args, opts.DocID)
	}
	stmt += ` ORDER BY bm25(nodes_fts, ?, ?), n.node_key LIMIT ?`
	args = append(args, titleWeight, bodyWeight, limit)

	rows, err := e.store.reader.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", expr, err)
	}
	defer rows.Close()

	var hits []domain.SearchHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var h domain.SearchHit
		var kind string
		if err := rows.Scan(&h.NodeKey, &h.ShortID, &h.DocID, &kind, &h.Title, &h.Score, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		h.Kind = domain.NodeKind(kind)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search hits: %w", err)
	}
	return hits, nil
}

// Reindex rebuilds the entries of one document from its nodes.
func (e *searchEngine) Reindex(ctx context.Context, docID string) (int, error) {
	tx, err := e.store.writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	raw, err := documentRaw(ctx, tx, docID)
	if err != nil {
		return 0, err
	}
	rows, err := tx.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE doc_id = ? ORDER BY node_key`, docID)
	if err != nil {
		return 0, fmt.Errorf("querying nodes: %w", err)
	}
	nodes, err := scanNodes(rows)
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM nodes_fts WHERE rowid IN (SELECT node_key FROM nodes WHERE doc_id = ?)
	`, docID); err != nil {
		return 0, fmt.Errorf("clearing index entries: %w", err)
	}

	count := 0
	for i := range nodes {
		entry, ok := domain.NewIndexEntry(&nodes[i], raw)
		if !ok {
			continue
		}
		if err := indexEntry(ctx, tx, entry); err != nil {
			return 0, err
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return count, nil
}

// indexEntry replaces the entry stored under entry.NodeKey.
func indexEntry(ctx context.Context, tx *sql.Tx, entry domain.IndexEntry) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes_fts WHERE rowid = ?`, entry.NodeKey); err != nil {
		return fmt.Errorf("replacing index entry %d: %w", entry.NodeKey, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO nodes_fts (rowid, title, body, short_id) VALUES (?, ?, ?, ?)
	`, entry.NodeKey, entry.Title, entry.Body, entry.ShortID); err != nil {
		return fmt.Errorf("indexing node %d: %w", entry.NodeKey, err)
	}
	return nil
}
