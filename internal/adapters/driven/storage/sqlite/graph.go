package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driven"
	"github.com/custodia-labs/weft/internal/identity"
)

// ==================== Graph Store ====================

// graphStore implements driven.GraphStore.
type graphStore struct {
	store *Store
}

var _ driven.GraphStore = (*graphStore)(nil)

// Begin starts a write transaction on the writer connection.
func (s *graphStore) Begin(ctx context.Context) (driven.GraphTx, error) {
	tx, err := s.store.writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &graphTx{store: s.store, tx: tx, raw: map[string][]byte{}}, nil
}

// Snapshot reads one document graph inside a single read transaction.
func (s *graphStore) Snapshot(ctx context.Context, docID string) (*domain.DocumentTree, error) {
	tx, err := s.store.reader.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning read transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	doc, err := getDocument(ctx, tx, docID)
	if err != nil {
		return nil, err
	}
	raw, err := documentRaw(ctx, tx, docID)
	if err != nil {
		return nil, err
	}
	doc.Raw = raw

	rows, err := tx.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE doc_id = ? ORDER BY node_key`, docID)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, err
	}

	next, err := nextEdges(ctx, tx, docID)
	if err != nil {
		return nil, err
	}

	tree := &domain.DocumentTree{
		Document: *doc,
		Nodes:    make(map[int64]*domain.Node, len(nodes)),
		Children: make(map[int64][]int64),
	}
	rootFound := false
	for i := range nodes {
		n := &nodes[i]
		tree.Nodes[n.Key] = n
		if n.ParentKey == nil {
			tree.Root = n.Key
			rootFound = true
			continue
		}
		tree.Children[*n.ParentKey] = append(tree.Children[*n.ParentKey], n.Key)
	}
	if !rootFound {
		return nil, fmt.Errorf("%w: document %s has no root node", domain.ErrNotFound, docID)
	}
	for parent, kids := range tree.Children {
		tree.Children[parent] = orderChildren(kids, next)
	}
	return tree, nil
}

// GetDocument retrieves a document by ID.
func (s *graphStore) GetDocument(ctx context.Context, docID string) (*domain.Document, error) {
	return getDocument(ctx, s.store.reader, docID)
}

// FindDocument returns the document with the given source path and hash.
func (s *graphStore) FindDocument(ctx context.Context, sourcePath, contentHash string) (*domain.Document, error) {
	row := s.store.reader.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE source_path = ? AND content_hash = ?
	`, sourcePath, contentHash)
	return scanDocument(row)
}

// ListDocuments returns every document, oldest first.
func (s *graphStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.reader.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents ORDER BY created_at, doc_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	return scanDocuments(rows)
}

// DocumentRaw returns a document's raw bytes.
func (s *graphStore) DocumentRaw(ctx context.Context, docID string) ([]byte, error) {
	return documentRaw(ctx, s.store.reader, docID)
}

// GetNode retrieves a node by short id.
func (s *graphStore) GetNode(ctx context.Context, shortID string) (*domain.Node, error) {
	row := s.store.reader.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE short_id = ?`, shortID)
	return scanNode(row)
}

// GetNodeByKey retrieves a node by key.
func (s *graphStore) GetNodeByKey(ctx context.Context, key int64) (*domain.Node, error) {
	return getNode(ctx, s.store.reader, key)
}

// Children returns the children of a node.
func (s *graphStore) Children(ctx context.Context, key int64, ordered bool) ([]domain.Node, error) {
	if _, err := getNode(ctx, s.store.reader, key); err != nil {
		return nil, err
	}
	rows, err := s.store.reader.QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM nodes WHERE parent_key = ? ORDER BY node_key
	`, key)
	if err != nil {
		return nil, fmt.Errorf("querying children: %w", err)
	}
	kids, err := scanNodes(rows)
	if err != nil || !ordered || len(kids) < 2 {
		return kids, err
	}

	next := make(map[int64]int64, len(kids))
	erows, err := s.store.reader.QueryContext(ctx, `
		SELECT e.src_key, e.dst_key FROM edges e
		JOIN nodes n ON n.node_key = e.src_key
		WHERE n.parent_key = ? AND e.type = 'next'
	`, key)
	if err != nil {
		return nil, fmt.Errorf("querying sibling order: %w", err)
	}
	if err := scanEdgePairs(erows, next); err != nil {
		return nil, err
	}

	byKey := make(map[int64]domain.Node, len(kids))
	keys := make([]int64, len(kids))
	for i, k := range kids {
		byKey[k.Key] = k
		keys[i] = k.Key
	}
	out := make([]domain.Node, 0, len(kids))
	for _, k := range orderChildren(keys, next) {
		out = append(out, byKey[k])
	}
	return out, nil
}

// Ancestors returns the ancestors of a node, root first.
func (s *graphStore) Ancestors(ctx context.Context, key int64) ([]domain.Node, error) {
	if _, err := getNode(ctx, s.store.reader, key); err != nil {
		return nil, err
	}
	rows, err := s.store.reader.QueryContext(ctx, `
		WITH RECURSIVE anc(k, depth) AS (
			SELECT parent_key, 1 FROM nodes WHERE node_key = ? AND parent_key IS NOT NULL
			UNION ALL
			SELECT n.parent_key, anc.depth + 1 FROM nodes n
			JOIN anc ON n.node_key = anc.k
			WHERE n.parent_key IS NOT NULL
		)
		SELECT `+prefixed("n", nodeColumns)+` FROM anc
		JOIN nodes n ON n.node_key = anc.k
		ORDER BY anc.depth DESC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("querying ancestors: %w", err)
	}
	return scanNodes(rows)
}

// DeleteDocument removes a document with everything it owns.
func (s *graphStore) DeleteDocument(ctx context.Context, docID string) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if err := tx.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	return tx.Commit()
}

// Close releases the store.
func (s *graphStore) Close() error {
	return s.store.Close()
}

// ==================== Graph Transaction ====================

// graphTx implements driven.GraphTx.
type graphTx struct {
	store *Store
	tx    *sql.Tx

	// raw caches document bytes used for span checks and identity.
	raw map[string][]byte
}

var _ driven.GraphTx = (*graphTx)(nil)

// PutDocument stores raw bytes as a new document.
func (t *graphTx) PutDocument(ctx context.Context, sourcePath string, raw []byte) (*domain.Document, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("%w: empty source path", domain.ErrInvalidInput)
	}
	if raw == nil {
		raw = []byte{}
	}

	hash := identity.ContentHash(raw)
	row := t.tx.QueryRowContext(ctx, `
		SELECT doc_id FROM documents WHERE source_path = ? AND content_hash = ?
	`, sourcePath, hash)
	var existing string
	switch err := row.Scan(&existing); {
	case err == nil:
		return nil, &domain.DuplicateContentError{SourcePath: sourcePath, DocID: existing}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("checking duplicate content: %w", err)
	}

	doc := &domain.Document{
		ID:          identity.DocumentID(sourcePath, hash),
		SourcePath:  sourcePath,
		ContentHash: hash,
		Size:        int64(len(raw)),
		Raw:         raw,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO documents (doc_id, source_path, content_hash, raw_bytes, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.SourcePath, doc.ContentHash, raw, doc.Size, doc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "documents.") {
			return nil, &domain.DuplicateContentError{SourcePath: sourcePath, DocID: doc.ID}
		}
		return nil, fmt.Errorf("saving document: %w", err)
	}

	t.raw[doc.ID] = raw
	return doc, nil
}

// PutNode validates the span and inserts the node.
func (t *graphTx) PutNode(ctx context.Context, spec domain.NodeSpec) (*domain.Node, error) {
	if !spec.Kind.IsValid() {
		return nil, fmt.Errorf("%w: node kind %q", domain.ErrInvalidInput, spec.Kind)
	}
	raw, err := t.documentRaw(ctx, spec.DocID)
	if err != nil {
		return nil, err
	}

	size := int64(len(raw))
	if spec.Start < 0 || spec.Start > spec.End || spec.End > size {
		return nil, spanError(spec, [2]int64{0, size}, "span outside document bytes")
	}

	if spec.ParentKey == nil {
		if spec.Kind != domain.KindDocument {
			return nil, fmt.Errorf("%w: only the document root may have no parent", domain.ErrInvalidInput)
		}
		var n int
		if err := t.tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM nodes WHERE doc_id = ? AND parent_key IS NULL
		`, spec.DocID).Scan(&n); err != nil {
			return nil, fmt.Errorf("checking document root: %w", err)
		}
		if n > 0 {
			return nil, fmt.Errorf("%w: document %s already has a root", domain.ErrInvalidInput, spec.DocID)
		}
	} else {
		parent, err := getNode(ctx, t.tx, *spec.ParentKey)
		if err != nil {
			return nil, fmt.Errorf("loading parent %d: %w", *spec.ParentKey, err)
		}
		bound := [2]int64{parent.Start, parent.End}
		if parent.DocID != spec.DocID {
			return nil, spanError(spec, bound, "parent belongs to document "+parent.DocID)
		}
		if spec.Start < parent.Start || spec.End > parent.End {
			return nil, spanError(spec, bound, "span not contained by parent")
		}
	}

	fullID := identity.FullID(identity.Input{
		DocID:   spec.DocID,
		Start:   spec.Start,
		End:     spec.End,
		Kind:    spec.Kind,
		Content: raw[spec.Start:spec.End],
	})

	checker := identity.CheckerFunc(t.shortIDTaken)
	nonce := 0
	for {
		a, err := t.store.ids.AssignFrom(ctx, checker, fullID, nonce)
		if err != nil {
			return nil, err
		}

		res, err := t.tx.ExecContext(ctx, `
			INSERT INTO nodes (short_id, full_id, doc_id, kind, level, title, start_off, end_off, parent_key, short_nonce)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, a.ShortID, a.FullID, spec.DocID, string(spec.Kind), nullInt(spec.Level), nullString(spec.Title),
			spec.Start, spec.End, nullKey(spec.ParentKey), a.Nonce)
		if isUniqueViolation(err, "nodes.short_id") {
			// Taken between the check and the insert: resume the search.
			nonce = a.Nonce + 1
			continue
		}
		if isUniqueViolation(err, "nodes.full_id") {
			return nil, fmt.Errorf("%w: node %s [%d,%d) of document %s already exists",
				domain.ErrInvalidInput, spec.Kind, spec.Start, spec.End, spec.DocID)
		}
		if err != nil {
			return nil, fmt.Errorf("saving node: %w", err)
		}

		key, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading node key: %w", err)
		}
		return &domain.Node{
			Key:       key,
			ShortID:   a.ShortID,
			FullID:    a.FullID,
			DocID:     spec.DocID,
			Kind:      spec.Kind,
			Level:     spec.Level,
			Title:     spec.Title,
			Start:     spec.Start,
			End:       spec.End,
			ParentKey: spec.ParentKey,
			Nonce:     a.Nonce,
		}, nil
	}
}

// PutEdge inserts an edge after checking the tree and order rules.
func (t *graphTx) PutEdge(ctx context.Context, edge domain.Edge) error {
	if !edge.Type.IsValid() {
		return fmt.Errorf("%w: edge type %q", domain.ErrInvalidInput, edge.Type)
	}
	if edge.Weight == 0 {
		edge.Weight = domain.DefaultEdgeWeight
	}

	src, err := getNode(ctx, t.tx, edge.Src)
	if err != nil {
		return fmt.Errorf("loading edge source %d: %w", edge.Src, err)
	}
	dst, err := getNode(ctx, t.tx, edge.Dst)
	if err != nil {
		return fmt.Errorf("loading edge destination %d: %w", edge.Dst, err)
	}

	switch edge.Type {
	case domain.EdgeContains:
		err = t.checkContains(ctx, edge, src, dst)
	case domain.EdgeNext:
		err = t.checkNext(ctx, edge, src, dst)
	}
	if err != nil {
		return err
	}

	var metadata sql.NullString
	if len(edge.Metadata) > 0 {
		b, err := json.Marshal(edge.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling edge metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO edges (src_key, dst_key, type, weight, metadata)
		VALUES (?, ?, ?, ?, ?)
	`, edge.Src, edge.Dst, string(edge.Type), edge.Weight, metadata)
	switch {
	case err == nil:
		return nil
	case edge.Type == domain.EdgeContains && isUniqueViolation(err, "edges."):
		return edgeError(edge, domain.ErrCycle, "node already has a parent")
	case edge.Type == domain.EdgeNext && isUniqueViolation(err, "edges."):
		return edgeError(edge, domain.ErrOrderingConflict, "sibling order would branch")
	default:
		return fmt.Errorf("saving edge: %w", err)
	}
}

func (t *graphTx) checkContains(ctx context.Context, edge domain.Edge, src, dst *domain.Node) error {
	if src.Key == dst.Key {
		return edgeError(edge, domain.ErrCycle, "node cannot contain itself")
	}
	if src.DocID != dst.DocID {
		return edgeError(edge, domain.ErrCycle, "endpoints belong to different documents")
	}
	if dst.ParentKey == nil {
		return edgeError(edge, domain.ErrCycle, "document root cannot be contained")
	}
	if *dst.ParentKey != src.Key {
		return edgeError(edge, domain.ErrCycle, fmt.Sprintf("node already has parent %d", *dst.ParentKey))
	}

	taken, err := exists(ctx, t.tx, `SELECT 1 FROM edges WHERE dst_key = ? AND type = 'contains'`, dst.Key)
	if err != nil {
		return fmt.Errorf("checking parent edge: %w", err)
	}
	if taken {
		return edgeError(edge, domain.ErrCycle, "node already has a parent")
	}

	cycle, err := exists(ctx, t.tx, `
		WITH RECURSIVE anc(k) AS (
			SELECT ?
			UNION
			SELECT e.src_key FROM edges e JOIN anc ON e.dst_key = anc.k
			WHERE e.type = 'contains'
		)
		SELECT 1 FROM anc WHERE k = ?
	`, src.Key, dst.Key)
	if err != nil {
		return fmt.Errorf("checking containment cycle: %w", err)
	}
	if cycle {
		return edgeError(edge, domain.ErrCycle, "edge would create a cycle")
	}
	return nil
}

func (t *graphTx) checkNext(ctx context.Context, edge domain.Edge, src, dst *domain.Node) error {
	if src.Key == dst.Key {
		return edgeError(edge, domain.ErrOrderingConflict, "node cannot follow itself")
	}
	if src.ParentKey == nil || dst.ParentKey == nil || *src.ParentKey != *dst.ParentKey {
		return edgeError(edge, domain.ErrOrderingConflict, "endpoints are not siblings")
	}
	if dst.Start < src.End {
		return edgeError(edge, domain.ErrOrderingConflict, "destination does not follow source")
	}

	hasNext, err := exists(ctx, t.tx, `SELECT 1 FROM edges WHERE src_key = ? AND type = 'next'`, src.Key)
	if err != nil {
		return fmt.Errorf("checking successor: %w", err)
	}
	if hasNext {
		return edgeError(edge, domain.ErrOrderingConflict, "source already has a successor")
	}
	hasPrev, err := exists(ctx, t.tx, `SELECT 1 FROM edges WHERE dst_key = ? AND type = 'next'`, dst.Key)
	if err != nil {
		return fmt.Errorf("checking predecessor: %w", err)
	}
	if hasPrev {
		return edgeError(edge, domain.ErrOrderingConflict, "destination already has a predecessor")
	}

	loop, err := exists(ctx, t.tx, `
		WITH RECURSIVE chain(k) AS (
			SELECT ?
			UNION
			SELECT e.dst_key FROM edges e JOIN chain ON e.src_key = chain.k
			WHERE e.type = 'next'
		)
		SELECT 1 FROM chain WHERE k = ?
	`, dst.Key, src.Key)
	if err != nil {
		return fmt.Errorf("checking order loop: %w", err)
	}
	if loop {
		return edgeError(edge, domain.ErrOrderingConflict, "edge would close a loop")
	}
	return nil
}

// Index upserts the full-text entry of a node.
func (t *graphTx) Index(ctx context.Context, entry domain.IndexEntry) error {
	return indexEntry(ctx, t.tx, entry)
}

// Deindex removes the full-text entry of a node.
func (t *graphTx) Deindex(ctx context.Context, key int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM nodes_fts WHERE rowid = ?`, key); err != nil {
		return fmt.Errorf("deindexing node %d: %w", key, err)
	}
	return nil
}

// DeleteDocument removes a document, its nodes, edges and index entries.
func (t *graphTx) DeleteDocument(ctx context.Context, docID string) error {
	found, err := exists(ctx, t.tx, `SELECT 1 FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("checking document: %w", err)
	}
	if !found {
		return fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}

	if _, err := t.tx.ExecContext(ctx, `
		DELETE FROM nodes_fts WHERE rowid IN (SELECT node_key FROM nodes WHERE doc_id = ?)
	`, docID); err != nil {
		return fmt.Errorf("deleting index entries: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	delete(t.raw, docID)
	return nil
}

// FindDocuments returns every document with the given source path.
func (t *graphTx) FindDocuments(ctx context.Context, sourcePath string) ([]domain.Document, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE source_path = ? ORDER BY created_at
	`, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	return scanDocuments(rows)
}

// Commit makes the batch visible.
func (t *graphTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Rollback discards the batch.
func (t *graphTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

func (t *graphTx) shortIDTaken(ctx context.Context, shortID string) (bool, error) {
	return exists(ctx, t.tx, `SELECT 1 FROM nodes WHERE short_id = ?`, shortID)
}

func (t *graphTx) documentRaw(ctx context.Context, docID string) ([]byte, error) {
	if raw, ok := t.raw[docID]; ok {
		return raw, nil
	}
	raw, err := documentRaw(ctx, t.tx, docID)
	if err != nil {
		return nil, err
	}
	t.raw[docID] = raw
	return raw, nil
}

// ==================== Shared Queries ====================

func getDocument(ctx context.Context, q queryer, docID string) (*domain.Document, error) {
	row := q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE doc_id = ?`, docID)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", docID, err)
	}
	return doc, nil
}

func documentRaw(ctx context.Context, q queryer, docID string) ([]byte, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, `SELECT raw_bytes FROM documents WHERE doc_id = ?`, docID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading document bytes: %w", err)
	}
	if raw == nil {
		raw = []byte{}
	}
	return raw, nil
}

func getNode(ctx context.Context, q queryer, key int64) (*domain.Node, error) {
	row := q.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE node_key = ?`, key)
	n, err := scanNode(row)
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", key, err)
	}
	return n, nil
}

func nextEdges(ctx context.Context, q queryer, docID string) (map[int64]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT e.src_key, e.dst_key FROM edges e
		JOIN nodes n ON n.node_key = e.src_key
		WHERE n.doc_id = ? AND e.type = 'next'
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("querying sibling order: %w", err)
	}
	next := make(map[int64]int64)
	if err := scanEdgePairs(rows, next); err != nil {
		return nil, err
	}
	return next, nil
}

func scanEdgePairs(rows *sql.Rows, into map[int64]int64) error {
	defer rows.Close()
	for rows.Next() {
		var src, dst int64
		if err := rows.Scan(&src, &dst); err != nil {
			return fmt.Errorf("scanning edge: %w", err)
		}
		into[src] = dst
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating edges: %w", err)
	}
	return nil
}

func exists(ctx context.Context, q queryer, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query+" LIMIT 1", args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func spanError(spec domain.NodeSpec, bound [2]int64, reason string) error {
	return &domain.SpanError{
		DocID:  spec.DocID,
		Kind:   spec.Kind,
		Start:  spec.Start,
		End:    spec.End,
		Bound:  bound,
		Reason: reason,
	}
}

func edgeError(edge domain.Edge, sentinel error, reason string) error {
	return &domain.EdgeError{Src: edge.Src, Dst: edge.Dst, Type: edge.Type, Reason: reason, Err: sentinel}
}

// prefixed qualifies a column list with a table alias.
func prefixed(alias, columns string) string {
	var out []byte
	field := true
	for i := 0; i < len(columns); i++ {
		c := columns[i]
		if field && c != ' ' && c != '\n' && c != '\t' {
			out = append(out, alias...)
			out = append(out, '.')
			field = false
		}
		if c == ',' {
			field = true
		}
		out = append(out, c)
	}
	return string(out)
}
