// Package render reconstructs documents from a graph snapshot.
//
// Full copies leaves and the gap bytes between them, so its output is
// the original input. Filtered renders an expand set verbatim and
// replaces everything else with placeholders that Expand can resolve
// back to the exact bytes.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/custodia-labs/weft/internal/core/domain"
)

// errBudget stops a walk when the output budget is reached.
var errBudget = errors.New("render budget reached")

// Full reconstructs the document bytes from tree.
func Full(ctx context.Context, tree *domain.DocumentTree) ([]byte, error) {
	w, err := newWalker(ctx, tree)
	if err != nil {
		return nil, err
	}
	if err := w.node(tree.Root); err != nil {
		return nil, err
	}
	return w.out.Bytes(), nil
}

// Filtered renders tree with the nodes in matches expanded according to
// opts. Unknown keys in matches are ignored.
func Filtered(ctx context.Context, tree *domain.DocumentTree, matches []int64, opts domain.RenderOptions) (*domain.RenderResult, error) {
	expand, err := ExpandSet(tree, matches, opts.Policy, opts.WindowOr(0))
	if err != nil {
		return nil, err
	}
	budget := opts.BudgetOr(0)
	if budget < 0 {
		return nil, fmt.Errorf("%w: negative budget %d", domain.ErrInvalidInput, budget)
	}

	w, err := newWalker(ctx, tree)
	if err != nil {
		return nil, err
	}
	w.expand = expand
	w.live = liveSet(tree, expand)
	w.budget = budget

	err = w.node(tree.Root)
	switch {
	case errors.Is(err, errBudget):
		w.truncated = true
		omitted := tree.Node(tree.Root).End - w.pos
		w.out.Write(lineStart(w.out.Bytes()))
		w.out.WriteString(domain.FormatTruncation(omitted))
		w.out.WriteByte('\n')
	case err != nil:
		return nil, err
	}

	return &domain.RenderResult{
		Text:             w.out.String(),
		Placeholders:     w.placeholders,
		PlaceholderLines: w.placeholderLines,
		Expanded:         expandedIDs(tree, expand),
		Truncated:        w.truncated,
	}, nil
}

// Expand returns the exact bytes of one node.
func Expand(node *domain.Node, raw []byte) ([]byte, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", domain.ErrInvalidInput)
	}
	if err := checkBounds(node, int64(len(raw))); err != nil {
		return nil, err
	}
	out := make([]byte, node.Len())
	copy(out, raw[node.Start:node.End])
	return out, nil
}

// Outline returns the node tree without content.
func Outline(tree *domain.DocumentTree) (*domain.OutlineNode, error) {
	root := tree.Node(tree.Root)
	if root == nil {
		return nil, fmt.Errorf("%w: document root %d", domain.ErrNotFound, tree.Root)
	}
	out := outline(tree, root)
	return &out, nil
}

func outline(tree *domain.DocumentTree, n *domain.Node) domain.OutlineNode {
	o := domain.OutlineNode{ShortID: n.ShortID, Kind: n.Kind, Title: n.Title, Level: n.Level}
	for _, key := range tree.Children[n.Key] {
		if child := tree.Node(key); child != nil {
			o.Children = append(o.Children, outline(tree, child))
		}
	}
	return o
}

// walker holds the state of one render.
type walker struct {
	ctx  context.Context
	tree *domain.DocumentTree
	raw  []byte

	// expand is nil for a full render.
	expand map[int64]bool
	// live marks containers with an expanded descendant.
	live   map[int64]bool
	budget int

	out   bytes.Buffer
	lines int
	pos   int64

	placeholders     []domain.Placeholder
	placeholderLines []int
	truncated        bool
}

func newWalker(ctx context.Context, tree *domain.DocumentTree) (*walker, error) {
	if tree == nil || tree.Node(tree.Root) == nil {
		return nil, fmt.Errorf("%w: document tree has no root", domain.ErrInvalidInput)
	}
	w := &walker{ctx: ctx, tree: tree, raw: tree.Document.Raw}
	w.out.Grow(len(w.raw))
	return w, nil
}

func (w *walker) node(key int64) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	n := w.tree.Node(key)
	if n == nil {
		return fmt.Errorf("%w: node %d missing from snapshot", domain.ErrNotFound, key)
	}
	if err := checkBounds(n, int64(len(w.raw))); err != nil {
		return err
	}

	kids := w.tree.Children[key]
	if w.expand == nil || key == w.tree.Root {
		return w.container(n, kids)
	}

	switch {
	case len(kids) == 0 && n.Kind == domain.KindHeading:
		return w.container(n, nil)
	case len(kids) == 0 && w.expand[key]:
		return w.container(n, nil)
	case len(kids) == 0:
		return w.placeholder(n)
	case w.expand[key] || w.live[key]:
		return w.container(n, kids)
	case n.Kind == domain.KindHeading:
		line := headingLine(w.raw[n.Start:n.End])
		if err := w.write(line, n.Start+int64(len(line))); err != nil {
			return err
		}
		return w.placeholder(n)
	default:
		return w.placeholder(n)
	}
}

// container copies the gap bytes of n around its children and renders
// each child in order.
func (w *walker) container(n *domain.Node, kids []int64) error {
	pos := n.Start
	for _, key := range kids {
		c := w.tree.Node(key)
		if c == nil {
			return fmt.Errorf("%w: node %d missing from snapshot", domain.ErrNotFound, key)
		}
		if c.Start < pos || c.End > n.End {
			return &domain.SpanError{
				DocID:  n.DocID,
				Kind:   c.Kind,
				Start:  c.Start,
				End:    c.End,
				Bound:  [2]int64{pos, n.End},
				Reason: "child out of order or outside its parent",
			}
		}
		if err := w.write(w.raw[pos:c.Start], c.Start); err != nil {
			return err
		}
		if err := w.node(key); err != nil {
			return err
		}
		pos = c.End
	}
	return w.write(w.raw[pos:n.End], n.End)
}

// placeholder emits the collapse marker for n on its own line.
func (w *walker) placeholder(n *domain.Node) error {
	p := domain.Placeholder{ShortID: n.ShortID, Kind: n.Kind, Bytes: n.Len()}
	prefix := lineStart(w.out.Bytes())
	at := w.lines + len(prefix)
	line := append(prefix, domain.FormatPlaceholder(p)...)
	line = append(line, '\n')
	if err := w.write(line, n.End); err != nil {
		return err
	}
	w.placeholders = append(w.placeholders, p)
	w.placeholderLines = append(w.placeholderLines, at)
	return nil
}

// write appends b, which represents raw bytes up to upTo. Chunks are
// never split, so a budget stop always falls on a node boundary.
func (w *walker) write(b []byte, upTo int64) error {
	if w.budget > 0 && w.out.Len()+len(b) > w.budget {
		return errBudget
	}
	w.out.Write(b)
	w.lines += bytes.Count(b, []byte{'\n'})
	w.pos = upTo
	return nil
}

// lineStart returns the newline needed to put the next write at column 0.
func lineStart(out []byte) []byte {
	if len(out) == 0 || out[len(out)-1] == '\n' {
		return nil
	}
	return []byte{'\n'}
}

// headingLine returns the first line of a heading span, terminator
// included.
func headingLine(span []byte) []byte {
	if i := bytes.IndexByte(span, '\n'); i >= 0 {
		return span[:i+1]
	}
	return span
}

func checkBounds(n *domain.Node, size int64) error {
	if n.Start < 0 || n.Start > n.End || n.End > size {
		return &domain.SpanError{
			DocID:  n.DocID,
			Kind:   n.Kind,
			Start:  n.Start,
			End:    n.End,
			Bound:  [2]int64{0, size},
			Reason: "span outside document bytes",
		}
	}
	return nil
}

// expandedIDs lists the short ids of the expand set in document order.
func expandedIDs(tree *domain.DocumentTree, expand map[int64]bool) []string {
	nodes := make([]*domain.Node, 0, len(expand))
	for key := range expand {
		if n := tree.Node(key); n != nil {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Start != nodes[j].Start {
			return nodes[i].Start < nodes[j].Start
		}
		return nodes[i].Key < nodes[j].Key
	})
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ShortID
	}
	return ids
}
