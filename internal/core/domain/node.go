package domain

// NodeKind classifies a structural span.
type NodeKind string

// Known node kinds. The set is open; unknown kinds render as leaves.
const (
	KindDocument  NodeKind = "document"
	KindHeading   NodeKind = "heading"
	KindParagraph NodeKind = "paragraph"
	KindCodeBlock NodeKind = "code-block"
)

// IsValid returns true if the kind is non-empty and contains only
// lowercase letters and dashes, so it can appear in a placeholder.
func (k NodeKind) IsValid() bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		if (r < 'a' || r > 'z') && r != '-' {
			return false
		}
	}
	return true
}

// IsContainer reports whether nodes of this kind hold child nodes.
func (k NodeKind) IsContainer() bool {
	return k == KindDocument || k == KindHeading
}

// Searchable reports whether nodes of this kind get a full-text entry.
func (k NodeKind) Searchable() bool {
	return k != KindDocument
}

// String returns the string representation.
func (k NodeKind) String() string {
	return string(k)
}

// Node is a structural span within one document.
// Start and End are half-open byte offsets into the document's raw bytes.
type Node struct {
	// Key is the internal surrogate key.
	Key int64

	// ShortID is the 4-character display code, unique in the store.
	ShortID string

	// FullID is the content-addressed hash, unique in the store.
	FullID string

	// DocID is the owning document.
	DocID string

	// Kind is the node kind.
	Kind NodeKind

	// Level is the heading depth (1-6), or 0.
	Level int

	// Title is the heading text, or empty.
	Title string

	// Start is the first byte of the span.
	Start int64

	// End is one past the last byte of the span.
	End int64

	// ParentKey is the structural container, nil for the document root.
	ParentKey *int64

	// Nonce is the collision-resolution counter that produced ShortID.
	Nonce int
}

// Len returns the byte length of the span.
func (n *Node) Len() int64 {
	return n.End - n.Start
}

// Contains reports whether other's span lies within n's span.
func (n *Node) Contains(other *Node) bool {
	return n.Start <= other.Start && other.End <= n.End
}

// IsRoot reports whether n is a document root.
func (n *Node) IsRoot() bool {
	return n.ParentKey == nil
}

// NodeSpec describes a node to be created. The store derives the
// identifiers.
type NodeSpec struct {
	DocID     string
	Kind      NodeKind
	Start     int64
	End       int64
	Title     string
	Level     int
	ParentKey *int64
}

// EdgeType is the kind of relationship an edge expresses.
type EdgeType string

// Edge types.
const (
	// EdgeContains is structural containment (parent to child).
	EdgeContains EdgeType = "contains"

	// EdgeNext orders siblings (earlier to later).
	EdgeNext EdgeType = "next"

	// EdgeRef is an explicit inline reference.
	EdgeRef EdgeType = "ref"
)

// IsValid returns true if the edge type is recognised.
func (t EdgeType) IsValid() bool {
	switch t {
	case EdgeContains, EdgeNext, EdgeRef:
		return true
	default:
		return false
	}
}

// DefaultEdgeWeight is the weight of edges created without one.
const DefaultEdgeWeight = 1.0

// Edge is a relationship between two nodes.
type Edge struct {
	Src      int64
	Dst      int64
	Type     EdgeType
	Weight   float64
	Metadata map[string]any
}

// IndexEntry is the denormalised full-text record for one node.
type IndexEntry struct {
	NodeKey int64
	ShortID string
	Title   string
	Body    string
}

// NewIndexEntry projects a node onto its full-text entry. Headings are
// indexed by title, leaves by their raw text. The document root has no
// entry.
func NewIndexEntry(n *Node, raw []byte) (IndexEntry, bool) {
	if !n.Kind.Searchable() || n.Start < 0 || n.End > int64(len(raw)) || n.Start > n.End {
		return IndexEntry{}, false
	}
	entry := IndexEntry{NodeKey: n.Key, ShortID: n.ShortID, Title: n.Title}
	if n.Kind != KindHeading {
		entry.Body = string(raw[n.Start:n.End])
	}
	return entry, true
}

// OutlineNode is one entry of a document outline.
type OutlineNode struct {
	ShortID  string        `json:"short_id"`
	Kind     NodeKind      `json:"kind"`
	Title    string        `json:"title,omitempty"`
	Level    int           `json:"level,omitempty"`
	Children []OutlineNode `json:"children,omitempty"`
}

// DocumentTree is a consistent read snapshot of one document's graph.
type DocumentTree struct {
	// Document includes Raw.
	Document Document

	// Root is the key of the document root node.
	Root int64

	// Nodes indexes every node of the document by key.
	Nodes map[int64]*Node

	// Children lists child keys per parent in next-edge order.
	Children map[int64][]int64
}

// Node returns the node with the given key, or nil.
func (t *DocumentTree) Node(key int64) *Node {
	if t == nil {
		return nil
	}
	return t.Nodes[key]
}

// NodeByShortID returns the node with the given short id, or nil.
func (t *DocumentTree) NodeByShortID(shortID string) *Node {
	for _, n := range t.Nodes {
		if n.ShortID == shortID {
			return n
		}
	}
	return nil
}
