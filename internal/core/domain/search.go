package domain

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// DocID restricts results to one document when set.
	DocID string
}

// SearchHit represents a single ranked search result.
type SearchHit struct {
	// ShortID identifies the matched node.
	ShortID string `json:"short_id"`

	// NodeKey is the internal key of the matched node.
	NodeKey int64 `json:"-"`

	// DocID is the owning document.
	DocID string `json:"doc_id"`

	// Kind is the matched node's kind.
	Kind NodeKind `json:"kind"`

	// Title is the heading title, when the node is a heading.
	Title string `json:"title,omitempty"`

	// Score is the relevance score (higher is better).
	Score float64 `json:"score"`

	// Snippet is a short excerpt with matches bracketed.
	Snippet string `json:"snippet"`
}
