package render

import (
	"fmt"

	"github.com/custodia-labs/weft/internal/core/domain"
)

// ExpandSet computes the nodes rendered verbatim for the given matches.
// An empty policy means domain.PolicyAncestors.
func ExpandSet(tree *domain.DocumentTree, matches []int64, policy domain.ExpansionPolicy, window int) (map[int64]bool, error) {
	if policy == "" {
		policy = domain.PolicyAncestors
	}
	if !policy.IsValid() {
		return nil, fmt.Errorf("%w: unknown expansion policy %q", domain.ErrInvalidInput, policy)
	}
	if window < 0 {
		return nil, fmt.Errorf("%w: negative window %d", domain.ErrInvalidInput, window)
	}

	set := make(map[int64]bool, len(matches))
	for _, key := range matches {
		if tree.Node(key) != nil {
			set[key] = true
		}
	}
	if policy == domain.PolicyDirect {
		return set, nil
	}

	direct := make([]int64, 0, len(set))
	for key := range set {
		direct = append(direct, key)
	}

	if policy == domain.PolicySiblings && window > 0 {
		for _, key := range direct {
			for _, sib := range siblings(tree, key, window) {
				set[sib] = true
			}
		}
	}

	for _, key := range direct {
		for _, anc := range ancestors(tree, key) {
			set[anc] = true
		}
	}
	return set, nil
}

// siblings returns up to window siblings on each side of key.
func siblings(tree *domain.DocumentTree, key int64, window int) []int64 {
	n := tree.Node(key)
	if n == nil || n.ParentKey == nil {
		return nil
	}
	kids := tree.Children[*n.ParentKey]
	for i, k := range kids {
		if k != key {
			continue
		}
		lo := max(0, i-window)
		hi := min(len(kids), i+window+1)
		out := make([]int64, 0, hi-lo-1)
		for j := lo; j < hi; j++ {
			if j != i {
				out = append(out, kids[j])
			}
		}
		return out
	}
	return nil
}

// ancestors returns the keys above key up to the root, nearest first.
// The walk is bounded by the number of nodes so a corrupt snapshot
// cannot loop.
func ancestors(tree *domain.DocumentTree, key int64) []int64 {
	var out []int64
	n := tree.Node(key)
	for n != nil && n.ParentKey != nil && len(out) < len(tree.Nodes) {
		out = append(out, *n.ParentKey)
		n = tree.Node(*n.ParentKey)
	}
	return out
}

// liveSet marks every proper ancestor of an expanded node.
func liveSet(tree *domain.DocumentTree, expand map[int64]bool) map[int64]bool {
	live := make(map[int64]bool)
	for key := range expand {
		for _, anc := range ancestors(tree, key) {
			if live[anc] {
				break
			}
			live[anc] = true
		}
	}
	return live
}
