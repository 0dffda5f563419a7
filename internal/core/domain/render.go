package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ExpansionPolicy decides which nodes besides the matches render verbatim.
type ExpansionPolicy string

// Available expansion policies.
const (
	// PolicyDirect expands exactly the matching nodes.
	PolicyDirect ExpansionPolicy = "direct"

	// PolicyAncestors also expands every ancestor of a match.
	PolicyAncestors ExpansionPolicy = "direct+ancestors"

	// PolicySiblings also expands up to Window siblings on each side of a
	// match.
	PolicySiblings ExpansionPolicy = "direct+ancestors+siblings"
)

// IsValid returns true if the policy is recognised.
func (p ExpansionPolicy) IsValid() bool {
	switch p {
	case PolicyDirect, PolicyAncestors, PolicySiblings:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p ExpansionPolicy) String() string {
	return string(p)
}

// RenderOptions configures a filtered render.
type RenderOptions struct {
	// Policy selects the expand set. Defaults to PolicyAncestors.
	Policy ExpansionPolicy

	// Window is the sibling radius for PolicySiblings. Nil means the
	// configured default; a pointer to zero expands no siblings.
	Window *int

	// Budget caps the output size in bytes. Nil means the configured
	// default; a pointer to zero means unlimited.
	Budget *int
}

// Int returns a pointer to v, for setting optional RenderOptions fields.
func Int(v int) *int {
	return &v
}

// WindowOr returns the sibling radius, or def when Window is unset.
func (o RenderOptions) WindowOr(def int) int {
	if o.Window == nil {
		return def
	}
	return *o.Window
}

// BudgetOr returns the output cap, or def when Budget is unset.
func (o RenderOptions) BudgetOr(def int) int {
	if o.Budget == nil {
		return def
	}
	return *o.Budget
}

// Selection chooses the matching nodes of a filtered render.
// Exactly one of Query or ShortIDs is used; ShortIDs wins when both are set.
type Selection struct {
	Query    string
	ShortIDs []string
}

// IsEmpty reports whether the selection names nothing.
func (s Selection) IsEmpty() bool {
	return strings.TrimSpace(s.Query) == "" && len(s.ShortIDs) == 0
}

// Placeholder describes one collapsed node in filtered output.
type Placeholder struct {
	ShortID string
	Kind    NodeKind
	Bytes   int64
}

// RenderResult is the output of a filtered render.
type RenderResult struct {
	// Text is the rendered output, including placeholder lines.
	Text string

	// Placeholders lists the collapsed nodes in output order.
	Placeholders []Placeholder

	// PlaceholderLines holds the zero-based line in Text of each entry in
	// Placeholders.
	PlaceholderLines []int

	// Expanded lists the short ids of the expand set.
	Expanded []string

	// Truncated is true when the budget stopped the render early. Text then
	// ends with a truncation marker line.
	Truncated bool
}

// Placeholder syntax. A placeholder is a single line:
//
//	[[weft:<short_id> <kind> <bytes>]]
//
// A budget truncation marker is:
//
//	[[weft:truncated <omitted-bytes>]]
const (
	placeholderOpen  = "[[weft:"
	placeholderClose = "]]"
	truncatedWord    = "truncated"
)

// FormatPlaceholder returns the placeholder line for p, without a newline.
//
// Document content may contain text of the same shape, so rendered text is
// not a reliable source of placeholders. RenderResult.Placeholders, with
// RenderResult.PlaceholderLines, is the authoritative list.
func FormatPlaceholder(p Placeholder) string {
	return fmt.Sprintf("%s%s %s %d%s", placeholderOpen, p.ShortID, p.Kind, p.Bytes, placeholderClose)
}

// FormatTruncation returns the truncation marker line, without a newline.
func FormatTruncation(omitted int64) string {
	return fmt.Sprintf("%s%s %d%s", placeholderOpen, truncatedWord, omitted, placeholderClose)
}

// ParsePlaceholder parses one placeholder line. Surrounding whitespace is
// ignored. The truncation marker is not a placeholder.
func ParsePlaceholder(line string) (Placeholder, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, placeholderOpen) || !strings.HasSuffix(line, placeholderClose) {
		return Placeholder{}, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(line, placeholderOpen), placeholderClose)
	fields := strings.Split(inner, " ")
	if len(fields) != 3 {
		return Placeholder{}, false
	}
	n, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || n < 0 {
		return Placeholder{}, false
	}
	kind := NodeKind(fields[1])
	if len(fields[0]) != 4 || !kind.IsValid() {
		return Placeholder{}, false
	}
	return Placeholder{ShortID: fields[0], Kind: kind, Bytes: n}, true
}

// ExtractPlaceholders returns every placeholder-shaped line in text, in
// order. Lines copied verbatim from a document are included.
func ExtractPlaceholders(text string) []Placeholder {
	var out []Placeholder
	for _, line := range strings.Split(text, "\n") {
		if p, ok := ParsePlaceholder(line); ok {
			out = append(out, p)
		}
	}
	return out
}
