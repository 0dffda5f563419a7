package render

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/parser"
)

const scenario = "# Title\n\nBody text.\n\n```\npy code\n```\n"

// build parses input into a tree. The root gets key 1 and every block
// gets key Seq+1, so keys follow document order.
func build(t *testing.T, input string) *domain.DocumentTree {
	t.Helper()
	raw := []byte(input)
	tree := &domain.DocumentTree{
		Document: domain.Document{ID: "doc", Raw: raw, Size: int64(len(raw))},
		Root:     1,
		Nodes:    map[int64]*domain.Node{},
		Children: map[int64][]int64{},
	}
	tree.Nodes[1] = &domain.Node{Key: 1, ShortID: "r001", DocID: "doc", Kind: domain.KindDocument, End: int64(len(raw))}

	sink := parser.PreOrder(parser.SinkFunc(func(_ context.Context, b parser.Block) error {
		key := int64(b.Seq + 1)
		parent := int64(b.Parent + 1)
		tree.Nodes[key] = &domain.Node{
			Key:       key,
			ShortID:   fmt.Sprintf("n%03d", key),
			DocID:     "doc",
			Kind:      b.Kind,
			Level:     b.Level,
			Title:     b.Title,
			Start:     b.Start,
			End:       b.End,
			ParentKey: &parent,
		}
		tree.Children[parent] = append(tree.Children[parent], key)
		return nil
	}))
	_, err := parser.New().Parse(context.Background(), strings.NewReader(input), sink)
	require.NoError(t, err)
	return tree
}

func keyOf(t *testing.T, tree *domain.DocumentTree, kind domain.NodeKind, nth int) int64 {
	t.Helper()
	for key := int64(1); key <= int64(len(tree.Nodes)); key++ {
		if n := tree.Node(key); n != nil && n.Kind == kind {
			if nth == 0 {
				return key
			}
			nth--
		}
	}
	t.Fatalf("no %s #%d", kind, nth)
	return 0
}

func TestFull_RoundTrip(t *testing.T) {
	inputs := map[string]string{
		"scenario":            scenario,
		"empty":               "",
		"no final newline":    "# A\ntext",
		"crlf":                "# A\r\n\r\ntext\r\n\r\n## B\r\nmore\r\n",
		"mixed endings":       "a\r\nb\n\r\n\nc\r\n",
		"trailing whitespace": "text   \n\n\t\n   ",
		"leading blank lines": "\n\n\n# H\n",
		"unterminated fence":  "# H\n```\n# inside\n\n",
		"deep nesting":        "# 1\n## 2\n### 3\n#### 4\np\n## 2b\nq\n# 1b\n",
		"only blanks":         "\n \n\t\n",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			tree := build(t, input)
			out, err := Full(context.Background(), tree)
			require.NoError(t, err)
			assert.Equal(t, input, string(out))
		})
	}
}

func TestFiltered_Scenario(t *testing.T) {
	tree := build(t, scenario)
	para := keyOf(t, tree, domain.KindParagraph, 0)
	code := tree.Node(keyOf(t, tree, domain.KindCodeBlock, 0))

	for _, policy := range []domain.ExpansionPolicy{domain.PolicyAncestors, domain.PolicyDirect} {
		t.Run(policy.String(), func(t *testing.T) {
			res, err := Filtered(context.Background(), tree, []int64{para}, domain.RenderOptions{Policy: policy})
			require.NoError(t, err)

			want := "# Title\n\nBody text.\n\n[[weft:" + code.ShortID + " code-block 16]]\n"
			assert.Equal(t, want, res.Text)
			assert.False(t, res.Truncated)
			require.Len(t, res.Placeholders, 1)
			assert.Equal(t, domain.Placeholder{ShortID: code.ShortID, Kind: domain.KindCodeBlock, Bytes: 16}, res.Placeholders[0])
		})
	}
}

func TestFiltered_ExpandedReportsPolicy(t *testing.T) {
	tree := build(t, scenario)
	para := keyOf(t, tree, domain.KindParagraph, 0)

	direct, err := Filtered(context.Background(), tree, []int64{para}, domain.RenderOptions{Policy: domain.PolicyDirect})
	require.NoError(t, err)
	assert.Equal(t, []string{tree.Node(para).ShortID}, direct.Expanded)

	anc, err := Filtered(context.Background(), tree, []int64{para}, domain.RenderOptions{Policy: domain.PolicyAncestors})
	require.NoError(t, err)
	assert.Equal(t, []string{"r001", "n002", "n003"}, anc.Expanded)
}

func TestFiltered_NoMatchesCollapsesSections(t *testing.T) {
	input := "intro\n\n# A\n\nalpha\n\n# B\n\nbeta\n"
	tree := build(t, input)

	res, err := Filtered(context.Background(), tree, nil, domain.RenderOptions{})
	require.NoError(t, err)

	want := "[[weft:n002 paragraph 6]]\n\n" +
		"# A\n[[weft:n003 heading 12]]\n" +
		"# B\n[[weft:n005 heading 10]]\n"
	assert.Equal(t, want, res.Text)
	assert.Len(t, res.Placeholders, 3)
}

func TestFiltered_Siblings(t *testing.T) {
	input := "# H\n\np1\n\np2\n\np3\n\np4\n"
	tree := build(t, input)
	p2 := keyOf(t, tree, domain.KindParagraph, 1)

	res, err := Filtered(context.Background(), tree, []int64{p2}, domain.RenderOptions{
		Policy: domain.PolicySiblings,
		Window: domain.Int(1),
	})
	require.NoError(t, err)

	p4 := tree.Node(keyOf(t, tree, domain.KindParagraph, 3))
	want := "# H\n\np1\n\np2\n\np3\n\n[[weft:" + p4.ShortID + " paragraph 3]]\n"
	assert.Equal(t, want, res.Text)
}

func TestFiltered_SiblingWindowZero(t *testing.T) {
	input := "p1\n\np2\n\np3\n"
	tree := build(t, input)
	p2 := keyOf(t, tree, domain.KindParagraph, 1)

	res, err := Filtered(context.Background(), tree, []int64{p2}, domain.RenderOptions{Policy: domain.PolicySiblings})
	require.NoError(t, err)
	assert.Len(t, res.Placeholders, 2)
	assert.Contains(t, res.Text, "\np2\n")
}

func TestFiltered_NestedHeadingKeepsOutline(t *testing.T) {
	input := "# A\n\nintro\n\n## B\n\ndeep\n\n## C\n\nother\n"
	tree := build(t, input)
	deep := keyOf(t, tree, domain.KindParagraph, 1)

	res, err := Filtered(context.Background(), tree, []int64{deep}, domain.RenderOptions{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Text, "# A\n\n[[weft:"))
	assert.Contains(t, res.Text, "## B\n\ndeep\n\n")
	assert.Contains(t, res.Text, "## C\n[[weft:")
}

func TestFiltered_PlaceholderReversibility(t *testing.T) {
	input := "pre\n# A\n\none\n\n```\ncode\n```\n## B\n\ntwo\n\n# C\nthree"
	tree := build(t, input)
	match := keyOf(t, tree, domain.KindParagraph, 1)

	res, err := Filtered(context.Background(), tree, []int64{match}, domain.RenderOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Placeholders)

	assert.Equal(t, res.Placeholders, domain.ExtractPlaceholders(res.Text))
	assertPlaceholderLines(t, res)
	for _, p := range res.Placeholders {
		n := tree.NodeByShortID(p.ShortID)
		require.NotNil(t, n, p.ShortID)
		b, err := Expand(n, tree.Document.Raw)
		require.NoError(t, err)
		assert.Equal(t, p.Bytes, int64(len(b)))
	}
}

func TestFiltered_LiteralPlaceholderTextIsNotListed(t *testing.T) {
	input := "# A\n\n[[weft:abcd paragraph 3]]\n\nother\n"
	tree := build(t, input)
	literal := keyOf(t, tree, domain.KindParagraph, 0)
	other := tree.Node(keyOf(t, tree, domain.KindParagraph, 1))

	res, err := Filtered(context.Background(), tree, []int64{literal}, domain.RenderOptions{Policy: domain.PolicyAncestors})
	require.NoError(t, err)

	assert.Len(t, domain.ExtractPlaceholders(res.Text), 2)
	assert.Equal(t, []domain.Placeholder{{ShortID: other.ShortID, Kind: domain.KindParagraph, Bytes: 6}}, res.Placeholders)
	assert.Equal(t, []int{4}, res.PlaceholderLines)
	assertPlaceholderLines(t, res)
}

func assertPlaceholderLines(t *testing.T, res *domain.RenderResult) {
	t.Helper()
	require.Len(t, res.PlaceholderLines, len(res.Placeholders))
	lines := strings.Split(res.Text, "\n")
	for i, at := range res.PlaceholderLines {
		require.Less(t, at, len(lines))
		assert.Equal(t, domain.FormatPlaceholder(res.Placeholders[i]), lines[at])
	}
}

func TestFiltered_CollapsedHeadingAtEOF(t *testing.T) {
	input := "# A\nlast"
	tree := build(t, input)

	res, err := Filtered(context.Background(), tree, []int64{}, domain.RenderOptions{Policy: domain.PolicyDirect})
	require.NoError(t, err)
	assert.Equal(t, "# A\n[[weft:n002 heading 8]]\n", res.Text)
}

func TestFiltered_Budget(t *testing.T) {
	input := "# A\n\n" + strings.Repeat("word ", 40) + "\n\n" + strings.Repeat("more ", 40) + "\n"
	tree := build(t, input)
	first := keyOf(t, tree, domain.KindParagraph, 0)
	second := keyOf(t, tree, domain.KindParagraph, 1)

	res, err := Filtered(context.Background(), tree, []int64{first, second}, domain.RenderOptions{Budget: domain.Int(100)})
	require.NoError(t, err)
	assert.True(t, res.Truncated)

	lines := strings.Split(strings.TrimSuffix(res.Text, "\n"), "\n")
	marker := lines[len(lines)-1]
	assert.True(t, strings.HasPrefix(marker, "[[weft:truncated "), marker)
	assert.LessOrEqual(t, len(res.Text)-len(marker)-1, 100)

	omitted := int64(len(input)) - int64(len("# A\n\n"))
	assert.Equal(t, domain.FormatTruncation(omitted), marker)
}

func TestFiltered_BudgetLargeEnough(t *testing.T) {
	tree := build(t, scenario)
	res, err := Filtered(context.Background(), tree, nil, domain.RenderOptions{Budget: domain.Int(1 << 20)})
	require.NoError(t, err)
	assert.False(t, res.Truncated)
}

func TestFiltered_InvalidOptions(t *testing.T) {
	tree := build(t, scenario)

	_, err := Filtered(context.Background(), tree, nil, domain.RenderOptions{Policy: "everything"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Filtered(context.Background(), tree, nil, domain.RenderOptions{Window: domain.Int(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Filtered(context.Background(), tree, nil, domain.RenderOptions{Budget: domain.Int(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRender_Cancelled(t *testing.T) {
	tree := build(t, scenario)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := Full(ctx, tree)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)

	res, err := Filtered(ctx, tree, nil, domain.RenderOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestFull_RejectsOverlappingChildren(t *testing.T) {
	tree := build(t, "a\n\nb\n")
	second := tree.Node(keyOf(t, tree, domain.KindParagraph, 1))
	second.Start = 0

	_, err := Full(context.Background(), tree)
	assert.ErrorIs(t, err, domain.ErrInvalidSpan)
}

func TestFull_RejectsOutOfBounds(t *testing.T) {
	tree := build(t, "a\n")
	tree.Node(tree.Root).End = 10

	_, err := Full(context.Background(), tree)
	assert.ErrorIs(t, err, domain.ErrInvalidSpan)
}

func TestFull_NoRoot(t *testing.T) {
	_, err := Full(context.Background(), &domain.DocumentTree{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExpand(t *testing.T) {
	tree := build(t, scenario)
	code := tree.Node(keyOf(t, tree, domain.KindCodeBlock, 0))

	b, err := Expand(code, tree.Document.Raw)
	require.NoError(t, err)
	assert.Equal(t, "```\npy code\n```\n", string(b))

	_, err = Expand(&domain.Node{Start: 5, End: 100}, tree.Document.Raw)
	assert.ErrorIs(t, err, domain.ErrInvalidSpan)

	_, err = Expand(nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOutline(t *testing.T) {
	tree := build(t, "# A\n\ntext\n\n## B\n\n```\nx\n```\n")

	out, err := Outline(tree)
	require.NoError(t, err)

	assert.Equal(t, domain.KindDocument, out.Kind)
	require.Len(t, out.Children, 1)
	a := out.Children[0]
	assert.Equal(t, "A", a.Title)
	assert.Equal(t, 1, a.Level)
	require.Len(t, a.Children, 2)
	assert.Equal(t, domain.KindParagraph, a.Children[0].Kind)
	assert.Equal(t, "B", a.Children[1].Title)
	require.Len(t, a.Children[1].Children, 1)
	assert.Equal(t, domain.KindCodeBlock, a.Children[1].Children[0].Kind)
}
