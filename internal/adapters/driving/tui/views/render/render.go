// Package render provides the document render view for the TUI. It shows a
// filtered render of one document, lets the user walk and expand its
// placeholders in place, and toggles to the full original bytes.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/weft/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/weft/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/weft/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/weft/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driving"
)

// ErrNoRenderService indicates that no render service was provided.
var ErrNoRenderService = errors.New("render service is required")

// reservedLines holds the title, separator, blank lines and status bar.
const reservedLines = 6

// View is the document render view.
type View struct {
	styles        *styles.Styles
	keymap        *keymap.KeyMap
	statusbar     *status.Bar
	renderService driving.RenderService
	ctx           context.Context

	docID  string
	sel    domain.Selection
	policy domain.ExpansionPolicy
	full   bool

	lines        []string
	placeholders []slot
	cursor       int // index into placeholders
	truncated    bool
	scrollOffset int

	width   int
	height  int
	loading bool
	err     error
}

// slot is a collapsed placeholder on screen.
type slot struct {
	line int
	p    domain.Placeholder
}

// NewView creates a new render view.
func NewView(s *styles.Styles, km *keymap.KeyMap, renderService driving.RenderService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	bar := status.NewBar(s, km)
	bar.SetState(status.StateRendering)

	return &View{
		styles:        s,
		keymap:        km,
		statusbar:     bar,
		renderService: renderService,
		ctx:           context.Background(),
		policy:        domain.PolicyAncestors,
		width:         80,
		height:        24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithPolicy sets the expansion policy used for filtered renders.
func (v *View) WithPolicy(policy domain.ExpansionPolicy) *View {
	if policy.IsValid() {
		v.policy = policy
	}
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Open starts a filtered render of docID for sel.
func (v *View) Open(docID string, sel domain.Selection) tea.Cmd {
	v.docID = docID
	v.sel = sel
	v.full = sel.IsEmpty()
	return v.reload()
}

func (v *View) reload() tea.Cmd {
	v.lines = nil
	v.placeholders = nil
	v.cursor = 0
	v.scrollOffset = 0
	v.truncated = false
	v.err = nil
	v.loading = true
	v.updateStatus()

	svc := v.renderService
	ctx := v.ctx
	docID := v.docID
	sel := v.sel
	full := v.full
	opts := domain.RenderOptions{Policy: v.policy}

	return func() tea.Msg {
		if svc == nil {
			return messages.RenderLoaded{DocID: docID, Err: ErrNoRenderService}
		}
		if full {
			raw, err := svc.RenderFull(ctx, docID)
			if raw == nil && err == nil {
				raw = []byte{}
			}
			return messages.RenderLoaded{DocID: docID, Full: raw, Err: err}
		}
		res, err := svc.RenderFiltered(ctx, docID, sel, opts)
		return messages.RenderLoaded{DocID: docID, Result: res, Err: err}
	}
}

// Update handles messages for the render view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.RenderLoaded:
		v.handleLoaded(msg)
		return v, nil

	case messages.NodeExpanded:
		v.handleExpanded(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Back):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewSearch} }
	case keymap.Matches(k, v.keymap.Up):
		v.scrollBy(-1)
	case keymap.Matches(k, v.keymap.Down):
		v.scrollBy(1)
	case k == "pgup" || k == "ctrl+u":
		v.scrollBy(-v.visibleLines())
	case k == "pgdown" || k == "ctrl+d":
		v.scrollBy(v.visibleLines())
	case k == "home" || k == "g":
		v.scrollOffset = 0
	case k == "end" || k == "G":
		v.scrollOffset = v.maxScrollOffset()
	case keymap.Matches(k, v.keymap.NextPlaceholder):
		v.moveCursor(1)
	case keymap.Matches(k, v.keymap.PrevPlaceholder):
		v.moveCursor(-1)
	case keymap.Matches(k, v.keymap.Expand):
		return v, v.expandCurrent()
	case keymap.Matches(k, v.keymap.ToggleFull):
		if v.docID == "" || (v.full && v.sel.IsEmpty()) {
			return v, nil
		}
		v.full = !v.full
		return v, v.reload()
	case keymap.Matches(k, v.keymap.CyclePolicy):
		if v.docID == "" || v.sel.IsEmpty() {
			return v, nil
		}
		v.policy = nextPolicy(v.policy)
		v.full = false
		return v, v.reload()
	}
	return v, nil
}

func (v *View) handleLoaded(msg messages.RenderLoaded) {
	if msg.DocID != v.docID {
		return
	}
	v.loading = false
	if msg.Err != nil {
		v.err = msg.Err
		v.updateStatus()
		return
	}

	switch {
	case msg.Result != nil:
		v.lines = splitLines(msg.Result.Text)
		v.truncated = msg.Result.Truncated
		v.placeholders = slotsFor(msg.Result, v.lines)
	case msg.Full != nil:
		v.lines = splitLines(string(msg.Full))
		v.placeholders = nil
	}
	v.clampCursor()
	v.updateStatus()
}

func (v *View) expandCurrent() tea.Cmd {
	p, ok := v.CurrentPlaceholder()
	if !ok {
		return nil
	}
	svc := v.renderService
	ctx := v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.NodeExpanded{ShortID: p.ShortID, Err: ErrNoRenderService}
		}
		raw, err := svc.Expand(ctx, p.ShortID)
		return messages.NodeExpanded{ShortID: p.ShortID, Bytes: raw, Err: err}
	}
}

// handleExpanded splices the node bytes over its placeholder line.
func (v *View) handleExpanded(msg messages.NodeExpanded) {
	if msg.Err != nil {
		v.err = fmt.Errorf("expanding %s: %w", msg.ShortID, msg.Err)
		return
	}
	v.err = nil
	idx := -1
	for i, sl := range v.placeholders {
		if sl.p.ShortID == msg.ShortID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	at := v.placeholders[idx].line
	body := splitLines(string(msg.Bytes))
	spliced := make([]string, 0, len(v.lines)+len(body))
	spliced = append(spliced, v.lines[:at]...)
	spliced = append(spliced, body...)
	spliced = append(spliced, v.lines[at+1:]...)
	v.lines = spliced

	shift := len(body) - 1
	v.placeholders = append(v.placeholders[:idx], v.placeholders[idx+1:]...)
	for i := idx; i < len(v.placeholders); i++ {
		v.placeholders[i].line += shift
	}
	v.clampCursor()
	v.updateStatus()
}

// slotsFor pairs the placeholders of res with their output lines. Entries
// whose line does not hold the placeholder are dropped.
func slotsFor(res *domain.RenderResult, lines []string) []slot {
	var out []slot
	for i, p := range res.Placeholders {
		if i >= len(res.PlaceholderLines) {
			break
		}
		at := res.PlaceholderLines[i]
		if at < 0 || at >= len(lines) || lines[at] != domain.FormatPlaceholder(p) {
			continue
		}
		out = append(out, slot{line: at, p: p})
	}
	return out
}

func (v *View) clampCursor() {
	if v.cursor >= len(v.placeholders) {
		v.cursor = len(v.placeholders) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
}

func (v *View) moveCursor(delta int) {
	n := len(v.placeholders)
	if n == 0 {
		return
	}
	v.cursor = ((v.cursor+delta)%n + n) % n

	line := v.placeholders[v.cursor].line
	if line < v.scrollOffset {
		v.scrollOffset = line
	} else if line >= v.scrollOffset+v.visibleLines() {
		v.scrollOffset = line - v.visibleLines() + 1
	}
}

func (v *View) scrollBy(delta int) {
	v.scrollOffset += delta
	if v.scrollOffset > v.maxScrollOffset() {
		v.scrollOffset = v.maxScrollOffset()
	}
	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
}

func (v *View) visibleLines() int {
	available := v.height - reservedLines
	if available < 1 {
		available = 1
	}
	return available
}

func (v *View) maxScrollOffset() int {
	maxOffset := len(v.lines) - v.visibleLines()
	if maxOffset < 0 {
		maxOffset = 0
	}
	return maxOffset
}

func (v *View) updateStatus() {
	label := v.docID
	if v.full {
		label += " · full"
	} else {
		label += " · " + v.policy.String()
	}
	v.statusbar.SetState(status.StateRendering)
	v.statusbar.SetMessage(label)
	v.statusbar.SetRenderInfo(len(v.placeholders), v.truncated)
}

// View renders the document view.
func (v *View) View() string {
	var b strings.Builder

	title := v.docID
	if title == "" {
		title = "Render"
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", minInt(v.width-4, 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Rendering..."))
	case v.err != nil && len(v.lines) == 0:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No content)"))
	default:
		b.WriteString(v.renderLines())
		if v.err != nil {
			b.WriteString("\n")
			b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.statusbar.View())
	return b.String()
}

func (v *View) renderLines() string {
	current := -1
	if len(v.placeholders) > 0 {
		current = v.placeholders[v.cursor].line
	}
	collapsed := make(map[int]bool, len(v.placeholders))
	for _, sl := range v.placeholders {
		collapsed[sl.line] = true
	}
	maxWidth := v.width - 4
	if maxWidth < 20 {
		maxWidth = 20
	}

	end := minInt(v.scrollOffset+v.visibleLines(), len(v.lines))
	out := make([]string, 0, end-v.scrollOffset)
	for i := v.scrollOffset; i < end; i++ {
		line := clip(v.lines[i], maxWidth)
		switch {
		case i == current:
			out = append(out, v.styles.PlaceholderCursor.Render("> "+line))
		case collapsed[i]:
			out = append(out, v.styles.Placeholder.Render("  "+line))
		default:
			out = append(out, v.styles.Normal.Render("  "+line))
		}
	}
	return strings.Join(out, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.statusbar.SetWidth(width)
	v.scrollBy(0)
}

// DocID returns the document on screen.
func (v *View) DocID() string {
	return v.docID
}

// Text returns the current text, with expanded placeholders spliced in.
func (v *View) Text() string {
	return strings.Join(v.lines, "\n")
}

// Full reports whether the full original bytes are on screen.
func (v *View) Full() bool {
	return v.full
}

// Policy returns the expansion policy of filtered renders.
func (v *View) Policy() domain.ExpansionPolicy {
	return v.policy
}

// Truncated reports whether the render was cut by the byte budget.
func (v *View) Truncated() bool {
	return v.truncated
}

// PlaceholderCount returns the number of placeholders still collapsed.
func (v *View) PlaceholderCount() int {
	return len(v.placeholders)
}

// CurrentPlaceholder returns the placeholder under the cursor.
func (v *View) CurrentPlaceholder() (domain.Placeholder, bool) {
	if len(v.placeholders) == 0 {
		return domain.Placeholder{}, false
	}
	return v.placeholders[v.cursor].p, true
}

// ScrollOffset returns the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

func nextPolicy(p domain.ExpansionPolicy) domain.ExpansionPolicy {
	all := domain.AllExpansionPolicies()
	for i, candidate := range all {
		if candidate == p {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

// splitLines splits text into lines, dropping the empty tail after a final newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
