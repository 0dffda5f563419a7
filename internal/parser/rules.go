package parser

import "bytes"

// MaxHeadingLevel is the deepest ATX heading level.
const MaxHeadingLevel = 6

// headingLine recognises an ATX heading: 1-6 '#' at column 0 followed by
// a space, a tab, or the end of the line.
func headingLine(line []byte) (level int, title string, ok bool) {
	body := trimEOL(line)
	for level < len(body) && body[level] == '#' {
		level++
	}
	if level == 0 || level > MaxHeadingLevel {
		return 0, "", false
	}
	if level < len(body) && body[level] != ' ' && body[level] != '\t' {
		return 0, "", false
	}
	return level, headingTitle(body[level:]), true
}

// headingTitle trims the text after the marker and drops an optional
// closing '#' run.
func headingTitle(rest []byte) string {
	t := bytes.TrimSpace(rest)
	stripped := bytes.TrimRight(t, "#")
	if len(stripped) == 0 {
		return ""
	}
	if len(stripped) < len(t) {
		last := stripped[len(stripped)-1]
		if last == ' ' || last == '\t' {
			t = bytes.TrimSpace(stripped)
		}
	}
	return string(t)
}

// fence is an opening code fence.
type fence struct {
	char byte
	n    int
}

// openingFence recognises up to three spaces followed by at least three
// backticks or tildes.
func openingFence(line []byte) (fence, bool) {
	body := trimIndent(trimEOL(line))
	if len(body) < 3 || (body[0] != '`' && body[0] != '~') {
		return fence{}, false
	}
	n := runLength(body, body[0])
	if n < 3 {
		return fence{}, false
	}
	if body[0] == '`' && bytes.IndexByte(body[n:], '`') >= 0 {
		return fence{}, false
	}
	return fence{char: body[0], n: n}, true
}

// closes reports whether line closes the fence: the same character
// repeated at least as often, nothing else but whitespace.
func (f fence) closes(line []byte) bool {
	body := trimIndent(trimEOL(line))
	n := runLength(body, f.char)
	if n < f.n {
		return false
	}
	return len(bytes.TrimSpace(body[n:])) == 0
}

func runLength(b []byte, c byte) int {
	n := 0
	for n < len(b) && b[n] == c {
		n++
	}
	return n
}

// trimIndent removes up to three leading spaces.
func trimIndent(b []byte) []byte {
	for i := 0; i < 3 && len(b) > 0 && b[0] == ' '; i++ {
		b = b[1:]
	}
	return b
}

// trimEOL drops a trailing "\n" or "\r\n".
func trimEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}
