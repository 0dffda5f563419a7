package parser

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/custodia-labs/weft/internal/core/domain"
)

// RootSeq is the sequence number of the implicit document root.
const RootSeq = 0

// DefaultBufferSize is the default read buffer size in bytes.
const DefaultBufferSize = 64 * 1024

// Block is one closed structural span.
type Block struct {
	// Seq is the open order of the block, starting at 1. Sorting by Seq
	// yields document (pre-)order.
	Seq int

	// Parent is the Seq of the containing heading, or RootSeq.
	Parent int

	Kind  domain.NodeKind
	Start int64
	End   int64

	// Level and Title are set for headings only.
	Level int
	Title string
}

// Sink receives blocks as they close. Leaves close before the heading
// that contains them.
type Sink interface {
	Block(ctx context.Context, b Block) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, b Block) error

// Block calls f.
func (f SinkFunc) Block(ctx context.Context, b Block) error {
	return f(ctx, b)
}

// Stats summarises one parse.
type Stats struct {
	Bytes  int64
	Lines  int
	Blocks int
}

// Parser is a streaming block parser. It is stateless between calls and
// safe for concurrent use.
type Parser struct {
	bufSize int
}

// Option configures the parser.
type Option func(*Parser)

// WithBufferSize sets the read buffer size in bytes.
func WithBufferSize(size int) Option {
	return func(p *Parser) {
		if size >= 16 {
			p.bufSize = size
		}
	}
}

// New creates a new parser with the given options.
func New(opts ...Option) *Parser {
	p := &Parser{bufSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// openKind tags the block currently accumulating lines.
type openKind int

const (
	openNone openKind = iota
	openParagraph
	openCode
)

// openBlock is the tagged "open block" variant threaded through the scan.
type openBlock struct {
	kind   openKind
	seq    int
	parent int
	start  int64
	end    int64
	fence  fence
}

// openHeading is an entry of the heading stack.
type openHeading struct {
	seq    int
	parent int
	level  int
	start  int64
	title  string
}

// scan holds the state of one Parse call.
type scan struct {
	ctx      context.Context
	sink     Sink
	next     int
	block    openBlock
	headings []openHeading
	stats    Stats
}

// Parse reads r to the end and emits every block to sink. It returns an
// error only when reading fails, the context is cancelled, or the sink
// rejects a block.
func (p *Parser) Parse(ctx context.Context, r io.Reader, sink Sink) (Stats, error) {
	if sink == nil {
		return Stats{}, fmt.Errorf("parser: %w: nil sink", domain.ErrInvalidInput)
	}

	s := &scan{ctx: ctx, sink: sink, next: 1}
	lines := newLineReader(r, p.bufSize)

	for {
		line, err := lines.next()
		if len(line) > 0 {
			if cerr := ctx.Err(); cerr != nil {
				return s.stats, cerr
			}
			if lerr := s.line(line); lerr != nil {
				return s.stats, lerr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s.stats, fmt.Errorf("reading input: %w", err)
		}
	}

	if err := s.finish(); err != nil {
		return s.stats, err
	}
	return s.stats, nil
}

// line classifies one line, terminator included.
func (s *scan) line(line []byte) error {
	start := s.stats.Bytes
	end := start + int64(len(line))
	s.stats.Bytes = end
	s.stats.Lines++

	if s.block.kind == openCode {
		if s.block.fence.closes(line) {
			s.block.end = end
			return s.closeBlock()
		}
		s.block.end = end
		return nil
	}

	if level, title, ok := headingLine(line); ok {
		if err := s.closeBlock(); err != nil {
			return err
		}
		if err := s.closeHeadings(level, start); err != nil {
			return err
		}
		s.headings = append(s.headings, openHeading{
			seq:    s.take(),
			parent: s.container(),
			level:  level,
			start:  start,
			title:  title,
		})
		return nil
	}

	if f, ok := openingFence(line); ok {
		if err := s.closeBlock(); err != nil {
			return err
		}
		s.block = openBlock{
			kind:   openCode,
			seq:    s.take(),
			parent: s.container(),
			start:  start,
			end:    end,
			fence:  f,
		}
		return nil
	}

	if isBlank(line) {
		return s.closeBlock()
	}

	if s.block.kind == openParagraph {
		s.block.end = end
		return nil
	}
	s.block = openBlock{
		kind:   openParagraph,
		seq:    s.take(),
		parent: s.container(),
		start:  start,
		end:    end,
	}
	return nil
}

// finish closes everything still open at end of input.
func (s *scan) finish() error {
	if s.block.kind == openCode {
		s.block.end = s.stats.Bytes
	}
	if err := s.closeBlock(); err != nil {
		return err
	}
	return s.closeHeadings(1, s.stats.Bytes)
}

// take allocates the next sequence number.
func (s *scan) take() int {
	seq := s.next
	s.next++
	return seq
}

// container returns the Seq of the innermost open heading.
func (s *scan) container() int {
	if len(s.headings) == 0 {
		return RootSeq
	}
	return s.headings[len(s.headings)-1].seq
}

// closeBlock emits the open leaf, if any.
func (s *scan) closeBlock() error {
	b := s.block
	s.block = openBlock{}

	var kind domain.NodeKind
	switch b.kind {
	case openNone:
		return nil
	case openParagraph:
		kind = domain.KindParagraph
	case openCode:
		kind = domain.KindCodeBlock
	}
	return s.emit(Block{Seq: b.seq, Parent: b.parent, Kind: kind, Start: b.start, End: b.end})
}

// closeHeadings pops and emits every open heading at level >= level,
// innermost first, ending their sections at end.
func (s *scan) closeHeadings(level int, end int64) error {
	for len(s.headings) > 0 {
		top := s.headings[len(s.headings)-1]
		if top.level < level {
			return nil
		}
		s.headings = s.headings[:len(s.headings)-1]
		err := s.emit(Block{
			Seq:    top.seq,
			Parent: top.parent,
			Kind:   domain.KindHeading,
			Start:  top.start,
			End:    end,
			Level:  top.level,
			Title:  top.title,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *scan) emit(b Block) error {
	s.stats.Blocks++
	if err := s.sink.Block(s.ctx, b); err != nil {
		return fmt.Errorf("emitting %s block %d: %w", b.Kind, b.Seq, err)
	}
	return nil
}

// lineReader yields lines with their terminators. The returned slice is
// only valid until the next call.
type lineReader struct {
	r   *bufio.Reader
	buf []byte
}

func newLineReader(r io.Reader, size int) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, size)}
}

func (l *lineReader) next() ([]byte, error) {
	l.buf = l.buf[:0]
	for {
		chunk, err := l.r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			l.buf = append(l.buf, chunk...)
			continue
		}
		if len(l.buf) == 0 {
			return chunk, err
		}
		l.buf = append(l.buf, chunk...)
		return l.buf, err
	}
}

// isBlank reports whether the line holds only whitespace.
func isBlank(line []byte) bool {
	return len(bytes.TrimSpace(line)) == 0
}
