// Package query parses the weft search grammar and compiles it to an
// SQLite FTS5 MATCH expression.
//
// Grammar:
//
//	query  = or
//	or     = and { "OR" and }
//	and    = unary { [ "AND" ] unary }
//	unary  = "NOT" unary | "-" unary | primary
//	primary = term [ "*" ] | '"' phrase '"' | "(" query ")"
//
// Adjacent operands are joined with an implicit AND. Every term and
// phrase is re-quoted on output, so FTS5 never interprets user text as
// syntax. A negation needs a positive sibling in the same AND group;
// queries such as "NOT a" or "a OR -b" are rejected instead of running an
// unintended broad match.
package query

import (
	"strings"
	"unicode"

	"github.com/custodia-labs/weft/internal/core/domain"
)

// Node is a parsed query expression.
type Node interface {
	node()
}

// Term matches one token, or every token with the prefix when Prefix is set.
type Term struct {
	Text   string
	Prefix bool
}

// Phrase matches a sequence of tokens.
type Phrase struct {
	Text string
}

// And matches when every child matches.
type And struct {
	Children []Node
}

// Or matches when any child matches.
type Or struct {
	Children []Node
}

// Not excludes matches of X from its enclosing And.
type Not struct {
	X Node
}

func (Term) node()   {}
func (Phrase) node() {}
func (And) node()    {}
func (Or) node()     {}
func (Not) node()    {}

// Query is a validated search query.
type Query struct {
	Raw  string
	Root Node
}

// syntaxError is converted to a domain.QueryError at the API boundary.
type syntaxError struct {
	pos int
	msg string
}

// Parse parses and validates q.
func Parse(q string) (*Query, error) {
	toks, serr := lex(q)
	if serr != nil {
		return nil, queryError(q, serr)
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, queryError(q, &syntaxError{pos: 0, msg: "empty query"})
	}

	root, serr := p.parseOr()
	if serr == nil && p.peek().kind != tokEOF {
		serr = p.unexpected()
	}
	if serr == nil {
		serr = validate(root, 0)
	}
	if serr != nil {
		return nil, queryError(q, serr)
	}
	return &Query{Raw: q, Root: root}, nil
}

// Compile parses q and returns its FTS5 MATCH expression.
func Compile(q string) (string, error) {
	parsed, err := Parse(q)
	if err != nil {
		return "", err
	}
	return parsed.MatchExpr(), nil
}

// MatchExpr renders the query as an FTS5 MATCH expression.
func (q *Query) MatchExpr() string {
	var sb strings.Builder
	emit(&sb, q.Root)
	return sb.String()
}

// Terms returns the positive terms and phrases in source order.
func (q *Query) Terms() []string {
	var out []string
	var walk func(n Node, negated bool)
	walk = func(n Node, negated bool) {
		switch v := n.(type) {
		case Term:
			if !negated {
				out = append(out, v.Text)
			}
		case Phrase:
			if !negated {
				out = append(out, v.Text)
			}
		case And:
			for _, c := range v.Children {
				walk(c, negated)
			}
		case Or:
			for _, c := range v.Children {
				walk(c, negated)
			}
		case Not:
			walk(v.X, !negated)
		}
	}
	walk(q.Root, false)
	return out
}

func queryError(q string, e *syntaxError) error {
	return &domain.QueryError{Query: q, Pos: e.pos, Msg: e.msg}
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) advance() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) unexpected() *syntaxError {
	t := p.peek()
	if t.kind == tokRParen {
		return &syntaxError{pos: t.pos, msg: "unbalanced parenthesis"}
	}
	return &syntaxError{pos: t.pos, msg: "unexpected " + t.kind.String()}
}

func (p *parser) parseOr() (Node, *syntaxError) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for p.peek().kind == tokOr {
		op := p.advance()
		if !p.startsUnary() {
			return nil, &syntaxError{pos: op.pos, msg: "expected operand after OR"}
		}
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return Or{Children: children}, nil
}

func (p *parser) parseAnd() (Node, *syntaxError) {
	if !p.startsUnary() {
		return nil, p.unexpected()
	}
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for {
		if p.peek().kind == tokAnd {
			op := p.advance()
			if !p.startsUnary() {
				return nil, &syntaxError{pos: op.pos, msg: "expected operand after AND"}
			}
		} else if !p.startsUnary() {
			break
		}
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return And{Children: children}, nil
}

func (p *parser) startsUnary() bool {
	switch p.peek().kind {
	case tokTerm, tokPhrase, tokNot, tokMinus, tokLParen:
		return true
	default:
		return false
	}
}

func (p *parser) parseUnary() (Node, *syntaxError) {
	switch t := p.peek(); t.kind {
	case tokNot, tokMinus:
		p.advance()
		if !p.startsUnary() {
			return nil, &syntaxError{pos: t.pos, msg: "expected operand after " + t.kind.String()}
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if inner, ok := x.(Not); ok {
			return inner.X, nil
		}
		return Not{X: x}, nil
	default:
		return p.parsePrimary()
	}
}

func (p *parser) parsePrimary() (Node, *syntaxError) {
	t := p.advance()
	switch t.kind {
	case tokTerm:
		return term(t)
	case tokPhrase:
		if !searchable(t.text) {
			return nil, &syntaxError{pos: t.pos, msg: "empty phrase"}
		}
		return Phrase{Text: t.text}, nil
	case tokLParen:
		if p.peek().kind == tokRParen {
			return nil, &syntaxError{pos: t.pos, msg: "empty group"}
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, &syntaxError{pos: t.pos, msg: "missing closing parenthesis"}
		}
		p.advance()
		return inner, nil
	default:
		return nil, &syntaxError{pos: t.pos, msg: "unexpected " + t.kind.String()}
	}
}

func term(t token) (Node, *syntaxError) {
	text := t.text
	prefix := false
	if strings.HasSuffix(text, "*") {
		text = strings.TrimSuffix(text, "*")
		prefix = true
	}
	if strings.Contains(text, "*") {
		return nil, &syntaxError{pos: t.pos, msg: "wildcard only allowed at the end of a term"}
	}
	if !searchable(text) {
		return nil, &syntaxError{pos: t.pos, msg: "term has no searchable characters"}
	}
	return Term{Text: text, Prefix: prefix}, nil
}

// searchable reports whether s holds at least one letter or digit.
func searchable(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

// validate rejects negations that FTS5 cannot express.
func validate(n Node, pos int) *syntaxError {
	switch v := n.(type) {
	case Not:
		return &syntaxError{pos: pos, msg: "negation needs a positive term in the same group"}
	case Or:
		for _, c := range v.Children {
			if err := validate(c, pos); err != nil {
				return err
			}
		}
	case And:
		positive := 0
		for _, c := range v.Children {
			if not, ok := c.(Not); ok {
				if err := validateNegated(not.X, pos); err != nil {
					return err
				}
				continue
			}
			positive++
			if err := validate(c, pos); err != nil {
				return err
			}
		}
		if positive == 0 {
			return &syntaxError{pos: pos, msg: "query is only negated"}
		}
	}
	return nil
}

// validateNegated checks the operand of a Not. Nested groups follow the
// usual rules, bare terms are always fine.
func validateNegated(n Node, pos int) *syntaxError {
	switch n.(type) {
	case Term, Phrase:
		return nil
	default:
		return validate(n, pos)
	}
}

func emit(sb *strings.Builder, n Node) {
	switch v := n.(type) {
	case Term:
		quote(sb, v.Text)
		if v.Prefix {
			sb.WriteByte('*')
		}
	case Phrase:
		quote(sb, v.Text)
	case Or:
		for i, c := range v.Children {
			if i > 0 {
				sb.WriteString(" OR ")
			}
			group(sb, c)
		}
	case And:
		var negs []Node
		first := true
		for _, c := range v.Children {
			if not, ok := c.(Not); ok {
				negs = append(negs, not.X)
				continue
			}
			if !first {
				sb.WriteString(" AND ")
			}
			first = false
			group(sb, c)
		}
		for _, neg := range negs {
			sb.WriteString(" NOT ")
			group(sb, neg)
		}
	}
}

// group wraps compound expressions in parentheses.
func group(sb *strings.Builder, n Node) {
	switch n.(type) {
	case And, Or:
		sb.WriteByte('(')
		emit(sb, n)
		sb.WriteByte(')')
	default:
		emit(sb, n)
	}
}

func quote(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	sb.WriteString(strings.ReplaceAll(s, `"`, `""`))
	sb.WriteByte('"')
}
