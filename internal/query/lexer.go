package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokTerm
	tokPhrase
	tokAnd
	tokOr
	tokNot
	tokMinus
	tokLParen
	tokRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokTerm:
		return "term"
	case tokPhrase:
		return "phrase"
	case tokAnd:
		return "AND"
	case tokOr:
		return "OR"
	case tokNot:
		return "NOT"
	case tokMinus:
		return "-"
	case tokLParen:
		return "("
	case tokRParen:
		return ")"
	default:
		return "unknown"
	}
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits the query into tokens. Operators are recognised only in
// upper case, matching FTS5.
func lex(q string) ([]token, *syntaxError) {
	var out []token
	i := 0
	for i < len(q) {
		r, size := utf8.DecodeRuneInString(q[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '(':
			out = append(out, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			out = append(out, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == '"':
			end := strings.IndexByte(q[i+1:], '"')
			if end < 0 {
				return nil, &syntaxError{pos: i, msg: "unterminated phrase"}
			}
			out = append(out, token{kind: tokPhrase, text: q[i+1 : i+1+end], pos: i})
			i += end + 2
		case r == '-' && i+1 < len(q) && startsOperand(q[i+1]):
			out = append(out, token{kind: tokMinus, text: "-", pos: i})
			i++
		default:
			start := i
			for i < len(q) {
				r, size := utf8.DecodeRuneInString(q[i:])
				if unicode.IsSpace(r) || r == '(' || r == ')' || r == '"' {
					break
				}
				i += size
			}
			word := q[start:i]
			out = append(out, token{kind: keyword(word), text: word, pos: start})
		}
	}
	out = append(out, token{kind: tokEOF, pos: len(q)})
	return out, nil
}

// startsOperand reports whether c may follow a negating '-'.
func startsOperand(c byte) bool {
	return c != ' ' && c != '\t' && c != '\n' && c != '\r' && c != ')' && c != '-'
}

func keyword(word string) tokenKind {
	switch word {
	case "AND":
		return tokAnd
	case "OR":
		return tokOr
	case "NOT":
		return tokNot
	default:
		return tokTerm
	}
}
