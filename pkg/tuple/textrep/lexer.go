package textrep

import (
	"fmt"
	"strconv"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokString
	tokBytes
	// symbols
	tokComma  // ,
	tokLParen // (
	tokRParen // )
)

func (k tokKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokBytes:
		return "byte string"
	case tokComma:
		return "','"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	}
	return fmt.Sprintf("token(%d)", int(k))
}

type token struct {
	kind tokKind
	lit  string // unquoted value for strings and byte strings
	off  int
}

type lexer struct {
	src string
	off int
	cur token
	err error
}

func newLexer(src string) *lexer { return &lexer{src: src} }

func (lx *lexer) next() {
	lx.skipSpace()
	if lx.off >= len(lx.src) {
		lx.cur = token{kind: tokEOF, off: lx.off}
		return
	}
	start := lx.off
	b := lx.src[lx.off]
	switch {
	case b == '(':
		lx.off++
		lx.cur = token{kind: tokLParen, off: start}
	case b == ')':
		lx.off++
		lx.cur = token{kind: tokRParen, off: start}
	case b == ',':
		lx.off++
		lx.cur = token{kind: tokComma, off: start}
	case b == '"':
		s, n, err := scanQuoted(lx.src[lx.off:])
		if err != nil {
			lx.fail(start, err)
			return
		}
		lx.off += n
		lx.cur = token{kind: tokString, lit: s, off: start}
	case b == 'b' && lx.off+1 < len(lx.src) && lx.src[lx.off+1] == '"':
		s, n, err := scanQuoted(lx.src[lx.off+1:])
		if err != nil {
			lx.fail(start, err)
			return
		}
		lx.off += n + 1
		lx.cur = token{kind: tokBytes, lit: s, off: start}
	case isDigit(b) || b == '-' || b == '+' || b == '.':
		lx.off++
		for lx.off < len(lx.src) && isNumberPart(lx.src[lx.off]) {
			lx.off++
		}
		lx.cur = token{kind: tokNumber, lit: lx.src[start:lx.off], off: start}
	case isIdentStart(b):
		lx.off++
		for lx.off < len(lx.src) && isIdentPart(lx.src[lx.off]) {
			lx.off++
		}
		lx.cur = token{kind: tokIdent, lit: lx.src[start:lx.off], off: start}
	default:
		lx.fail(start, fmt.Errorf("unexpected character %q", b))
	}
}

// rawUntil returns the text up to, not including, the next stop byte and
// leaves the lexer positioned on it.
func (lx *lexer) rawUntil(stop byte) string {
	lx.skipSpace()
	start := lx.off
	for lx.off < len(lx.src) && lx.src[lx.off] != stop {
		lx.off++
	}
	end := lx.off
	for end > start && isSpace(lx.src[end-1]) {
		end--
	}
	return lx.src[start:end]
}

func (lx *lexer) fail(off int, err error) {
	if lx.err == nil {
		lx.err = fmt.Errorf("offset %d: %w", off, err)
	}
	lx.cur = token{kind: tokEOF, off: off}
}

func (lx *lexer) skipSpace() {
	for lx.off < len(lx.src) && isSpace(lx.src[lx.off]) {
		lx.off++
	}
}

// scanQuoted unquotes the Go-style string literal at the start of src and
// returns it with the number of bytes consumed.
func scanQuoted(src string) (string, int, error) {
	for i := 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '"':
			s, err := strconv.Unquote(src[:i+1])
			if err != nil {
				return "", 0, fmt.Errorf("bad string literal %s: %w", src[:i+1], err)
			}
			return s, i + 1, nil
		}
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}

func isSpace(b byte) bool      { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }
func isDigit(b byte) bool      { return '0' <= b && b <= '9' }
func isIdentStart(b byte) bool { return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') }
func isIdentPart(b byte) bool  { return isIdentStart(b) || isDigit(b) }
func isNumberPart(b byte) bool { return isIdentPart(b) || b == '.' || b == '+' || b == '-' }
