// Package textrep parses the human-readable text form of tuples, the same
// form produced by tuple.Tuple.String:
//
//	("users", 42, -1, 1.5, f32(0.25), true, nil, b"\x00\xff", uuid(…), ("nested",))
//
// Integers are decimal. A number is a float64 when it contains '.', 'e' or
// 'E', or is one of inf, -inf and nan. float32 values are wrapped in f32().
package textrep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ssargent/tuplekv/pkg/tuple"
)

// Parse parses a parenthesised tuple.
func Parse(s string) (tuple.Tuple, error) {
	p := &parser{lx: newLexer(s)}
	p.lx.next()
	t, err := p.parseTuple()
	if err == nil && p.lx.cur.kind != tokEOF {
		err = p.errorf("trailing %v", p.lx.cur.kind)
	}
	if p.lx.err != nil {
		err = p.lx.err
	}
	if err != nil {
		return tuple.Tuple{}, fmt.Errorf("textrep: %w", err)
	}
	return t, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level values.
func MustParse(s string) tuple.Tuple {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	lx *lexer
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", p.lx.cur.off, fmt.Sprintf(format, args...))
}

func (p *parser) expect(k tokKind) error {
	if p.lx.cur.kind != k {
		return p.errorf("expected %v, found %v", k, p.lx.cur.kind)
	}
	p.lx.next()
	return nil
}

func (p *parser) parseTuple() (tuple.Tuple, error) {
	if err := p.expect(tokLParen); err != nil {
		return tuple.Tuple{}, err
	}
	var elems []tuple.Element
	for p.lx.cur.kind != tokRParen {
		e, err := p.parseElement()
		if err != nil {
			return tuple.Tuple{}, err
		}
		elems = append(elems, e)
		if p.lx.cur.kind != tokComma {
			break
		}
		p.lx.next()
	}
	if err := p.expect(tokRParen); err != nil {
		return tuple.Tuple{}, err
	}
	return tuple.New(elems...), nil
}

func (p *parser) parseElement() (tuple.Element, error) {
	tok := p.lx.cur
	switch tok.kind {
	case tokLParen:
		return p.parseTuple()
	case tokString:
		if !utf8.ValidString(tok.lit) {
			return nil, p.errorf("string literal is not valid UTF-8 (use b\"...\" for raw bytes)")
		}
		p.lx.next()
		return tuple.Text(tok.lit), nil
	case tokBytes:
		p.lx.next()
		return tuple.Bytes(tok.lit), nil
	case tokNumber:
		p.lx.next()
		return parseNumber(tok.lit)
	case tokIdent:
		return p.parseIdent()
	}
	return nil, p.errorf("unexpected %v", tok.kind)
}

func (p *parser) parseIdent() (tuple.Element, error) {
	tok := p.lx.cur
	p.lx.next()
	switch tok.lit {
	case "nil":
		return tuple.Null{}, nil
	case "true":
		return tuple.Bool(true), nil
	case "false":
		return tuple.Bool(false), nil
	case "inf", "nan":
		return parseNumber(tok.lit)
	case "f32":
		if err := p.expect(tokLParen); err != nil {
			return nil, err
		}
		lit := p.lx.cur
		if lit.kind != tokNumber && lit.kind != tokIdent {
			return nil, p.errorf("expected float32 literal, found %v", lit.kind)
		}
		f, err := parseFloat(lit.lit, 32)
		if err != nil {
			return nil, p.errorf("%v", err)
		}
		p.lx.next()
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return tuple.Float32(f), nil
	case "uuid":
		if p.lx.cur.kind != tokLParen {
			return nil, p.errorf("expected %v after uuid", tokLParen)
		}
		raw := p.lx.rawUntil(')')
		u, err := uuid.Parse(raw)
		if err != nil {
			return nil, p.errorf("bad uuid %q: %v", raw, err)
		}
		p.lx.next()
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return tuple.UUID(u), nil
	}
	return nil, fmt.Errorf("offset %d: unknown identifier %q", tok.off, tok.lit)
}

func parseNumber(lit string) (tuple.Element, error) {
	if isFloatLiteral(lit) {
		f, err := parseFloat(lit, 64)
		if err != nil {
			return nil, err
		}
		return tuple.Float64(f), nil
	}
	v, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad integer %q: %w", lit, err)
	}
	return tuple.Int(v), nil
}

func isFloatLiteral(lit string) bool {
	switch strings.TrimLeft(lit, "+-") {
	case "inf", "nan":
		return true
	}
	return strings.ContainsAny(lit, ".eE")
}

func parseFloat(lit string, bitSize int) (float64, error) {
	switch lit {
	case "nan":
		return math.NaN(), nil
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(lit, bitSize)
	if err != nil {
		return 0, fmt.Errorf("bad float %q: %w", lit, err)
	}
	return f, nil
}
