package tuple

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Tuple is an ordered, immutable sequence of elements. The zero value is the
// empty tuple. A Tuple is itself an Element, which is how nesting works.
type Tuple struct {
	elems []Element
}

// New builds a tuple from elements. Nil elements become Null.
func New(elems ...Element) Tuple {
	if len(elems) == 0 {
		return Tuple{}
	}
	cp := make([]Element, len(elems))
	for i, e := range elems {
		if e == nil {
			e = Null{}
		}
		cp[i] = e
	}
	return Tuple{elems: cp}
}

// Of builds a tuple from native Go values. Supported values are nil,
// Element implementations, []byte, string, bool, every integer type that
// fits in an int64, float32, float64, uuid.UUID and []any (nested).
func Of(values ...any) (Tuple, error) {
	elems := make([]Element, len(values))
	for i, v := range values {
		e, err := elementOf(v)
		if err != nil {
			return Tuple{}, fmt.Errorf("tuple: value %d: %w", i, err)
		}
		elems[i] = e
	}
	return Tuple{elems: elems}, nil
}

func elementOf(v any) (Element, error) {
	switch v := v.(type) {
	case nil:
		return Null{}, nil
	case Element:
		if err := validElement(v); err != nil {
			return nil, err
		}
		return v, nil
	case []byte:
		return Bytes(bytes.Clone(v)), nil
	case string:
		if !utf8.ValidString(v) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidUTF8, v)
		}
		return Text(v), nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(v), nil
	case int8:
		return Int(v), nil
	case int16:
		return Int(v), nil
	case int32:
		return Int(v), nil
	case int64:
		return Int(v), nil
	case uint8:
		return Int(v), nil
	case uint16:
		return Int(v), nil
	case uint32:
		return Int(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows int64", v)
		}
		return Int(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows int64", v)
		}
		return Int(v), nil
	case float32:
		return Float32(v), nil
	case float64:
		return Float64(v), nil
	case uuid.UUID:
		return UUID(v), nil
	case []any:
		return Of(v...)
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}

func (Tuple) Kind() Kind { return KindTuple }
func (Tuple) isElement() {}

// Len returns the number of elements.
func (t Tuple) Len() int { return len(t.elems) }

// At returns the element at position i, or false when i is out of range.
func (t Tuple) At(i int) (Element, bool) {
	if i < 0 || i >= len(t.elems) {
		return nil, false
	}
	return t.elems[i], true
}

// Elements returns a copy of the element slice.
func (t Tuple) Elements() []Element {
	return append([]Element(nil), t.elems...)
}

// Append returns a new tuple with elems added after the existing elements.
func (t Tuple) Append(elems ...Element) Tuple {
	out := make([]Element, 0, len(t.elems)+len(elems))
	out = append(out, t.elems...)
	return New(append(out, elems...)...)
}

// Encode returns the encoding of the tuple.
func (t Tuple) Encode() []byte {
	return t.AppendEncoded(nil)
}

// AppendEncoded appends the encoding of the tuple to dst.
func (t Tuple) AppendEncoded(dst []byte) []byte {
	for _, e := range t.elems {
		dst = appendElement(dst, e)
	}
	return dst
}

// Equal reports whether both tuples hold the same elements, comparing each
// pair by its encoding.
func (t Tuple) Equal(o Tuple) bool {
	if len(t.elems) != len(o.elems) {
		return false
	}
	for i := range t.elems {
		if !ElementEqual(t.elems[i], o.elems[i]) {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p's elements are the leading elements of t.
func (t Tuple) HasPrefix(p Tuple) bool {
	if len(p.elems) > len(t.elems) {
		return false
	}
	for i := range p.elems {
		if !ElementEqual(t.elems[i], p.elems[i]) {
			return false
		}
	}
	return true
}

// Validate reports the first Text element, at any depth, that is not valid
// UTF-8. Such a tuple still encodes but cannot be decoded again.
func (t Tuple) Validate() error {
	for i, e := range t.elems {
		if err := validElement(e); err != nil {
			return fmt.Errorf("tuple: element %d: %w", i, err)
		}
	}
	return nil
}

func validElement(e Element) error {
	switch e := e.(type) {
	case Text:
		if !utf8.ValidString(string(e)) {
			return fmt.Errorf("%w: %q", ErrInvalidUTF8, string(e))
		}
	case Tuple:
		return e.Validate()
	}
	return nil
}

// Hash returns a 64-bit hash of the encoding. Equal tuples hash equally.
func (t Tuple) Hash() uint64 {
	return xxhash.Sum64(t.Encode())
}

// Range returns the child range of t: every encoded tuple that has t as a
// strict prefix sorts within [begin, end).
func (t Tuple) Range() (begin, end []byte) {
	enc := t.Encode()
	begin = make([]byte, len(enc)+1)
	copy(begin, enc)
	begin[len(enc)] = 0x00
	end = append(enc, 0xFF)
	return begin, end
}

func (t Tuple) String() string {
	parts := make([]string, len(t.elems))
	for i, e := range t.elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Compare orders two tuples by their encodings.
func Compare(a, b Tuple) int {
	return bytes.Compare(a.Encode(), b.Encode())
}

// ElementEqual compares two elements by their encodings.
func ElementEqual(a, b Element) bool {
	return bytes.Equal(appendElement(nil, a), appendElement(nil, b))
}
