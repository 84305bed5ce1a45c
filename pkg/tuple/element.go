package tuple

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Type tags. Integers occupy the contiguous range intZeroCode±maxIntBytes.
const (
	nullCode         = 0x00
	bytesCode        = 0x01
	textCode         = 0x02
	nestedCode       = 0x05
	intZeroCode      = 0x14
	float32Code      = 0x20
	float64Code      = 0x21
	falseCode        = 0x26
	trueCode         = 0x27
	uuidCode         = 0x30
	versionstampCode = 0x33

	maxIntBytes = 8
	negIntStart = intZeroCode - maxIntBytes
	posIntEnd   = intZeroCode + maxIntBytes

	escapeByte = 0xFF
)

// Kind identifies the variant held by an Element.
type Kind uint8

const (
	KindNull Kind = iota
	KindBytes
	KindText
	KindTuple
	KindInt
	KindFloat32
	KindFloat64
	KindBool
	KindUUID
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBytes:
		return "bytes"
	case KindText:
		return "text"
	case KindTuple:
		return "tuple"
	case KindInt:
		return "int"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindUUID:
		return "uuid"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// TagRange returns the first and last type tags an element of kind k can
// encode with. Every encoding of such an element, at any position, starts
// with a byte in [first, last].
func TagRange(k Kind) (first, last byte) {
	switch k {
	case KindNull:
		return nullCode, nullCode
	case KindBytes:
		return bytesCode, bytesCode
	case KindText:
		return textCode, textCode
	case KindTuple:
		return nestedCode, nestedCode
	case KindInt:
		return negIntStart, posIntEnd
	case KindFloat32:
		return float32Code, float32Code
	case KindFloat64:
		return float64Code, float64Code
	case KindBool:
		return falseCode, trueCode
	case KindUUID:
		return uuidCode, uuidCode
	}
	return 0xFF, 0x00
}

// Element is one typed value of a tuple. The set of implementations is
// closed: Null, Bytes, Text, Bool, Int, Float32, Float64, UUID and Tuple.
type Element interface {
	Kind() Kind
	String() string
	isElement()
}

// Null is the absent value.
type Null struct{}

// Bytes is an opaque byte string. The slice must not be modified once it is
// part of a tuple.
type Bytes []byte

// Text is a UTF-8 string.
type Text string

// Bool is a boolean.
type Bool bool

// Int is a signed 64-bit integer.
type Int int64

// Float32 is an IEEE-754 single precision value.
type Float32 float32

// Float64 is an IEEE-754 double precision value.
type Float64 float64

// UUID is a 128-bit UUID in RFC 4122 byte order.
type UUID uuid.UUID

func (Null) Kind() Kind    { return KindNull }
func (Bytes) Kind() Kind   { return KindBytes }
func (Text) Kind() Kind    { return KindText }
func (Bool) Kind() Kind    { return KindBool }
func (Int) Kind() Kind     { return KindInt }
func (Float32) Kind() Kind { return KindFloat32 }
func (Float64) Kind() Kind { return KindFloat64 }
func (UUID) Kind() Kind    { return KindUUID }

func (Null) isElement()    {}
func (Bytes) isElement()   {}
func (Text) isElement()    {}
func (Bool) isElement()    {}
func (Int) isElement()     {}
func (Float32) isElement() {}
func (Float64) isElement() {}
func (UUID) isElement()    {}

func (Null) String() string { return "nil" }

func (b Bytes) String() string {
	var sb strings.Builder
	sb.WriteString(`b"`)
	for _, c := range b {
		switch {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c >= 0x20 && c < 0x7F:
			sb.WriteByte(c)
		default:
			const hex = "0123456789abcdef"
			sb.WriteString(`\x`)
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&0x0F])
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func (t Text) String() string { return strconv.Quote(string(t)) }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

func (f Float32) String() string { return "f32(" + formatFloat(float64(f), 32) + ")" }

func (f Float64) String() string { return formatFloat(float64(f), 64) }

func (u UUID) String() string { return "uuid(" + uuid.UUID(u).String() + ")" }

// formatFloat always yields a literal that reads back as a float: it carries
// a '.' or an exponent, or is one of inf, -inf and nan.
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
