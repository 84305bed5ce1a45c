package tuple

import "fmt"

// ErrorKind classifies decoding errors. It implements error so that callers
// can match with errors.Is(err, tuple.ErrTruncated).
type ErrorKind int

const (
	ErrUnknownTag ErrorKind = iota + 1
	ErrTruncated
	ErrIntOverflow
	ErrInvalidUTF8
	ErrNegativeUnsigned
	ErrUnsupportedType
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnknownTag:
		return "unknown type tag"
	case ErrTruncated:
		return "truncated payload"
	case ErrIntOverflow:
		return "integer overflow"
	case ErrInvalidUTF8:
		return "invalid utf-8"
	case ErrNegativeUnsigned:
		return "negative value for unsigned target"
	case ErrUnsupportedType:
		return "unsupported type"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

func (k ErrorKind) Error() string { return "tuple: " + k.String() }

// Error carries the offset of the element that failed to decode.
type Error struct {
	Offset int
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Detail == "" {
		return fmt.Sprintf("tuple: %s at offset %d", e.Kind.String(), e.Offset)
	}
	return fmt.Sprintf("tuple: %s at offset %d: %s", e.Kind.String(), e.Offset, e.Detail)
}

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind ErrorKind, offset int, format string, args ...any) *Error {
	return &Error{Offset: offset, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
