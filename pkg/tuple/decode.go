package tuple

import (
	"errors"
	"unicode/utf8"
)

// Decode decodes a complete encoded tuple. The empty buffer decodes to the
// empty tuple.
func Decode(b []byte) (Tuple, error) {
	elems, err := decodeElements(b)
	if err != nil {
		return Tuple{}, err
	}
	return Tuple{elems: elems}, nil
}

func decodeElements(b []byte) ([]Element, error) {
	var elems []Element
	for pos := 0; pos < len(b); {
		e, next, err := DecodeElement(b, pos)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		pos = next
	}
	return elems, nil
}

// DecodeElement decodes the single element whose type tag is at b[pos] and
// returns it with the offset just past its encoding.
func DecodeElement(b []byte, pos int) (Element, int, error) {
	if pos < 0 || pos >= len(b) {
		return nil, pos, newError(ErrTruncated, pos, "no type tag")
	}

	code := b[pos]
	switch {
	case code == nullCode:
		return Null{}, pos + 1, nil
	case code == bytesCode:
		raw, next, err := readEscaped(b, pos)
		if err != nil {
			return nil, pos, err
		}
		return Bytes(raw), next, nil
	case code == textCode:
		raw, next, err := readEscaped(b, pos)
		if err != nil {
			return nil, pos, err
		}
		if !utf8.Valid(raw) {
			return nil, pos, newError(ErrInvalidUTF8, pos, "text element")
		}
		return Text(raw), next, nil
	case code == nestedCode:
		return decodeNested(b, pos)
	case code >= negIntStart-1 && code <= posIntEnd+1:
		v, next, err := ReadInt[int64](b, pos)
		if err != nil {
			return nil, pos, err
		}
		return Int(v), next, nil
	case code == float32Code:
		return decodeFloat32(b, pos)
	case code == float64Code:
		return decodeFloat64(b, pos)
	case code == falseCode:
		return Bool(false), pos + 1, nil
	case code == trueCode:
		return Bool(true), pos + 1, nil
	case code == uuidCode:
		if len(b)-pos-1 < 16 {
			return nil, pos, newError(ErrTruncated, pos, "uuid needs 16 bytes, have %d", len(b)-pos-1)
		}
		var u UUID
		copy(u[:], b[pos+1:pos+17])
		return u, pos + 17, nil
	case code == versionstampCode:
		return nil, pos, newError(ErrUnsupportedType, pos, "versionstamp")
	}
	return nil, pos, newError(ErrUnknownTag, pos, "tag 0x%02x", code)
}

// readEscaped reads the escaped field that starts after the tag at b[pos].
// It returns the unescaped payload and the offset just past the terminator.
func readEscaped(b []byte, pos int) ([]byte, int, error) {
	out := make([]byte, 0, 16)
	for i := pos + 1; i < len(b); i++ {
		if b[i] != 0x00 {
			out = append(out, b[i])
			continue
		}
		if i+1 < len(b) && b[i+1] == escapeByte {
			out = append(out, 0x00)
			i++
			continue
		}
		return out, i + 1, nil
	}
	return nil, pos, newError(ErrTruncated, pos, "missing terminator")
}

func decodeNested(b []byte, pos int) (Element, int, error) {
	raw, next, err := readEscaped(b, pos)
	if err != nil {
		return nil, pos, err
	}
	elems, err := decodeElements(raw)
	if err != nil {
		var inner *Error
		if !errors.As(err, &inner) {
			return nil, pos, err
		}
		return nil, pos, newError(inner.Kind, pos, "nested tuple: offset %d: %s", inner.Offset, inner.Detail)
	}
	return Tuple{elems: elems}, next, nil
}
