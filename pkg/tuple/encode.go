package tuple

import "fmt"

func appendElement(dst []byte, e Element) []byte {
	switch e := e.(type) {
	case nil, Null:
		return append(dst, nullCode)
	case Bytes:
		return appendEscaped(append(dst, bytesCode), e)
	case Text:
		return appendEscaped(append(dst, textCode), e)
	case Bool:
		if e {
			return append(dst, trueCode)
		}
		return append(dst, falseCode)
	case Int:
		return appendInt(dst, int64(e))
	case Float32:
		return appendFloat32(dst, float32(e))
	case Float64:
		return appendFloat64(dst, float64(e))
	case UUID:
		dst = append(dst, uuidCode)
		return append(dst, e[:]...)
	case Tuple:
		return appendNested(dst, e)
	default:
		panic(fmt.Sprintf("tuple: unknown element type %T", e))
	}
}

// appendEscaped writes s followed by the 0x00 terminator, doubling every
// embedded 0x00 into 0x00 0xFF.
func appendEscaped[S ~string | ~[]byte](dst []byte, s S) []byte {
	for i := 0; i < len(s); i++ {
		dst = append(dst, s[i])
		if s[i] == 0x00 {
			dst = append(dst, escapeByte)
		}
	}
	return append(dst, 0x00)
}

// appendNested escapes every 0x00 of the children's encoding, not only the
// ones inside strings, because the nested region ends at a lone 0x00.
func appendNested(dst []byte, t Tuple) []byte {
	dst = append(dst, nestedCode)
	return appendEscaped(dst, t.Encode())
}
