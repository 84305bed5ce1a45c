package tuple

import (
	"encoding/binary"
	"math"
)

// Floats are stored as their IEEE-754 bits with the sign bit flipped for
// non-negative values and every bit flipped for negative values, which makes
// the big-endian bytes sort in numeric order.

func appendFloat32(dst []byte, f float32) []byte {
	u := math.Float32bits(f)
	if u&(1<<31) != 0 {
		u = ^u
	} else {
		u ^= 1 << 31
	}
	return binary.BigEndian.AppendUint32(append(dst, float32Code), u)
}

func appendFloat64(dst []byte, f float64) []byte {
	u := math.Float64bits(f)
	if u&(1<<63) != 0 {
		u = ^u
	} else {
		u ^= 1 << 63
	}
	return binary.BigEndian.AppendUint64(append(dst, float64Code), u)
}

// On the wire a set top bit means the source value was non-negative.

func decodeFloat32(b []byte, pos int) (Element, int, error) {
	if len(b)-pos-1 < 4 {
		return nil, pos, newError(ErrTruncated, pos, "float32 needs 4 bytes, have %d", len(b)-pos-1)
	}
	u := binary.BigEndian.Uint32(b[pos+1:])
	if u&(1<<31) != 0 {
		u ^= 1 << 31
	} else {
		u = ^u
	}
	return Float32(math.Float32frombits(u)), pos + 5, nil
}

func decodeFloat64(b []byte, pos int) (Element, int, error) {
	if len(b)-pos-1 < 8 {
		return nil, pos, newError(ErrTruncated, pos, "float64 needs 8 bytes, have %d", len(b)-pos-1)
	}
	u := binary.BigEndian.Uint64(b[pos+1:])
	if u&(1<<63) != 0 {
		u ^= 1 << 63
	} else {
		u = ^u
	}
	return Float64(math.Float64frombits(u)), pos + 9, nil
}
