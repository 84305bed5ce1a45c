package tuple

import (
	"math"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// sizeLimits[n] is the largest magnitude that fits in n payload bytes.
var sizeLimits = [maxIntBytes + 1]uint64{
	0,
	1<<8 - 1,
	1<<16 - 1,
	1<<24 - 1,
	1<<32 - 1,
	1<<40 - 1,
	1<<48 - 1,
	1<<56 - 1,
	math.MaxUint64,
}

// byteLen returns the number of payload bytes needed for magnitude u.
func byteLen(u uint64) int {
	n := 0
	for n < maxIntBytes && u > sizeLimits[n] {
		n++
	}
	return n
}

// appendInt writes v as tag intZeroCode±n followed by n big-endian payload
// bytes. Negative values below the full width store sizeLimits[n]+v so that
// more negative values produce smaller payloads; at full width the two's
// complement bytes already sort correctly.
func appendInt(dst []byte, v int64) []byte {
	if v == 0 {
		return append(dst, intZeroCode)
	}
	if v > 0 {
		u := uint64(v)
		n := byteLen(u)
		dst = append(dst, byte(intZeroCode+n))
		return appendBigEndian(dst, u, n)
	}

	mag := -uint64(v)
	n := byteLen(mag)
	dst = append(dst, byte(intZeroCode-n))
	if n == maxIntBytes {
		return appendBigEndian(dst, uint64(v), n)
	}
	return appendBigEndian(dst, sizeLimits[n]-mag, n)
}

func appendBigEndian(dst []byte, u uint64, n int) []byte {
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, byte(u>>(8*i)))
	}
	return dst
}

// intPayload holds the raw fields of an encoded integer.
type intPayload struct {
	raw      uint64
	n        int
	negative bool
}

// int64 converts the payload, reporting false if it does not fit.
func (p intPayload) int64() (int64, bool) {
	switch {
	case !p.negative:
		if p.raw > math.MaxInt64 {
			return 0, false
		}
		return int64(p.raw), true
	case p.n == maxIntBytes:
		if p.raw <= math.MaxInt64 {
			return 0, false
		}
		return int64(p.raw), true
	}
	return -int64(sizeLimits[p.n] - p.raw), true
}

func readIntPayload(b []byte, pos int) (intPayload, int, error) {
	if pos < 0 || pos >= len(b) {
		return intPayload{}, pos, newError(ErrTruncated, pos, "no type tag")
	}
	code := int(b[pos])
	switch {
	case code == negIntStart-1 || code == posIntEnd+1:
		return intPayload{}, pos, newError(ErrIntOverflow, pos, "integer wider than %d bytes", maxIntBytes)
	case code < negIntStart || code > posIntEnd:
		return intPayload{}, pos, newError(ErrUnknownTag, pos, "tag 0x%02x is not an integer", code)
	}

	p := intPayload{n: code - intZeroCode}
	if p.n < 0 {
		p.n = -p.n
		p.negative = true
	}
	if len(b)-pos-1 < p.n {
		return intPayload{}, pos, newError(ErrTruncated, pos, "integer needs %d bytes, have %d", p.n, len(b)-pos-1)
	}
	for _, c := range b[pos+1 : pos+1+p.n] {
		p.raw = p.raw<<8 | uint64(c)
	}
	return p, pos + 1 + p.n, nil
}

// ReadInt decodes the integer element whose tag is at b[pos] into T and
// returns the offset just past it. It fails with ErrIntOverflow when the
// encoded magnitude does not fit T and with ErrNegativeUnsigned when a
// negative value is read into an unsigned T.
func ReadInt[T constraints.Integer](b []byte, pos int) (T, int, error) {
	var zero T
	p, next, err := readIntPayload(b, pos)
	if err != nil {
		return zero, pos, err
	}

	size := int(unsafe.Sizeof(zero))
	signed := ^zero < 0
	if p.n > size {
		return zero, pos, newError(ErrIntOverflow, pos, "%d payload bytes into %d-byte %T", p.n, size, zero)
	}
	if p.negative && !signed {
		return zero, pos, newError(ErrNegativeUnsigned, pos, "into %T", zero)
	}
	if !signed {
		return T(p.raw), next, nil
	}

	v, ok := p.int64()
	if !ok {
		return zero, pos, newError(ErrIntOverflow, pos, "out of int64 range")
	}
	if size < 8 {
		bits := uint(size * 8)
		lo, hi := -(int64(1) << (bits - 1)), int64(1)<<(bits-1)-1
		if v < lo || v > hi {
			return zero, pos, newError(ErrIntOverflow, pos, "%d out of range for %T", v, zero)
		}
	}
	return T(v), next, nil
}
