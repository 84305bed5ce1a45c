// Package subspace partitions the key space of an ordered store by an
// encoded tuple prefix.
package subspace

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/tuplekv/pkg/tuple"
)

// ErrNotInSubspace is returned by Unpack for keys outside the subspace.
var ErrNotInSubspace = errors.New("subspace: key is not in subspace")

// Subspace is an immutable key prefix. Keys packed by a subspace are the
// prefix followed by the encoding of a tuple.
type Subspace struct {
	prefix []byte
}

// FromTuple returns the subspace whose prefix is the encoding of t.
func FromTuple(t tuple.Tuple) Subspace {
	return Subspace{prefix: t.Encode()}
}

// FromBytes returns a subspace with a raw prefix.
func FromBytes(prefix []byte) Subspace {
	return Subspace{prefix: bytes.Clone(prefix)}
}

// Sub returns a child subspace extended by elems.
func (s Subspace) Sub(elems ...tuple.Element) Subspace {
	return Subspace{prefix: tuple.New(elems...).AppendEncoded(bytes.Clone(s.prefix))}
}

// Bytes returns a copy of the prefix.
func (s Subspace) Bytes() []byte {
	return bytes.Clone(s.prefix)
}

// Pack returns the key for t within the subspace.
func (s Subspace) Pack(t tuple.Tuple) []byte {
	return t.AppendEncoded(bytes.Clone(s.prefix))
}

// Unpack strips the prefix from key and decodes the remainder.
func (s Subspace) Unpack(key []byte) (tuple.Tuple, error) {
	if !s.Contains(key) {
		return tuple.Tuple{}, errors.Wrapf(ErrNotInSubspace, "key %x", key)
	}
	return tuple.Decode(key[len(s.prefix):])
}

// Contains reports whether key starts with the prefix.
func (s Subspace) Contains(key []byte) bool {
	return bytes.HasPrefix(key, s.prefix)
}

// Range returns [prefix+0x00, prefix+0xFF), which covers every key packed
// by the subspace except the bare prefix itself.
func (s Subspace) Range() (begin, end []byte) {
	begin = append(bytes.Clone(s.prefix), 0x00)
	end = append(bytes.Clone(s.prefix), 0xFF)
	return begin, end
}

func (s Subspace) String() string {
	return fmt.Sprintf("Subspace(%x)", s.prefix)
}
