// Package tuple implements the typed tuple encoding used for keys and values
// in tuplekv.
//
// A tuple is an ordered, immutable sequence of typed elements. Encoding a
// tuple produces a flat byte string that is self-describing (every element
// starts with a type tag) and order-preserving: comparing two encodings with
// bytes.Compare gives the same answer as comparing the tuples element by
// element, for elements of the same type at the same position. Encoded
// tuples can therefore be used directly as sortable keys in an ordered
// key-value store such as Pebble or Badger.
//
// # Element Types
//
// The supported element types and their type tags are:
//
//	Null      0x00           no payload
//	Bytes     0x01           payload escaped, terminated by 0x00
//	Text      0x02           UTF-8 payload escaped, terminated by 0x00
//	Tuple     0x05           nested elements, all 0x00 escaped, terminated by 0x00
//	Int       0x0C..0x1C     0x14 is zero; 0x14±n carries n payload bytes
//	Float32   0x20           4 payload bytes
//	Float64   0x21           8 payload bytes
//	Bool      0x26 / 0x27    false / true, no payload
//	UUID      0x30           16 payload bytes
//
// Tag 0x33 is reserved for versionstamps, which are not supported, and the
// arbitrary-precision integer tags 0x0B and 0x1D decode as ErrIntOverflow.
//
// # Escaping
//
// Inside byte and text strings, a payload byte 0x00 is written as 0x00 0xFF
// so that a lone 0x00 can terminate the field. Nested tuples apply the same
// rule to every byte of their children's encodings.
//
// # Equality
//
// Floating-point elements are ordered by their IEEE-754 bit patterns, so
// +0.0 and -0.0 encode differently and two NaNs with the same bits encode
// identically. Tuple equality and hashing are defined on encoded bytes for
// this reason, never on native numeric equality.
//
// # Usage
//
//	key := tuple.New(tuple.Text("users"), tuple.Int(42))
//	enc := key.Encode()
//
//	decoded, err := tuple.Decode(enc)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(decoded) // ("users", 42)
//
//	// all keys below ("users",)
//	begin, end := tuple.New(tuple.Text("users")).Range()
//
// # Thread Safety
//
// The codec is stateless. Encode and Decode may be called concurrently, and
// a Tuple may be shared between goroutines once built.
package tuple
