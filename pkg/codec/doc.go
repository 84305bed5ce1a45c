// Package codec implements the on-disk record format of the bitcask
// storage engine.
//
// # Record Format
//
// Each record is a fixed header followed by the key and value bytes:
//
//	[CRC32(4)][Flags(1)][KeySize(4)][ValueSize(4)][Timestamp(8)][Key][Value]
//
// Integers are little-endian. The CRC32 (IEEE) covers every byte after the
// checksum field, so a flipped bit anywhere in the header or payload is
// caught by Decode. Flags carries FlagTombstone for deletions; a tombstone
// has no value, which keeps empty values distinct from deleted keys.
//
// The total record size is HeaderSize + len(key) + len(value).
//
// # Usage
//
//	c := codec.NewRecordCodec()
//	buf, err := c.Encode(codec.NewRecord(key, value))
//	...
//	rec, err := c.Decode(buf) // ErrChecksum on corruption
//
// ParseHeader reads only the header, which lets a log reader learn the full
// record size before reading the payload.
package codec
