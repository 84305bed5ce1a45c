package codec

import (
	"encoding/binary"
	"hash/crc32"
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

// HeaderSize is the encoded size of a record header.
const HeaderSize = 21

// FlagTombstone marks a record that deletes its key.
const FlagTombstone byte = 1 << 0

var (
	// ErrShortRecord is returned when data ends before the record does.
	ErrShortRecord = errors.New("codec: record too short")
	// ErrChecksum is returned when the stored CRC32 does not match.
	ErrChecksum = errors.New("codec: checksum mismatch")
	// ErrTooLarge is returned for keys or values over 4 GiB.
	ErrTooLarge = errors.New("codec: key or value too large")
)

// Record is one entry of the log.
type Record struct {
	CRC32     uint32
	Flags     byte
	Timestamp uint64 // Unix nanoseconds
	Key       []byte
	Value     []byte
}

// NewRecord creates a record stamped with the current time.
func NewRecord(key, value []byte) *Record {
	return &Record{
		Timestamp: uint64(time.Now().UnixNano()),
		Key:       key,
		Value:     value,
	}
}

// NewTombstone creates a deletion record for key.
func NewTombstone(key []byte) *Record {
	r := NewRecord(key, nil)
	r.Flags |= FlagTombstone
	return r
}

// Tombstone reports whether r deletes its key.
func (r *Record) Tombstone() bool { return r.Flags&FlagTombstone != 0 }

// Size returns the encoded size of r.
func (r *Record) Size() int {
	return HeaderSize + len(r.Key) + len(r.Value)
}

// Header is the fixed-size prefix of an encoded record.
type Header struct {
	CRC32     uint32
	Flags     byte
	KeySize   uint32
	ValueSize uint32
	Timestamp uint64
}

// RecordSize returns the encoded size of the record h belongs to.
func (h Header) RecordSize() int {
	return HeaderSize + int(h.KeySize) + int(h.ValueSize)
}

// ParseHeader decodes the header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, errors.Wrapf(ErrShortRecord, "header needs %d bytes, have %d", HeaderSize, len(data))
	}
	return Header{
		CRC32:     binary.LittleEndian.Uint32(data[0:4]),
		Flags:     data[4],
		KeySize:   binary.LittleEndian.Uint32(data[5:9]),
		ValueSize: binary.LittleEndian.Uint32(data[9:13]),
		Timestamp: binary.LittleEndian.Uint64(data[13:21]),
	}, nil
}

// RecordCodec serializes records. It holds no state and is safe for
// concurrent use.
type RecordCodec struct{}

// NewRecordCodec creates a new record codec instance
func NewRecordCodec() *RecordCodec {
	return &RecordCodec{}
}

// Encode serializes r and sets r.CRC32 to the checksum it wrote.
func (c *RecordCodec) Encode(r *Record) ([]byte, error) {
	if uint64(len(r.Key)) > math.MaxUint32 || uint64(len(r.Value)) > math.MaxUint32 {
		return nil, ErrTooLarge
	}

	buf := make([]byte, r.Size())
	buf[4] = r.Flags
	binary.LittleEndian.PutUint32(buf[5:], uint32(len(r.Key)))
	binary.LittleEndian.PutUint32(buf[9:], uint32(len(r.Value)))
	binary.LittleEndian.PutUint64(buf[13:], r.Timestamp)
	copy(buf[HeaderSize:], r.Key)
	copy(buf[HeaderSize+len(r.Key):], r.Value)

	r.CRC32 = crc32.ChecksumIEEE(buf[4:])
	binary.LittleEndian.PutUint32(buf[0:], r.CRC32)
	return buf, nil
}

// Decode parses one record from the start of data and verifies its
// checksum. Key and Value alias data.
func (c *RecordCodec) Decode(data []byte) (*Record, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	size := h.RecordSize()
	if len(data) < size {
		return nil, errors.Wrapf(ErrShortRecord, "record needs %d bytes, have %d", size, len(data))
	}
	if sum := crc32.ChecksumIEEE(data[4:size]); sum != h.CRC32 {
		return nil, errors.Wrapf(ErrChecksum, "stored %08x, computed %08x", h.CRC32, sum)
	}

	keyEnd := HeaderSize + int(h.KeySize)
	return &Record{
		CRC32:     h.CRC32,
		Flags:     h.Flags,
		Timestamp: h.Timestamp,
		Key:       data[HeaderSize:keyEnd],
		Value:     data[keyEnd:size],
	}, nil
}
