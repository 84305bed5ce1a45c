package bitcask

import (
	"bufio"
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/tuplekv/pkg/codec"
)

// replay walks the records of f from the start, calling fn for each intact
// record. It stops at the first record that is cut short or fails its
// checksum and returns the offset just past the last intact record.
func replay(f *os.File, size int64, c *codec.RecordCodec, fn func(off int64, rec *codec.Record)) (good int64, records int64, err error) {
	r := bufio.NewReaderSize(io.NewSectionReader(f, 0, size), 64*1024)
	header := make([]byte, codec.HeaderSize)

	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return good, records, nil
			}
			return good, records, err
		}

		h, _ := codec.ParseHeader(header)
		n := h.RecordSize()
		if int64(n) > size-good {
			// a damaged size field can claim more bytes than the file has
			return good, records, nil
		}

		buf := make([]byte, n)
		copy(buf, header)
		if _, err := io.ReadFull(r, buf[codec.HeaderSize:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return good, records, nil
			}
			return good, records, err
		}

		rec, err := c.Decode(buf)
		if err != nil {
			return good, records, nil
		}
		fn(good, rec)
		good += int64(n)
		records++
	}
}

// readAt reads the record of the given size stored at off.
func readAt(f *os.File, c *codec.RecordCodec, off int64, size int) (*codec.Record, error) {
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, off); err != nil {
		return nil, errors.Wrapf(err, "read record at %d", off)
	}
	rec, err := c.Decode(buf)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "record at %d", off), ErrCorruption)
	}
	return rec, nil
}
