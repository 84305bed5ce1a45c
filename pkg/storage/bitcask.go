package storage

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ssargent/tuplekv/pkg/bitcask"
)

// bitcaskBackend serves ordered scans from the bitcask keydir, sorting the
// keys of the requested range on each call. It suits small data sets; the
// LSM engines keep keys sorted on disk.
type bitcaskBackend struct {
	kv *bitcask.Store
}

func openBitcask(opts Options) (*bitcaskBackend, error) {
	if opts.InMemory {
		return nil, errors.New("bitcask engine has no in-memory mode")
	}
	kv, res, err := bitcask.Open(bitcask.Options{Dir: opts.DataDir, SyncWrites: opts.Sync})
	if err != nil {
		return nil, errors.Wrapf(err, "open bitcask at %q", opts.DataDir)
	}

	logger := opts.logger()
	if res.BytesTruncated > 0 {
		logger.Warn("bitcask log had a damaged tail",
			zap.Int64("truncated_bytes", res.BytesTruncated),
			zap.Int64("records", res.RecordsValidated))
	}
	logger.Debug("bitcask log replayed",
		zap.Int("keys", res.Keys),
		zap.Int64("data_size", kv.Size()))
	return &bitcaskBackend{kv: kv}, nil
}

func (b *bitcaskBackend) Set(key, value []byte) error {
	return b.kv.Put(key, value)
}

func (b *bitcaskBackend) Get(key []byte) ([]byte, error) {
	v, err := b.kv.Get(key)
	if errors.Is(err, bitcask.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (b *bitcaskBackend) Delete(key []byte) error {
	return b.kv.Delete(key)
}

func (b *bitcaskBackend) DeleteRange(begin, end []byte) error {
	return b.kv.DeleteRange(begin, end)
}

func (b *bitcaskBackend) Scan(begin, end []byte, limit int, fn func(key, value []byte) error) error {
	return b.kv.Scan(begin, end, limit, fn)
}

func (b *bitcaskBackend) Close() error {
	return b.kv.Close()
}
