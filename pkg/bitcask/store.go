// Package bitcask is a log-structured key-value store. Every write appends a
// checksummed record to a single data file and an in-memory keydir maps
// each live key to its latest record. Opening a store replays the log,
// truncating a damaged tail left by a crash.
package bitcask

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/tuplekv/pkg/codec"
)

// DataFileName is the name of the log inside Options.Dir.
const DataFileName = "active.data"

var (
	ErrKeyNotFound = errors.New("bitcask: key not found")
	ErrInvalidKey  = errors.New("bitcask: invalid key")
	ErrClosed      = errors.New("bitcask: store is closed")
	ErrCorruption  = errors.New("bitcask: data corruption detected")
)

// Options configures Open.
type Options struct {
	Dir        string // directory holding the data file
	SyncWrites bool   // fsync after every append
}

// RecoveryResult describes the log replay done by Open.
type RecoveryResult struct {
	RecordsValidated int64
	BytesTruncated   int64
	Keys             int
}

// Store is safe for concurrent use.
type Store struct {
	mutex  sync.RWMutex
	file   *os.File
	codec  *codec.RecordCodec
	keys   *keydir
	size   int64
	sync   bool
	closed bool
}

// Open opens or creates the store in opts.Dir and rebuilds the keydir from
// the log.
func Open(opts Options) (*Store, *RecoveryResult, error) {
	if opts.Dir == "" {
		return nil, nil, errors.New("bitcask: data dir is required")
	}
	if err := os.MkdirAll(opts.Dir, 0750); err != nil {
		return nil, nil, errors.Wrapf(err, "create %s", opts.Dir)
	}

	path := filepath.Join(opts.Dir, DataFileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}

	s := &Store{
		file:  f,
		codec: codec.NewRecordCodec(),
		keys:  newKeydir(),
		sync:  opts.SyncWrites,
	}
	res, err := s.recover()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return s, res, nil
}

func (s *Store) recover() (*RecoveryResult, error) {
	stat, err := s.file.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat data file")
	}

	good, records, err := replay(s.file, stat.Size(), s.codec, func(off int64, rec *codec.Record) {
		if rec.Tombstone() {
			s.keys.delete(rec.Key)
			return
		}
		s.keys.put(rec.Key, entry{offset: off, size: rec.Size()})
	})
	if err != nil {
		return nil, errors.Wrap(err, "replay data file")
	}

	if good < stat.Size() {
		if err := s.file.Truncate(good); err != nil {
			return nil, errors.Wrap(err, "truncate damaged tail")
		}
		if err := s.file.Sync(); err != nil {
			return nil, err
		}
	}
	s.size = good

	return &RecoveryResult{
		RecordsValidated: records,
		BytesTruncated:   stat.Size() - good,
		Keys:             s.keys.len(),
	}, nil
}

// append writes rec at the end of the log and returns its location.
func (s *Store) append(rec *codec.Record) (entry, error) {
	buf, err := s.codec.Encode(rec)
	if err != nil {
		return entry{}, err
	}
	if _, err := s.file.WriteAt(buf, s.size); err != nil {
		return entry{}, errors.Wrap(err, "append record")
	}
	if s.sync {
		if err := s.file.Sync(); err != nil {
			return entry{}, errors.Wrap(err, "sync data file")
		}
	}
	e := entry{offset: s.size, size: len(buf)}
	s.size += int64(len(buf))
	return e, nil
}

// Put stores value under key. Empty values are allowed.
func (s *Store) Put(key, value []byte) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return ErrClosed
	}

	e, err := s.append(codec.NewRecord(key, value))
	if err != nil {
		return err
	}
	s.keys.put(key, e)
	return nil
}

// Get returns ErrKeyNotFound when key has no live value.
func (s *Store) Get(key []byte) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	e, ok := s.keys.get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	rec, err := readAt(s.file, s.codec, e.offset, e.size)
	if err != nil {
		return nil, err
	}
	return rec.Value, nil
}

// Delete appends a tombstone for key. Deleting a missing key is a no-op.
func (s *Store) Delete(key []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.deleteLocked(key)
}

func (s *Store) deleteLocked(key []byte) error {
	if _, ok := s.keys.get(key); !ok {
		return nil
	}
	if _, err := s.append(codec.NewTombstone(key)); err != nil {
		return err
	}
	s.keys.delete(key)
	return nil
}

// DeleteRange deletes every key in [begin, end).
func (s *Store) DeleteRange(begin, end []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return ErrClosed
	}

	for _, key := range s.keys.rangeKeys(begin, end) {
		if err := s.deleteLocked([]byte(key)); err != nil {
			return err
		}
	}
	return nil
}

// Scan calls fn with the keys in [begin, end) in ascending byte order,
// stopping after limit entries when limit > 0. The entries are read under
// the lock and fn runs after it is released, so fn may call back into the
// store.
func (s *Store) Scan(begin, end []byte, limit int, fn func(key, value []byte) error) error {
	type kv struct{ key, value []byte }

	s.mutex.RLock()
	if s.closed {
		s.mutex.RUnlock()
		return ErrClosed
	}
	keys := s.keys.rangeKeys(begin, end)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]kv, 0, len(keys))
	for _, key := range keys {
		e, _ := s.keys.get([]byte(key))
		rec, err := readAt(s.file, s.codec, e.offset, e.size)
		if err != nil {
			s.mutex.RUnlock()
			return err
		}
		out = append(out, kv{key: []byte(key), value: rec.Value})
	}
	s.mutex.RUnlock()

	for _, e := range out {
		if err := fn(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.keys.len()
}

// Size returns the length of the data file in bytes.
func (s *Store) Size() int64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.size
}

// Close syncs and closes the data file. Closing twice is a no-op.
func (s *Store) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.file.Sync(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}
