package storage

import (
	"bytes"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/tuplekv/pkg/subspace"
	"github.com/ssargent/tuplekv/pkg/tuple"
)

// KeyValue is one decoded entry returned by a scan.
type KeyValue struct {
	Key   tuple.Tuple
	Value []byte
}

// Store keeps values under tuple-encoded keys inside a root subspace, so a
// scan over a tuple prefix walks its children in tuple order.
type Store struct {
	backend Backend
	root    subspace.Subspace
	logger  *zap.Logger
	closed  atomic.Bool
}

// Open opens a backend and wraps it in a Store.
func Open(opts Options) (*Store, error) {
	b, err := OpenBackend(opts)
	if err != nil {
		return nil, err
	}

	root := subspace.FromBytes(nil)
	if opts.Namespace != "" {
		root = subspace.FromTuple(tuple.New(tuple.Text(opts.Namespace)))
	}
	return NewStore(b, root, opts.logger()), nil
}

func NewStore(b Backend, root subspace.Subspace, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: b, root: root, logger: logger}
}

// Root returns the subspace all keys live in.
func (s *Store) Root() subspace.Subspace { return s.root }

func (s *Store) key(t tuple.Tuple) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if t.Len() == 0 {
		return nil, ErrInvalidKey
	}
	// keys that cannot be decoded would break every scan over them
	if err := t.Validate(); err != nil {
		return nil, errors.Wrapf(ErrInvalidKey, "%v", err)
	}
	return s.root.Pack(t), nil
}

func (s *Store) Put(key tuple.Tuple, value []byte) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	if err := s.backend.Set(k, value); err != nil {
		return errors.Wrapf(err, "put %s", key)
	}
	return nil
}

// Get returns ErrNotFound when key has no value.
func (s *Store) Get(key tuple.Tuple) ([]byte, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, err
	}
	v, err := s.backend.Get(k)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "get %s", key)
		}
		return nil, errors.Wrapf(err, "get %s", key)
	}
	return v, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key tuple.Tuple) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	if err := s.backend.Delete(k); err != nil {
		return errors.Wrapf(err, "delete %s", key)
	}
	return nil
}

// Create stores value under prefix extended with a fresh KSUID and returns
// the id. KSUIDs sort by creation time, so scans over prefix are roughly
// chronological.
func (s *Store) Create(prefix tuple.Tuple, value []byte) (ksuid.KSUID, error) {
	id := ksuid.New()
	if err := s.Put(prefix.Append(tuple.Bytes(id.Bytes())), value); err != nil {
		return ksuid.Nil, err
	}
	return id, nil
}

// Scan returns the entries strictly inside prefix (the prefix key itself is
// excluded). An empty prefix scans the whole root. limit <= 0 means no limit.
func (s *Store) Scan(prefix tuple.Tuple, limit int) ([]KeyValue, error) {
	begin, end := s.childRange(prefix)
	return s.scan(begin, end, limit)
}

// ScanBetween returns entries with begin <= key < end in tuple order.
func (s *Store) ScanBetween(begin, end tuple.Tuple, limit int) ([]KeyValue, error) {
	return s.scan(s.root.Pack(begin), s.root.Pack(end), limit)
}

// ScanEncoded scans [begin, end) where both bounds are tuple encodings
// relative to the root, for callers that need bounds no single tuple can
// express, such as "every key after this prefix".
func (s *Store) ScanEncoded(begin, end []byte, limit int) ([]KeyValue, error) {
	prefix := s.root.Bytes()
	return s.scan(append(prefix, begin...), append(bytes.Clone(prefix), end...), limit)
}

func (s *Store) scan(begin, end []byte, limit int) ([]KeyValue, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var out []KeyValue
	err := s.backend.Scan(begin, end, limit, func(k, v []byte) error {
		t, err := s.root.Unpack(k)
		if err != nil {
			return errors.Wrapf(err, "decode key %x", k)
		}
		out = append(out, KeyValue{Key: t, Value: v})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("scan", zap.Int("results", len(out)), zap.Int("limit", limit))
	return out, nil
}

// ClearPrefix deletes every entry strictly inside prefix.
func (s *Store) ClearPrefix(prefix tuple.Tuple) error {
	if s.closed.Load() {
		return ErrClosed
	}
	begin, end := s.childRange(prefix)
	if err := s.backend.DeleteRange(begin, end); err != nil {
		return errors.Wrapf(err, "clear %s", prefix)
	}
	return nil
}

func (s *Store) childRange(prefix tuple.Tuple) (begin, end []byte) {
	if prefix.Len() == 0 {
		return s.root.Range()
	}
	return s.root.Sub(prefix.Elements()...).Range()
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Debug("storage closed")
	return s.backend.Close()
}
