package storage

import (
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Engine names accepted by OpenBackend.
const (
	EnginePebble  = "pebble"
	EngineBadger  = "badger"
	EngineBitcask = "bitcask"
)

var (
	// ErrNotFound is returned when a key has no value.
	ErrNotFound = errors.New("key not found")
	// ErrInvalidKey is returned for empty keys.
	ErrInvalidKey = errors.New("invalid key")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// Backend is an ordered byte-keyed store. Keys sort by bytes.Compare.
type Backend interface {
	Set(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	// DeleteRange removes every key in [begin, end).
	DeleteRange(begin, end []byte) error
	// Scan calls fn for each key in [begin, end) in ascending order, stopping
	// after limit keys when limit > 0. fn owns the slices it receives.
	Scan(begin, end []byte, limit int, fn func(key, value []byte) error) error
	Close() error
}

// Options configures OpenBackend and Open.
type Options struct {
	Engine    string // pebble (default), badger or bitcask
	DataDir   string // ignored when InMemory is set
	InMemory  bool
	Sync      bool   // fsync every write
	Namespace string // optional root prefix for Store keys
	Logger    *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// OpenBackend opens the engine named in opts.
func OpenBackend(opts Options) (Backend, error) {
	engine := strings.ToLower(strings.TrimSpace(opts.Engine))
	if engine == "" {
		engine = EnginePebble
	}
	if !opts.InMemory && opts.DataDir == "" {
		return nil, errors.New("data dir is required for on-disk storage")
	}

	var (
		b   Backend
		err error
	)
	switch engine {
	case EnginePebble:
		b, err = openPebble(opts)
	case EngineBadger:
		b, err = openBadger(opts)
	case EngineBitcask:
		b, err = openBitcask(opts)
	default:
		return nil, errors.Newf("unknown storage engine %q", opts.Engine)
	}
	if err != nil {
		return nil, err
	}

	opts.logger().Debug("storage backend opened",
		zap.String("engine", engine),
		zap.String("data_dir", opts.DataDir),
		zap.Bool("in_memory", opts.InMemory))
	return b, nil
}
