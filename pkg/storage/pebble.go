package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

type pebbleBackend struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
}

func openPebble(opts Options) (*pebbleBackend, error) {
	popts := &pebble.Options{}
	if opts.InMemory {
		popts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(opts.DataDir, popts)
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble at %q", opts.DataDir)
	}

	writeOpts := pebble.NoSync
	if opts.Sync {
		writeOpts = pebble.Sync
	}
	return &pebbleBackend{db: db, writeOpts: writeOpts}, nil
}

func (p *pebbleBackend) Set(key, value []byte) error {
	return p.db.Set(key, value, p.writeOpts)
}

func (p *pebbleBackend) Get(key []byte) ([]byte, error) {
	data, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (p *pebbleBackend) Delete(key []byte) error {
	return p.db.Delete(key, p.writeOpts)
}

func (p *pebbleBackend) DeleteRange(begin, end []byte) error {
	return p.db.DeleteRange(begin, end, p.writeOpts)
}

func (p *pebbleBackend) Scan(begin, end []byte, limit int, fn func(key, value []byte) error) error {
	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: begin, UpperBound: end})
	if err != nil {
		return err
	}

	n := 0
	for valid := iter.First(); valid; valid = iter.Next() {
		key := append([]byte(nil), iter.Key()...)
		value := append([]byte(nil), iter.Value()...)
		if err := fn(key, value); err != nil {
			iter.Close()
			return err
		}
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return err
	}
	return iter.Close()
}

func (p *pebbleBackend) Close() error {
	return p.db.Close()
}
