package bitcask

import (
	"sort"
)

// entry locates the latest live record of a key in the data file.
type entry struct {
	offset int64
	size   int
}

// keydir is the in-memory hash index of a bitcask store. It holds no lock
// of its own; Store serializes access.
type keydir struct {
	entries map[string]entry
}

func newKeydir() *keydir {
	return &keydir{entries: make(map[string]entry)}
}

func (k *keydir) get(key []byte) (entry, bool) {
	e, ok := k.entries[string(key)]
	return e, ok
}

func (k *keydir) put(key []byte, e entry) {
	k.entries[string(key)] = e
}

func (k *keydir) delete(key []byte) {
	delete(k.entries, string(key))
}

func (k *keydir) len() int { return len(k.entries) }

// rangeKeys returns the keys in [begin, end) in ascending byte order. A nil
// end means no upper bound.
func (k *keydir) rangeKeys(begin, end []byte) []string {
	lo, hi := string(begin), string(end)
	var keys []string
	for key := range k.entries {
		if key < lo || (end != nil && key >= hi) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
