package index

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ssargent/tuplekv/pkg/storage"
	"github.com/ssargent/tuplekv/pkg/tuple"
)

// DefaultRoot is the key prefix under which index entries are stored.
var DefaultRoot = tuple.New(tuple.Text("_idx"))

// SecondaryIndex maps values of one field to primary keys. Each entry is a
// store key (root, field, value, primaryKey...) with an empty value, so the
// store's tuple ordering gives exact and range lookups for free.
type SecondaryIndex struct {
	fieldName string
	prefix    tuple.Tuple
	store     *storage.Store
}

// NewSecondaryIndex creates a secondary index for a field under root.
func NewSecondaryIndex(store *storage.Store, root tuple.Tuple, fieldName string) *SecondaryIndex {
	return &SecondaryIndex{
		fieldName: fieldName,
		prefix:    root.Append(tuple.Text(fieldName)),
		store:     store,
	}
}

// Field returns the indexed field name.
func (idx *SecondaryIndex) Field() string { return idx.fieldName }

// Insert adds an entry for primaryKey under fieldValue.
func (idx *SecondaryIndex) Insert(fieldValue any, primaryKey tuple.Tuple) error {
	key, err := idx.entryKey(fieldValue, primaryKey)
	if err != nil {
		return err
	}
	return idx.store.Put(key, nil)
}

// Delete removes the entry for primaryKey under fieldValue.
func (idx *SecondaryIndex) Delete(fieldValue any, primaryKey tuple.Tuple) error {
	key, err := idx.entryKey(fieldValue, primaryKey)
	if err != nil {
		return err
	}
	return idx.store.Delete(key)
}

// Search returns the primary keys whose field equals fieldValue, in
// primary key order.
func (idx *SecondaryIndex) Search(fieldValue any) ([]tuple.Tuple, error) {
	v, err := indexValue(fieldValue)
	if err != nil {
		return nil, err
	}
	kvs, err := idx.store.Scan(idx.prefix.Append(v), 0)
	if err != nil {
		return nil, errors.Wrapf(err, "search index %s", idx.fieldName)
	}
	return idx.primaryKeys(kvs), nil
}

// SearchRange returns the primary keys whose field value lies in
// [startValue, endValue), ordered by value. Values of different kinds
// order by their type tag.
func (idx *SecondaryIndex) SearchRange(startValue, endValue any) ([]tuple.Tuple, error) {
	start, err := indexValue(startValue)
	if err != nil {
		return nil, err
	}
	end, err := indexValue(endValue)
	if err != nil {
		return nil, err
	}
	kvs, err := idx.store.ScanBetween(idx.prefix.Append(start), idx.prefix.Append(end), 0)
	if err != nil {
		return nil, errors.Wrapf(err, "range search index %s", idx.fieldName)
	}
	return idx.primaryKeys(kvs), nil
}

// Clear drops every entry of the index.
func (idx *SecondaryIndex) Clear() error {
	return idx.store.ClearPrefix(idx.prefix)
}

func (idx *SecondaryIndex) entryKey(fieldValue any, primaryKey tuple.Tuple) (tuple.Tuple, error) {
	if primaryKey.Len() == 0 {
		return tuple.Tuple{}, errors.Wrap(storage.ErrInvalidKey, "empty primary key")
	}
	v, err := indexValue(fieldValue)
	if err != nil {
		return tuple.Tuple{}, err
	}
	return idx.prefix.Append(v).Append(primaryKey.Elements()...), nil
}

// primaryKeys strips (root, field, value) from each entry key.
func (idx *SecondaryIndex) primaryKeys(kvs []storage.KeyValue) []tuple.Tuple {
	skip := idx.prefix.Len() + 1
	out := make([]tuple.Tuple, 0, len(kvs))
	for _, kv := range kvs {
		out = append(out, tuple.New(kv.Key.Elements()[skip:]...))
	}
	return out
}

// indexValue converts a field value into a single tuple element. Numbers of
// every kind become Float64 so that a field mixing integers and fractions
// keeps one numeric order.
func indexValue(v any) (tuple.Element, error) {
	e, ok := v.(tuple.Element)
	if !ok {
		t, err := tuple.Of(v)
		if err != nil {
			return nil, errors.Wrapf(err, "unindexable value %v", v)
		}
		e, _ = t.At(0)
	} else if err := tuple.New(e).Validate(); err != nil {
		return nil, errors.Wrapf(err, "unindexable value %v", v)
	}
	return normalize(e), nil
}

func normalize(e tuple.Element) tuple.Element {
	switch e := e.(type) {
	case tuple.Int:
		return tuple.Float64(e)
	case tuple.Float32:
		return tuple.Float64(e)
	case tuple.Tuple:
		elems := e.Elements()
		for i := range elems {
			elems[i] = normalize(elems[i])
		}
		return tuple.New(elems...)
	}
	return e
}

// Manager owns the secondary indexes of one store.
type Manager struct {
	store     *storage.Store
	root      tuple.Tuple
	extractor FieldExtractor
	logger    *zap.Logger

	mutex   sync.RWMutex
	indexes map[string]*SecondaryIndex
}

// NewManager creates a manager storing entries under DefaultRoot and
// extracting fields from JSON documents.
func NewManager(store *storage.Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:     store,
		root:      DefaultRoot,
		extractor: &JSONFieldExtractor{},
		logger:    logger,
		indexes:   make(map[string]*SecondaryIndex),
	}
}

// WithExtractor replaces the document field extractor.
func (m *Manager) WithExtractor(e FieldExtractor) *Manager {
	m.extractor = e
	return m
}

// GetOrCreateIndex gets an existing index or creates a new one for a field.
func (m *Manager) GetOrCreateIndex(fieldName string) *SecondaryIndex {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if idx, exists := m.indexes[fieldName]; exists {
		return idx
	}

	idx := NewSecondaryIndex(m.store, m.root, fieldName)
	m.indexes[fieldName] = idx
	m.logger.Debug("index registered", zap.String("field", fieldName))
	return idx
}

// Fields returns the registered field names, sorted.
func (m *Manager) Fields() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	fields := make([]string, 0, len(m.indexes))
	for f := range m.indexes {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// IndexDocument adds entries for every registered field present in doc.
// Missing fields are skipped.
func (m *Manager) IndexDocument(primaryKey tuple.Tuple, doc []byte) error {
	return m.eachField(doc, func(idx *SecondaryIndex, v any) error {
		return idx.Insert(v, primaryKey)
	})
}

// RemoveDocument deletes the entries IndexDocument made for doc.
func (m *Manager) RemoveDocument(primaryKey tuple.Tuple, doc []byte) error {
	return m.eachField(doc, func(idx *SecondaryIndex, v any) error {
		return idx.Delete(v, primaryKey)
	})
}

func (m *Manager) eachField(doc []byte, fn func(*SecondaryIndex, any) error) error {
	m.mutex.RLock()
	indexes := make([]*SecondaryIndex, 0, len(m.indexes))
	for _, idx := range m.indexes {
		indexes = append(indexes, idx)
	}
	m.mutex.RUnlock()

	for _, idx := range indexes {
		v, err := m.extractor.Extract(doc, idx.fieldName)
		if errors.Is(err, ErrFieldNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(idx, v); err != nil {
			return errors.Wrapf(err, "index field %s", idx.fieldName)
		}
	}
	return nil
}
