package index

import (
	"bytes"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/tuplekv/pkg/tuple"
)

// FieldQuery represents a single field-based query condition.
type FieldQuery struct {
	Field    string // Field name to query (e.g., "age", "name")
	Operator string // Comparison operator: "=", ">", "<", ">=", "<="
	Value    any    // Value to compare against
}

// Validate checks if the query is properly formed.
func (q *FieldQuery) Validate() error {
	if q.Field == "" {
		return errors.New("field name cannot be empty")
	}
	if q.Operator == "" {
		return errors.New("operator cannot be empty")
	}
	validOps := map[string]bool{
		"=": true, ">": true, "<": true, ">=": true, "<=": true,
	}
	if !validOps[q.Operator] {
		return errors.Newf("invalid operator: %s", q.Operator)
	}
	return nil
}

// Query runs q against the field's index and returns matching primary keys
// ordered by field value. Only values of the same kind as q.Value match, so
// "age < 31" never returns a text age. Numbers of any kind compare as
// float64.
func (m *Manager) Query(q FieldQuery) ([]tuple.Tuple, error) {
	if err := q.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid query")
	}
	return m.GetOrCreateIndex(q.Field).query(q.Operator, q.Value)
}

func (idx *SecondaryIndex) query(op string, value any) ([]tuple.Tuple, error) {
	v, err := indexValue(value)
	if err != nil {
		return nil, err
	}

	field := idx.prefix.Encode()
	valueKey := idx.prefix.Append(v).Encode()
	afterValue := append(bytes.Clone(valueKey), 0xFF)

	// entries of v's kind all start with a tag in [first, last]
	first, last := tuple.TagRange(v.Kind())
	kindBegin := append(bytes.Clone(field), first)
	kindEnd := append(bytes.Clone(field), last+1)

	var begin, end []byte
	switch op {
	case "=":
		begin, end = append(bytes.Clone(valueKey), 0x00), afterValue
	case ">=":
		begin, end = valueKey, kindEnd
	case ">":
		begin, end = afterValue, kindEnd
	case "<":
		begin, end = kindBegin, valueKey
	case "<=":
		begin, end = kindBegin, afterValue
	default:
		return nil, errors.Newf("unsupported operator: %s", op)
	}

	kvs, err := idx.store.ScanEncoded(begin, end, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "query index %s", idx.fieldName)
	}
	return idx.primaryKeys(kvs), nil
}
