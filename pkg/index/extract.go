package index

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ErrFieldNotFound is returned when a document lacks the requested field.
var ErrFieldNotFound = errors.New("field not found")

// FieldExtractor defines how to extract field values from record data.
type FieldExtractor interface {
	Extract(value []byte, field string) (any, error)
}

// JSONFieldExtractor extracts top-level fields from JSON objects. Every JSON
// number comes back as a float64, so 30 and 30.5 share one kind and order
// numerically in an index.
type JSONFieldExtractor struct{}

// Extract implements FieldExtractor for JSON data.
func (e *JSONFieldExtractor) Extract(value []byte, field string) (any, error) {
	if len(value) == 0 {
		return nil, errors.New("empty value")
	}

	var data map[string]any
	if err := json.Unmarshal(value, &data); err != nil {
		return nil, errors.Wrap(err, "failed to parse JSON")
	}

	fieldValue, exists := data[field]
	if !exists {
		return nil, errors.Wrapf(ErrFieldNotFound, "field %q", field)
	}

	out, err := indexable(fieldValue)
	if err != nil {
		return nil, errors.Wrapf(err, "field %q", field)
	}
	return out, nil
}

// indexable converts decoded JSON into values tuple.Of accepts. Arrays
// become nested tuples.
func indexable(v any) (any, error) {
	switch v := v.(type) {
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			c, err := indexable(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		return nil, errors.New("objects cannot be indexed")
	}
	return v, nil
}
