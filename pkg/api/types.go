package api

import (
	"github.com/ssargent/tuplekv/pkg/storage"
	"github.com/ssargent/tuplekv/pkg/tuple"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port           int
	Bind           string
	APIKey         string
	AllowedOrigins []string
	MaxValueSize   int64 // request bodies larger than this are rejected; 0 means 1 MiB
}

// KVStore is the subset of *storage.Store the handlers use.
type KVStore interface {
	Put(key tuple.Tuple, value []byte) error
	Get(key tuple.Tuple) ([]byte, error)
	Delete(key tuple.Tuple) error
	Scan(prefix tuple.Tuple, limit int) ([]storage.KeyValue, error)
}

// KeyValue is one entry in a scan response.
type KeyValue struct {
	Key    string `json:"key"`
	KeyHex string `json:"key_hex"`
	Value  []byte `json:"value"`
}

// EncodeRequest carries a tuple in text form.
type EncodeRequest struct {
	Tuple string `json:"tuple"`
}

// EncodeResponse is the encoding of an EncodeRequest tuple.
type EncodeResponse struct {
	Tuple  string `json:"tuple"`
	Hex    string `json:"hex"`
	Length int    `json:"length"`
}

// DecodeRequest carries a hex encoded tuple.
type DecodeRequest struct {
	Hex string `json:"hex"`
}

// DecodeResponse describes a decoded tuple element by element.
type DecodeResponse struct {
	Tuple    string        `json:"tuple"`
	Elements []ElementView `json:"elements"`
}

// ElementView is one decoded element.
type ElementView struct {
	Kind     string        `json:"kind"`
	Value    string        `json:"value"`
	Elements []ElementView `json:"elements,omitempty"`
}

// QueryResponse lists the primary keys matched by an index query.
type QueryResponse struct {
	Field string   `json:"field"`
	Keys  []string `json:"keys"`
}

func viewOf(e tuple.Element) ElementView {
	v := ElementView{Kind: e.Kind().String(), Value: e.String()}
	if t, ok := e.(tuple.Tuple); ok {
		for _, c := range t.Elements() {
			v.Elements = append(v.Elements, viewOf(c))
		}
	}
	return v
}
