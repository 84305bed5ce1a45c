package api

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ssargent/tuplekv/pkg/index"
	"github.com/ssargent/tuplekv/pkg/storage"
	"github.com/ssargent/tuplekv/pkg/tuple"
	"github.com/ssargent/tuplekv/pkg/tuple/textrep"
)

const (
	defaultMaxValueSize = 1 << 20
	defaultScanLimit    = 1000
)

// Server holds the API server state
type Server struct {
	store   KVStore
	indexes *index.Manager
	config  ServerConfig
	metrics *Metrics
	logger  *zap.Logger
}

// NewServer creates a new API server. indexes may be nil, which disables
// document indexing and the query endpoint.
func NewServer(store KVStore, indexes *index.Manager, config ServerConfig, metrics *Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxValueSize <= 0 {
		config.MaxValueSize = defaultMaxValueSize
	}
	return &Server{
		store:   store,
		indexes: indexes,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *Server) recordStore(op string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordStoreOperation(op, err == nil, time.Since(start))
	}
}

// keyParam parses the {key} path parameter. The key is the text form of a
// tuple and may arrive escaped or already unescaped depending on the router.
func keyParam(r *http.Request) (tuple.Tuple, error) {
	raw := chi.URLParam(r, "key")
	if raw == "" {
		return tuple.Tuple{}, errors.New("key is required")
	}
	t, err := textrep.Parse(raw)
	if err == nil {
		return t, nil
	}
	unescaped, uerr := url.PathUnescape(raw)
	if uerr != nil {
		return tuple.Tuple{}, err
	}
	return textrep.Parse(unescaped)
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), contentTypeJSON)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.RecordHealthCheck(true)
	}
	sendSuccess(w, r, map[string]string{"status": "healthy"})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, err := keyParam(r)
	if err != nil {
		sendError(w, r, "Invalid key: "+err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxValueSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, r, "Value too large", http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, r, "Failed to read request body", http.StatusBadRequest)
		return
	}

	indexed := s.indexes != nil && isJSON(r)
	if isJSON(r) && !json.Valid(body) {
		sendError(w, r, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}

	previous := s.previous(key)

	err = s.store.Put(key, body)
	s.recordStore("put", start, err)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			sendError(w, r, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("put failed", zap.Stringer("key", key), zap.Error(err))
		sendError(w, r, "Failed to put key-value: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.unindex(key, previous)
	if indexed {
		if err := s.indexes.IndexDocument(key, body); err != nil {
			s.logger.Warn("index document failed", zap.Stringer("key", key), zap.Error(err))
		}
	}

	sendSuccess(w, r, map[string]string{
		"message": "Key-value pair stored successfully",
		"key":     key.String(),
	})
}

// previous returns the value stored under key when indexing is enabled, so
// its index entries can be dropped once the key is overwritten or deleted.
func (s *Server) previous(key tuple.Tuple) []byte {
	if s.indexes == nil {
		return nil
	}
	old, err := s.store.Get(key)
	if err != nil {
		return nil
	}
	return old
}

// unindex removes the index entries of old, a value key used to hold.
func (s *Server) unindex(key tuple.Tuple, old []byte) {
	if old == nil {
		return
	}
	if err := s.indexes.RemoveDocument(key, old); err != nil {
		s.logger.Debug("previous value not indexable", zap.Stringer("key", key), zap.Error(err))
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, err := keyParam(r)
	if err != nil {
		sendError(w, r, "Invalid key: "+err.Error(), http.StatusBadRequest)
		return
	}

	value, err := s.store.Get(key)
	s.recordStore("get", start, err)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			sendError(w, r, "Key not found", http.StatusNotFound)
			return
		}
		sendError(w, r, "Failed to get value: "+err.Error(), http.StatusInternalServerError)
		return
	}

	contentType := "application/octet-stream"
	if json.Valid(value) {
		contentType = contentTypeJSON
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(value)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, err := keyParam(r)
	if err != nil {
		sendError(w, r, "Invalid key: "+err.Error(), http.StatusBadRequest)
		return
	}

	previous := s.previous(key)

	err = s.store.Delete(key)
	s.recordStore("delete", start, err)
	if err != nil {
		sendError(w, r, "Failed to delete key: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.unindex(key, previous)

	sendSuccess(w, r, map[string]string{"message": "Key deleted successfully"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	prefix := tuple.New()
	if p := r.URL.Query().Get("prefix"); p != "" {
		var err error
		if prefix, err = textrep.Parse(p); err != nil {
			sendError(w, r, "Invalid prefix: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	limit := defaultScanLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			sendError(w, r, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	kvs, err := s.store.Scan(prefix, limit)
	s.recordStore("scan", start, err)
	if err != nil {
		sendError(w, r, "Failed to scan: "+err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]KeyValue, 0, len(kvs))
	for _, kv := range kvs {
		items = append(items, KeyValue{
			Key:    kv.Key.String(),
			KeyHex: hex.EncodeToString(kv.Key.Encode()),
			Value:  kv.Value,
		})
	}
	sendSuccess(w, r, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req EncodeRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, r, "Invalid request body", http.StatusBadRequest)
		return
	}

	t, err := textrep.Parse(req.Tuple)
	if err != nil {
		sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	enc := t.Encode()
	if s.metrics != nil {
		s.metrics.RecordEncodedSize(len(enc))
	}
	sendSuccess(w, r, EncodeResponse{
		Tuple:  t.String(),
		Hex:    hex.EncodeToString(enc),
		Length: len(enc),
	})
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req DecodeRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, r, "Invalid request body", http.StatusBadRequest)
		return
	}

	h := strings.TrimPrefix(strings.Join(strings.Fields(req.Hex), ""), "0x")
	raw, err := hex.DecodeString(h)
	if err != nil {
		sendError(w, r, "Invalid hex: "+err.Error(), http.StatusBadRequest)
		return
	}

	t, err := tuple.Decode(raw)
	if err != nil {
		var terr *tuple.Error
		if s.metrics != nil && errors.As(err, &terr) {
			s.metrics.RecordDecodeError(terr.Kind.String())
		}
		sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	resp := DecodeResponse{Tuple: t.String(), Elements: []ElementView{}}
	for _, e := range t.Elements() {
		resp.Elements = append(resp.Elements, viewOf(e))
	}
	sendSuccess(w, r, resp)
}

// handleQuery answers GET /query?field=age&op=>=&value=30, where value is
// the text form of a single element.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.indexes == nil {
		sendError(w, r, "Indexing is not enabled", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	op := q.Get("op")
	if op == "" {
		op = "="
	}
	value, err := textrep.Parse("(" + q.Get("value") + ")")
	if err != nil || value.Len() != 1 {
		sendError(w, r, "value must be a single element", http.StatusBadRequest)
		return
	}
	v, _ := value.At(0)

	start := time.Now()
	keys, err := s.indexes.Query(index.FieldQuery{Field: q.Get("field"), Operator: op, Value: v})
	s.recordStore("query", start, err)
	if err != nil {
		sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	resp := QueryResponse{Field: q.Get("field"), Keys: make([]string, 0, len(keys))}
	for _, k := range keys {
		resp.Keys = append(resp.Keys, k.String())
	}
	sendSuccess(w, r, resp)
}
