package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/tuplekv/pkg/index"
	"github.com/ssargent/tuplekv/pkg/storage"
	"github.com/ssargent/tuplekv/pkg/tuple"
	"github.com/ssargent/tuplekv/pkg/tuple/textrep"
)

const testAPIKey = "test-key"

type testEnv struct {
	server  *Server
	handler http.Handler
	metrics *Metrics
	reg     *prometheus.Registry
}

func setupTestServer(t *testing.T, indexed ...string) *testEnv {
	t.Helper()
	store, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var indexes *index.Manager
	if len(indexed) > 0 {
		indexes = index.NewManager(store, nil)
		for _, f := range indexed {
			indexes.GetOrCreateIndex(f)
		}
	}

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	server := NewServer(store, indexes, ServerConfig{APIKey: testAPIKey, MaxValueSize: 64}, metrics, nil)
	return &testEnv{server: server, handler: NewRouter(server, reg), metrics: metrics, reg: reg}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func kvPath(text string) string {
	return "/api/v1/kv/" + url.PathEscape(text)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestServer_handleHealth(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "GET", "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	response := decodeResponse(t, w)
	assert.True(t, response.Success)
	assert.Equal(t, map[string]any{"status": "healthy"}, response.Data)
}

func TestServer_RequiresAPIKey(t *testing.T) {
	env := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.authRequestsTotal.WithLabelValues(statusError)))
}

func TestServer_PutGetDelete(t *testing.T) {
	env := setupTestServer(t)
	path := kvPath(`("users", 42)`)

	w := env.do(t, "PUT", path, []byte("alice"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	response := decodeResponse(t, w)
	assert.Equal(t, `("users", 42)`, response.Data.(map[string]any)["key"])

	w = env.do(t, "GET", path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))

	w = env.do(t, "DELETE", path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.storeOperationsTotal.WithLabelValues("put", statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.storeOperationsTotal.WithLabelValues("get", statusError)))
}

func TestServer_PutErrors(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "PUT", kvPath(`("unterminated`), []byte("x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "PUT", kvPath(`()`), []byte("x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "PUT", kvPath(`("\xff")`), []byte("x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, "GET", "/api/v1/kv", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "PUT", kvPath(`("big")`), bytes.Repeat([]byte("x"), 65))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = env.do(t, "PUT", kvPath(`("doc")`), []byte("{not json"), "Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Scan(t *testing.T) {
	env := setupTestServer(t)
	for _, k := range []string{`("users", 3)`, `("users", -1)`, `("users", 20)`, `("orders", 1)`} {
		require.Equal(t, http.StatusOK, env.do(t, "PUT", kvPath(k), []byte("v")).Code)
	}

	w := env.do(t, "GET", "/api/v1/kv?prefix="+url.QueryEscape(`("users")`), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data struct {
			Items []KeyValue `json:"items"`
			Count int        `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Equal(t, 3, response.Data.Count)
	assert.Equal(t, `("users", -1)`, response.Data.Items[0].Key)
	assert.Equal(t, `("users", 3)`, response.Data.Items[1].Key)
	assert.Equal(t, `("users", 20)`, response.Data.Items[2].Key)
	assert.Equal(t, []byte("v"), response.Data.Items[0].Value)
	assert.Equal(t, "0275736572730013fe", response.Data.Items[0].KeyHex)

	w = env.do(t, "GET", "/api/v1/kv?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, decodeResponse(t, w).Data.(map[string]any)["count"])

	w = env.do(t, "GET", "/api/v1/kv?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, "GET", "/api/v1/kv?prefix=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Encode(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/tuples/encode", []byte(`{"tuple":"(\"users\", 42)"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Data EncodeResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "02757365727300152a", response.Data.Hex)
	assert.Equal(t, 9, response.Data.Length)
	assert.Equal(t, `("users", 42)`, response.Data.Tuple)

	w = env.do(t, "POST", "/api/v1/tuples/encode", []byte(`{"tuple":"(oops)"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/v1/tuples/encode", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_EncodeCBORRequest(t *testing.T) {
	env := setupTestServer(t)
	body, err := cbor.Marshal(EncodeRequest{Tuple: `(nil, true)`})
	require.NoError(t, err)

	w := env.do(t, "POST", "/api/v1/tuples/encode", body,
		"Content-Type", "application/cbor", "Accept", "application/cbor")
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Success bool           `json:"success"`
		Data    EncodeResponse `json:"data"`
	}
	require.NoError(t, cbor.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, "0027", response.Data.Hex)
}

func TestServer_Decode(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/tuples/decode", []byte(`{"hex":"0x02 75 73 65 72 73 00 15 15 05 14 00"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Data DecodeResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, `("users", 21, (0))`, response.Data.Tuple)
	require.Len(t, response.Data.Elements, 3)
	assert.Equal(t, ElementView{Kind: "text", Value: `"users"`}, response.Data.Elements[0])
	assert.Equal(t, "tuple", response.Data.Elements[2].Kind)
	assert.Equal(t, []ElementView{{Kind: "int", Value: "0"}}, response.Data.Elements[2].Elements)
}

func TestServer_DecodeErrors(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/v1/tuples/decode", []byte(`{"hex":"03"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeResponse(t, w).Error, "unknown type tag")

	w = env.do(t, "POST", "/api/v1/tuples/decode", []byte(`{"hex":"0275"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/v1/tuples/decode", []byte(`{"hex":"zz"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.tupleDecodeErrorsTotal.WithLabelValues("unknown_type_tag")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.tupleDecodeErrorsTotal.WithLabelValues("truncated_payload")))
}

func TestServer_IndexedQuery(t *testing.T) {
	env := setupTestServer(t, "age")
	jsonHeader := []string{"Content-Type", "application/json"}

	docs := map[string]string{
		`("users", "ann")`: `{"age":31}`,
		`("users", "bo")`:  `{"age":27}`,
		`("users", "cy")`:  `{"age":40}`,
	}
	for k, doc := range docs {
		w := env.do(t, "PUT", kvPath(k), []byte(doc), jsonHeader...)
		require.Equal(t, http.StatusOK, w.Code)
	}

	query := func(op, value string) []string {
		w := env.do(t, "GET", "/api/v1/query?field=age&op="+url.QueryEscape(op)+"&value="+url.QueryEscape(value), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var response struct {
			Data QueryResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		return response.Data.Keys
	}

	assert.Equal(t, []string{`("users", "ann")`}, query("=", "31"))
	assert.Equal(t, []string{`("users", "ann")`, `("users", "cy")`}, query(">=", "30"))

	// overwriting re-indexes
	w := env.do(t, "PUT", kvPath(`("users", "ann")`), []byte(`{"age":50}`), jsonHeader...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, query("=", "31"))
	assert.Equal(t, []string{`("users", "cy")`, `("users", "ann")`}, query(">", "30"))

	w = env.do(t, "DELETE", kvPath(`("users", "cy")`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{`("users", "ann")`}, query(">", "30"))

	w = env.do(t, "GET", "/api/v1/query?field=age&op=~&value=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, "GET", "/api/v1/query?field=age", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// readOnlyStore fails every write while reads still reach the store.
type readOnlyStore struct {
	*storage.Store
}

func (readOnlyStore) Put(tuple.Tuple, []byte) error { return errors.New("disk full") }
func (readOnlyStore) Delete(tuple.Tuple) error      { return errors.New("disk full") }

func TestServer_FailedWriteKeepsIndexEntries(t *testing.T) {
	store, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	indexes := index.NewManager(store, nil)
	indexes.GetOrCreateIndex("age")
	key := textrep.MustParse(`("users", "ann")`)
	require.NoError(t, store.Put(key, []byte(`{"age":31}`)))
	require.NoError(t, indexes.IndexDocument(key, []byte(`{"age":31}`)))

	reg := prometheus.NewRegistry()
	server := NewServer(readOnlyStore{store}, indexes, ServerConfig{APIKey: testAPIKey, MaxValueSize: 64}, NewMetrics(reg), nil)
	env := &testEnv{server: server, handler: NewRouter(server, reg), reg: reg}

	w := env.do(t, "PUT", kvPath(key.String()), []byte(`{"age":50}`), "Content-Type", "application/json")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	w = env.do(t, "DELETE", kvPath(key.String()), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	got, err := indexes.Query(index.FieldQuery{Field: "age", Operator: "=", Value: 31})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(key))

	got, err = indexes.Query(index.FieldQuery{Field: "age", Operator: "=", Value: 50})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestServer_QueryWithoutIndexes(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, "GET", "/api/v1/query?field=age&value=1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	env := setupTestServer(t)
	env.do(t, "GET", "/api/v1/health", nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tuplekv_http_requests_total")
	assert.Contains(t, w.Body.String(), "tuplekv_health_checks_total")
}
