package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"
)

// cborMode encodes responses with core deterministic encoding so equal
// responses are byte-identical.
var cborMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// apiKeyMiddleware validates the X-API-Key header
func apiKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				sendError(w, r, "Missing X-API-Key header", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expectedKey)) != 1 {
				sendError(w, r, "Invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func wantsCBOR(r *http.Request) bool {
	return r != nil && strings.Contains(r.Header.Get("Accept"), contentTypeCBOR)
}

func writeResponse(w http.ResponseWriter, r *http.Request, statusCode int, response APIResponse) {
	if wantsCBOR(r) {
		data, err := cborMode.Marshal(response)
		if err == nil {
			w.Header().Set("Content-Type", contentTypeCBOR)
			w.WriteHeader(statusCode)
			_, _ = w.Write(data)
			return
		}
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// sendSuccess sends a successful response, CBOR when the client asks for it
func sendSuccess(w http.ResponseWriter, r *http.Request, data any) {
	writeResponse(w, r, http.StatusOK, APIResponse{Success: true, Data: data})
}

// sendError sends an error response
func sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	writeResponse(w, r, statusCode, APIResponse{Success: false, Error: message})
}

// decodeBody reads a JSON or CBOR request body into v based on Content-Type.
func decodeBody(r *http.Request, v any) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), contentTypeCBOR) {
		return cbor.NewDecoder(r.Body).Decode(v)
	}
	return json.NewDecoder(r.Body).Decode(v)
}
