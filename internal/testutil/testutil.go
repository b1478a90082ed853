package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// NewRequest creates a new HTTP request for testing. A string body is sent
// as-is; any other non-nil body is JSON encoded.
func NewRequest(method, path string, body any) *http.Request {
	var r *http.Request
	switch b := body.(type) {
	case nil:
		r = httptest.NewRequest(method, path, nil)
	case string:
		r = httptest.NewRequest(method, path, strings.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	default:
		bodyBytes, _ := json.Marshal(b)
		r = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

// Serve runs r through h and returns the recorded response.
func Serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

// DecodeJSON decodes the recorded response body into a T.
func DecodeJSON[T any](t testing.TB, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

// ErrorMessage returns the "error" field of a JSON error body.
func ErrorMessage(t testing.TB, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := DecodeJSON[map[string]any](t, w)
	msg, _ := body["error"].(string)
	return msg
}
