// Package testutil drives HTTP handlers in tests and decodes the
// {"result": ...} / {"error": ...} envelopes they write.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// RequestBuilder accumulates a request; Serve sends it.
type RequestBuilder struct {
	method      string
	target      string
	body        []byte
	contentType string
	header      http.Header
	query       url.Values
}

// NewRequest starts a GET / request.
func NewRequest() *RequestBuilder {
	return &RequestBuilder{method: http.MethodGet, target: "/", header: http.Header{}, query: url.Values{}}
}

func (b *RequestBuilder) GET(path string) *RequestBuilder {
	return b.Method(http.MethodGet, path)
}

func (b *RequestBuilder) POST(path string) *RequestBuilder {
	return b.Method(http.MethodPost, path)
}

func (b *RequestBuilder) Method(method, path string) *RequestBuilder {
	b.method, b.target = method, path
	return b
}

// WithJSON marshals v as the body. It panics on unmarshalable values.
func (b *RequestBuilder) WithJSON(v any) *RequestBuilder {
	b.body, b.contentType = mustJSON(v), "application/json"
	return b
}

func (b *RequestBuilder) WithBody(body string) *RequestBuilder {
	b.body = []byte(body)
	return b
}

func (b *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	b.header.Add(key, value)
	return b
}

func (b *RequestBuilder) WithQuery(key, value string) *RequestBuilder {
	b.query.Add(key, value)
	return b
}

// WithInput sets the "input" parameter read by GET endpoints to v as JSON.
func (b *RequestBuilder) WithInput(v any) *RequestBuilder {
	b.query.Set("input", string(mustJSON(v)))
	return b
}

// Serve runs the request through h and returns the recorded response.
func (b *RequestBuilder) Serve(h http.Handler) *httptest.ResponseRecorder {
	target := b.target
	if len(b.query) > 0 {
		target += "?" + b.query.Encode()
	}
	var body io.Reader
	if b.body != nil {
		body = bytes.NewReader(b.body)
	}
	req := httptest.NewRequest(b.method, target, body)
	if b.contentType != "" {
		req.Header.Set("Content-Type", b.contentType)
	}
	for k, v := range b.header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Errorf("status = %d, want %d; body: %s", w.Code, want, w.Body)
	}
}

// AssertJSONResult checks that the envelope's result is JSON-equal to want.
func AssertJSONResult(t *testing.T, w *httptest.ResponseRecorder, want any) {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var got, expected any
	DecodeResult(t, w, &got)
	if err := json.Unmarshal(mustJSON(want), &expected); err != nil {
		t.Fatalf("round-trip want: %v", err)
	}
	if g, e := mustJSON(got), mustJSON(expected); !bytes.Equal(g, e) {
		t.Errorf("result = %s, want %s", g, e)
	}
}

// ErrorResponse mirrors the body of an error envelope.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// AssertJSONError decodes the error envelope and checks its code.
func AssertJSONError(t *testing.T, w *httptest.ResponseRecorder, code string) *ErrorResponse {
	t.Helper()
	var env struct {
		Error *ErrorResponse `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v; body: %s", err, w.Body)
	}
	if env.Error == nil {
		t.Fatalf("no error in body: %s", w.Body)
	}
	if env.Error.Code != code {
		t.Errorf("error code = %s, want %s (%s)", env.Error.Code, code, env.Error.Message)
	}
	return env.Error
}

// DecodeResult unmarshals the envelope's result into v.
func DecodeResult(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v; body: %s", err, w.Body)
	}
	if err := json.Unmarshal(env.Result, v); err != nil {
		t.Fatalf("decode result: %v; result: %s", err, env.Result)
	}
}
