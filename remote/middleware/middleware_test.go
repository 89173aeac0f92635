package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/reskit/remote"
)

func TestLoggingInterceptor_Success(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := remote.NewContext(context.Background(), "recipes", "GetMany")
	res, err := LoggingInterceptor(logger)(ctx, "req", func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	out := buf.String()
	assert.Contains(t, out, "call started")
	assert.Contains(t, out, "call completed")
	assert.Contains(t, out, "recipes.GetMany")
}

func TestLoggingInterceptor_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := remote.NewContext(context.Background(), "recipes", "DeleteOne")
	boom := errors.New("boom")
	res, err := LoggingInterceptor(logger)(ctx, "req", func(ctx context.Context, req any) (any, error) {
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)
	assert.Contains(t, buf.String(), "call failed")
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestLoggingInterceptor_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	base := context.WithValue(context.Background(), chimw.RequestIDKey, "host/000042")
	ctx := remote.NewContext(base, "berries", "GetOne")
	_, err := LoggingInterceptor(logger)(ctx, "req", func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"request_id":"host/000042"`)
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		cfg         *CORSConfig
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantCreds   string
		wantMethods string
	}{
		{
			name:       "default wildcard",
			cfg:        CORSAllowAll,
			method:     http.MethodGet,
			origin:     "http://localhost:5173",
			wantStatus: http.StatusOK,
			wantOrigin: "*",
		},
		{
			name:        "preflight",
			cfg:         CORSAllowAll,
			method:      http.MethodOptions,
			origin:      "http://localhost:5173",
			wantStatus:  http.StatusNoContent,
			wantOrigin:  "*",
			wantMethods: "GET, POST, OPTIONS",
		},
		{
			name:       "specific origin allowed",
			cfg:        &CORSConfig{AllowOrigins: []string{"https://admin.example.com"}},
			method:     http.MethodGet,
			origin:     "https://admin.example.com",
			wantStatus: http.StatusOK,
			wantOrigin: "https://admin.example.com",
		},
		{
			name:       "specific origin rejected",
			cfg:        &CORSConfig{AllowOrigins: []string{"https://admin.example.com"}},
			method:     http.MethodGet,
			origin:     "https://evil.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wildcard with credentials echoes origin",
			cfg:        &CORSConfig{AllowCredentials: true},
			method:     http.MethodGet,
			origin:     "http://localhost:5173",
			wantStatus: http.StatusOK,
			wantOrigin: "http://localhost:5173",
			wantCreds:  "true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/recipes/GetMany", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()

			CORS(tt.cfg)(ok).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, tt.wantMethods, w.Header().Get("Access-Control-Allow-Methods"))
		})
	}
}
