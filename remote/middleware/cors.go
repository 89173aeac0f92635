// Package middleware holds HTTP middleware and interceptors for remote apps.
package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists origins allowed to call the API. "*" allows all.
	// Default: ["*"]
	AllowOrigins []string

	// AllowMethods default: ["GET", "POST", "OPTIONS"]
	AllowMethods []string

	// AllowHeaders default: ["Content-Type", "Authorization"]
	AllowHeaders []string

	ExposeHeaders []string

	// AllowCredentials sets Access-Control-Allow-Credentials. With a wildcard
	// origin the requesting origin is echoed back instead of "*".
	AllowCredentials bool

	// MaxAge in seconds for preflight caching. 0 leaves the header unset.
	MaxAge int
}

// CORSAllowAll is a permissive configuration for local development.
var CORSAllowAll *CORSConfig = nil

// CORS returns an HTTP middleware that answers preflight requests and sets
// CORS headers. Admin UIs served from a dev server on another port need it.
func CORS(cfg *CORSConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = &CORSConfig{}
	}
	origins := orDefault(cfg.AllowOrigins, "*")
	methods := strings.Join(orDefault(cfg.AllowMethods, http.MethodGet, http.MethodPost, http.MethodOptions), ", ")
	headers := strings.Join(orDefault(cfg.AllowHeaders, "Content-Type", "Authorization"), ", ")
	exposed := strings.Join(cfg.ExposeHeaders, ", ")
	wildcard := slices.Contains(origins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()

			switch {
			case wildcard && origin != "" && cfg.AllowCredentials:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			case wildcard:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(origins, origin):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			if cfg.AllowCredentials && h.Get("Access-Control-Allow-Origin") != "" {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if exposed != "" {
					h.Set("Access-Control-Expose-Headers", exposed)
				}
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func orDefault(v []string, def ...string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
