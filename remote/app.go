// Package remote turns plain Go functions into network-callable query and
// command endpoints grouped by service.
//
// Routes have the form /{service}/{method}. Queries are served over GET and
// execs over POST; both answer with a {"result": ...} or {"error": {...}}
// JSON envelope.
package remote

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
)

// App routes /{service}/{method} to registered endpoints. It is safe to
// register endpoints while serving.
type App struct {
	mu                 sync.RWMutex
	routes             map[string]*route
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	interceptors       []UnaryInterceptor
	middlewares        []func(http.Handler) http.Handler
	logger             *slog.Logger
	maxRequestBodySize uint64
}

type route struct {
	service      string
	method       string
	endpoint     Endpoint
	interceptors []UnaryInterceptor
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Service  string
	Method   string
	Path     string
	Metadata *EndpointMetadata
}

const defaultMaxBodySize = 1 << 20

func NewApp() *App {
	return &App{
		routes:             make(map[string]*route),
		maxRequestBodySize: defaultMaxBodySize,
	}
}

// WithErrorTransformer installs fn ahead of DefaultErrorTransformer.
func (a *App) WithErrorTransformer(fn ErrorTransformer) *App {
	a.errorTransformer = fn
	return a
}

// WithMaskInternalErrors hides the message of internal errors from clients.
// The original error is still available to interceptors.
func (a *App) WithMaskInternalErrors() *App {
	a.maskInternalErrors = true
	return a
}

// WithUnaryInterceptor adds an interceptor for every endpoint. App
// interceptors run before service interceptors, which run before endpoint
// interceptors.
func (a *App) WithUnaryInterceptor(i UnaryInterceptor) *App {
	a.interceptors = append(a.interceptors, i)
	return a
}

// WithMiddleware adds an HTTP middleware. The first added is outermost.
func (a *App) WithMiddleware(mw func(http.Handler) http.Handler) *App {
	a.middlewares = append(a.middlewares, mw)
	return a
}

// WithLogger sets the logger; slog.Default() otherwise.
func (a *App) WithLogger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// WithMaxRequestBodySize caps request bodies. 0 disables the cap; the
// default is 1 MiB.
func (a *App) WithMaxRequestBodySize(size uint64) *App {
	a.maxRequestBodySize = size
	return a
}

func (a *App) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

// Handler returns the app wrapped in its middleware.
func (a *App) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(a.serveHTTP)
	for _, mw := range slices.Backward(a.middlewares) {
		h = mw(h)
	}
	return h
}

// Service returns a namespace for endpoints under /name/.
func (a *App) Service(name string) *Service {
	return &Service{app: a, name: name}
}

// Routes lists registered routes ordered by path.
func (a *App) Routes() []RouteInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]RouteInfo, 0, len(a.routes))
	for _, r := range a.routes {
		out = append(out, RouteInfo{
			Service:  r.service,
			Method:   r.method,
			Path:     "/" + r.service + "/" + r.method,
			Metadata: r.endpoint.Metadata(),
		})
	}
	slices.SortFunc(out, func(x, y RouteInfo) int { return strings.Compare(x.Path, y.Path) })
	return out
}

func (a *App) serveHTTP(w http.ResponseWriter, req *http.Request) {
	logger := a.log()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("endpoint panicked",
				slog.String("path", req.URL.Path),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			writeError(w, Errorf(CodeInternal, "panic: %v", rec), logger)
		}
	}()

	service, method, _ := strings.Cut(strings.Trim(req.URL.Path, "/"), "/")
	a.mu.RLock()
	r, ok := a.routes[service+"."+method]
	a.mu.RUnlock()
	if !ok || strings.Contains(method, "/") {
		writeError(w, Errorf(CodeNotFound, "no endpoint at %s", req.URL.Path), logger)
		return
	}

	expected := r.endpoint.Metadata().HTTPMethod
	if req.Method != expected {
		w.Header().Set("Allow", expected)
		writeError(w, Errorf(CodeMethodNotAllowed, "%s %s: use %s", req.Method, req.URL.Path, expected), logger)
		return
	}

	cfg := &callConfig{
		errorTransformer:   a.errorTransformer,
		maskInternalErrors: a.maskInternalErrors,
		interceptors:       slices.Concat(a.interceptors, r.interceptors),
		logger:             logger,
		maxRequestBodySize: a.maxRequestBodySize,
	}
	r.endpoint.serveHTTP(newContext(req.Context(), w, req, service, method), cfg)
}

// Service groups the endpoints of one resource.
type Service struct {
	app          *App
	name         string
	interceptors []UnaryInterceptor
}

// Name returns the service name.
func (s *Service) Name() string { return s.name }

// WithUnaryInterceptor adds an interceptor for endpoints registered after it.
func (s *Service) WithUnaryInterceptor(i UnaryInterceptor) *Service {
	s.interceptors = append(s.interceptors, i)
	return s
}

// Register adds ep at /{service}/{method}. Registering a method twice
// replaces the first endpoint and logs a warning.
func (s *Service) Register(method string, ep Endpoint) {
	key := s.name + "." + method

	s.app.mu.Lock()
	defer s.app.mu.Unlock()

	if _, exists := s.app.routes[key]; exists {
		s.app.log().Warn("duplicate route registration",
			slog.String("service", s.name),
			slog.String("method", method))
	}

	s.app.routes[key] = &route{
		service:      s.name,
		method:       method,
		endpoint:     ep,
		interceptors: slices.Clone(s.interceptors),
	}
}
