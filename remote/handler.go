package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

var (
	validate      = validator.New(validator.WithRequiredStructEnabled())
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
	schemaDecoder.SetAliasTag("json")
	validate.RegisterTagNameFunc(jsonFieldName)
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// inputParam is the query parameter carrying a JSON-encoded request for GET endpoints.
const inputParam = "input"

const (
	primitiveQuery = "query"
	primitiveExec  = "exec"
)

// EndpointMetadata describes a registered endpoint.
type EndpointMetadata struct {
	Primitive  string // "query" or "exec"
	HTTPMethod string
	Request    reflect.Type
	Response   reflect.Type
}

// Endpoint is a network-callable operation created by Query or Exec.
// It is sealed: only this package can implement it.
type Endpoint interface {
	Metadata() *EndpointMetadata
	serveHTTP(ctx *Context, cfg *callConfig)
}

// callConfig is the per-request configuration assembled by App.
type callConfig struct {
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	interceptors       []UnaryInterceptor
	logger             *slog.Logger
	maxRequestBodySize uint64
}

type unary[Req any, Res any] struct {
	fn           func(context.Context, Req) (Res, error)
	interceptors []UnaryInterceptor
}

func (u *unary[Req, Res]) metadata(primitive, method string) *EndpointMetadata {
	return &EndpointMetadata{
		Primitive:  primitive,
		HTTPMethod: method,
		Request:    reflect.TypeOf((*Req)(nil)).Elem(),
		Response:   reflect.TypeOf((*Res)(nil)).Elem(),
	}
}

func (u *unary[Req, Res]) invoke(ctx *Context, req Req, outer []UnaryInterceptor) (Res, error) {
	var zero Res

	final := func(ctx context.Context, reqAny any) (any, error) {
		typed, ok := reqAny.(Req)
		if !ok {
			return nil, NewError(CodeInternal, "interceptor modified request type incorrectly")
		}
		return u.fn(ctx, typed)
	}

	all := make([]UnaryInterceptor, 0, len(outer)+len(u.interceptors))
	all = append(all, outer...)
	all = append(all, u.interceptors...)

	var res any
	var err error
	if chain := chainInterceptors(all); chain != nil {
		res, err = chain(ctx, req, final)
	} else {
		res, err = final(ctx, req)
	}
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	typed, ok := res.(Res)
	if !ok {
		return zero, NewError(CodeInternal, "interceptor modified response type incorrectly")
	}
	return typed, nil
}

func (u *unary[Req, Res]) call(ctx context.Context, req Req) (Res, error) {
	if err := validateRequest(req); err != nil {
		var zero Res
		return zero, err
	}
	rctx, ok := FromContext(ctx)
	if !ok {
		rctx = newContext(ctx, nil, nil, "", "")
	}
	return u.invoke(rctx, req, nil)
}

func (u *unary[Req, Res]) respond(ctx *Context, cfg *callConfig, req Req, decodeErr error) {
	if decodeErr == nil {
		decodeErr = validateRequest(req)
	}
	if decodeErr != nil {
		handleError(ctx.w, decodeErr, cfg)
		return
	}

	res, err := u.invoke(ctx, req, cfg.interceptors)
	if err != nil {
		handleError(ctx.w, err, cfg)
		return
	}

	if err := writeResult(ctx.w, res); err != nil {
		cfg.logger.Error("failed to write result",
			slog.String("endpoint", ctx.EndpointID()),
			slog.Any("error", err))
	}
}

// QueryHandler is a read-only endpoint served over GET.
type QueryHandler[Req any, Res any] struct {
	unary[Req, Res]
}

// Query creates a read-only endpoint from fn.
//
// Requests decode from the URL: a single "input" parameter holding JSON
// decodes into Req directly; otherwise flat parameters decode by json tag name.
func Query[Req any, Res any](fn func(context.Context, Req) (Res, error)) *QueryHandler[Req, Res] {
	return &QueryHandler[Req, Res]{unary[Req, Res]{fn: fn}}
}

// WithUnaryInterceptor adds an interceptor that runs after app and service interceptors.
func (h *QueryHandler[Req, Res]) WithUnaryInterceptor(i UnaryInterceptor) *QueryHandler[Req, Res] {
	h.interceptors = append(h.interceptors, i)
	return h
}

// Call invokes the endpoint in-process, validating req first.
// Handler-level interceptors run; app and service interceptors do not.
func (h *QueryHandler[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	return h.call(ctx, req)
}

// Metadata returns the endpoint metadata.
func (h *QueryHandler[Req, Res]) Metadata() *EndpointMetadata {
	return h.metadata(primitiveQuery, http.MethodGet)
}

func (h *QueryHandler[Req, Res]) serveHTTP(ctx *Context, cfg *callConfig) {
	req, err := decodeQuery[Req](ctx.r.URL.Query())
	h.respond(ctx, cfg, req, err)
}

// ExecHandler is a mutating endpoint served over POST with a JSON body.
type ExecHandler[Req any, Res any] struct {
	unary[Req, Res]
	maxRequestBodySize *uint64
}

// Exec creates a mutating endpoint from fn.
func Exec[Req any, Res any](fn func(context.Context, Req) (Res, error)) *ExecHandler[Req, Res] {
	return &ExecHandler[Req, Res]{unary: unary[Req, Res]{fn: fn}}
}

// WithUnaryInterceptor adds an interceptor that runs after app and service interceptors.
func (h *ExecHandler[Req, Res]) WithUnaryInterceptor(i UnaryInterceptor) *ExecHandler[Req, Res] {
	h.interceptors = append(h.interceptors, i)
	return h
}

// WithMaxRequestBodySize overrides the app-wide body limit for this endpoint.
// A value of 0 means no limit.
func (h *ExecHandler[Req, Res]) WithMaxRequestBodySize(size uint64) *ExecHandler[Req, Res] {
	h.maxRequestBodySize = &size
	return h
}

// Call invokes the endpoint in-process, validating req first.
// Handler-level interceptors run; app and service interceptors do not.
func (h *ExecHandler[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	return h.call(ctx, req)
}

// Metadata returns the endpoint metadata.
func (h *ExecHandler[Req, Res]) Metadata() *EndpointMetadata {
	return h.metadata(primitiveExec, http.MethodPost)
}

func (h *ExecHandler[Req, Res]) serveHTTP(ctx *Context, cfg *callConfig) {
	limit := cfg.maxRequestBodySize
	if h.maxRequestBodySize != nil {
		limit = *h.maxRequestBodySize
	}
	req, err := decodeBody[Req](ctx.w, ctx.r, limit)
	h.respond(ctx, cfg, req, err)
}

func decodeQuery[Req any](values url.Values) (Req, error) {
	var req Req
	if raw := values.Get(inputParam); raw != "" && len(values) == 1 {
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return req, Errorf(CodeInvalidArgument, "failed to decode input: %v", err)
		}
		return req, nil
	}

	t := reflect.TypeOf(&req).Elem()
	if t.Kind() == reflect.Pointer {
		if t.Elem().Kind() != reflect.Struct {
			return req, Errorf(CodeInvalidArgument, "query requires a JSON %q parameter", inputParam)
		}
		v := reflect.New(t.Elem())
		if err := schemaDecoder.Decode(v.Interface(), values); err != nil {
			return req, Errorf(CodeInvalidArgument, "failed to decode query: %v", err)
		}
		return v.Interface().(Req), nil
	}
	if t.Kind() != reflect.Struct {
		return req, Errorf(CodeInvalidArgument, "query requires a JSON %q parameter", inputParam)
	}
	if err := schemaDecoder.Decode(&req, values); err != nil {
		return req, Errorf(CodeInvalidArgument, "failed to decode query: %v", err)
	}
	return req, nil
}

func decodeBody[Req any](w http.ResponseWriter, r *http.Request, limit uint64) (Req, error) {
	var req Req
	if r.Body == nil {
		return req, nil
	}
	body := r.Body
	if limit > 0 {
		body = http.MaxBytesReader(w, r.Body, int64(limit))
	}
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return req, Errorf(CodeResourceExhausted, "request body exceeds %d bytes", maxErr.Limit)
		}
		return req, Errorf(CodeInvalidArgument, "failed to decode body: %v", err)
	}
	return req, nil
}

// validateRequest runs validator tags on struct requests. Other kinds pass through.
func validateRequest(req any) error {
	v := reflect.ValueOf(req)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(req)
}

func handleError(w http.ResponseWriter, err error, cfg *callConfig) {
	var svcErr *Error
	if cfg.errorTransformer != nil {
		svcErr = cfg.errorTransformer(err)
	}
	if svcErr == nil {
		svcErr = DefaultErrorTransformer(err)
	}
	if cfg.maskInternalErrors && svcErr.Code == CodeInternal {
		svcErr = NewError(CodeInternal, "internal server error")
	}
	writeError(w, svcErr, cfg.logger)
}
