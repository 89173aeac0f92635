package remote

import (
	"context"
	"net/http"
)

type contextKey struct {
	name string
}

var callKey = &contextKey{"call"}

// Context carries request metadata for a single endpoint call.
// Interceptors receive it so they can inspect the service and method
// without type assertions.
type Context struct {
	context.Context

	service string
	method  string
	w       http.ResponseWriter
	r       *http.Request
}

// Service returns the service (resource) name of the current call.
func (c *Context) Service() string { return c.service }

// Method returns the endpoint name of the current call.
func (c *Context) Method() string { return c.method }

// EndpointID returns "Service.Method".
func (c *Context) EndpointID() string { return c.service + "." + c.method }

// HTTPRequest returns the underlying request, or nil for in-process calls.
func (c *Context) HTTPRequest() *http.Request { return c.r }

// HTTPWriter returns the underlying response writer, or nil for in-process calls.
func (c *Context) HTTPWriter() http.ResponseWriter { return c.w }

// Value implements context.Context, exposing the *Context itself under an internal key.
func (c *Context) Value(key any) any {
	if key == callKey {
		return c
	}
	return c.Context.Value(key)
}

// FromContext returns the *Context stored in ctx, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	if c, ok := ctx.(*Context); ok {
		return c, true
	}
	c, ok := ctx.Value(callKey).(*Context)
	return c, ok
}

// SetHeader sets an HTTP response header. It is a no-op for in-process calls.
func SetHeader(ctx context.Context, key, value string) {
	if c, ok := FromContext(ctx); ok && c.w != nil {
		c.w.Header().Set(key, value)
	}
}

// NewContext returns a call context without an HTTP request, for in-process
// calls and interceptor tests.
func NewContext(ctx context.Context, service, method string) *Context {
	return newContext(ctx, nil, nil, service, method)
}

func newContext(ctx context.Context, w http.ResponseWriter, r *http.Request, service, method string) *Context {
	return &Context{
		Context: ctx,
		service: service,
		method:  method,
		w:       w,
		r:       r,
	}
}
