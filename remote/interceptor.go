package remote

import (
	"context"
	"slices"
)

// HandlerFunc is the rest of the chain as seen from an interceptor.
type HandlerFunc func(ctx context.Context, req any) (res any, err error)

// UnaryInterceptor runs around every call. It may rewrite req, rewrite the
// result, or fail without calling next.
//
//	func audit(ctx *remote.Context, req any, next remote.HandlerFunc) (any, error) {
//	    if ctx.Method() == "DeleteOne" {
//	        slog.InfoContext(ctx, "delete", "resource", ctx.Service())
//	    }
//	    return next(ctx, req)
//	}
type UnaryInterceptor func(ctx *Context, req any, next HandlerFunc) (res any, err error)

// chainInterceptors folds interceptors into one; interceptors[0] runs first.
func chainInterceptors(interceptors []UnaryInterceptor) UnaryInterceptor {
	switch len(interceptors) {
	case 0:
		return nil
	case 1:
		return interceptors[0]
	}
	return func(ctx *Context, req any, last HandlerFunc) (any, error) {
		next := last
		for _, ic := range slices.Backward(interceptors) {
			next = bind(ic, next)
		}
		return next(ctx, req)
	}
}

// bind adapts ic to a HandlerFunc. An outer interceptor may have passed a
// derived context; the call metadata is carried over onto it.
func bind(ic UnaryInterceptor, next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, req any) (any, error) {
		call, ok := FromContext(ctx)
		if !ok {
			call = newContext(ctx, nil, nil, "", "")
		} else if ctx != context.Context(call) {
			derived := *call
			derived.Context = ctx
			call = &derived
		}
		return ic(call, req, next)
	}
}
