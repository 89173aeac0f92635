package middleware

import (
	"log/slog"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/broady/reskit/remote"
)

// LoggingInterceptor logs one line per call. Successful calls log at info,
// failures at error with the error attached. When the request went through
// chi's RequestID middleware the id is included.
func LoggingInterceptor(logger *slog.Logger) remote.UnaryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx *remote.Context, req any, next remote.HandlerFunc) (any, error) {
		attrs := []any{slog.String("endpoint", ctx.EndpointID())}
		if id := chimw.GetReqID(ctx); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		log := logger.With(attrs...)
		log.DebugContext(ctx, "call started")

		start := time.Now()
		res, err := next(ctx, req)
		elapsed := slog.Duration("duration", time.Since(start))
		if err != nil {
			log.ErrorContext(ctx, "call failed", elapsed, slog.Any("error", err))
			return res, err
		}
		log.InfoContext(ctx, "call completed", elapsed)
		return res, nil
	}
}
