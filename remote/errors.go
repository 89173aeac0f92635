package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode is the machine-readable part of an error envelope.
type ErrorCode string

const (
	CodeInvalidArgument   ErrorCode = "invalid_argument"
	CodeUnauthenticated   ErrorCode = "unauthenticated"
	CodePermissionDenied  ErrorCode = "permission_denied"
	CodeNotFound          ErrorCode = "not_found"
	CodeMethodNotAllowed  ErrorCode = "method_not_allowed"
	CodeConflict          ErrorCode = "conflict"
	CodeResourceExhausted ErrorCode = "resource_exhausted"
	CodeCanceled          ErrorCode = "canceled"
	CodeInternal          ErrorCode = "internal"
	CodeNotImplemented    ErrorCode = "not_implemented"
	CodeBadGateway        ErrorCode = "bad_gateway" // provider failed or returned malformed records
	CodeUnavailable       ErrorCode = "unavailable"
	CodeDeadlineExceeded  ErrorCode = "deadline_exceeded"
)

// statusClientClosed is the nginx convention for a request the caller gave up on.
const statusClientClosed = 499

var httpStatus = map[ErrorCode]int{
	CodeInvalidArgument:   http.StatusBadRequest,
	CodeUnauthenticated:   http.StatusUnauthorized,
	CodePermissionDenied:  http.StatusForbidden,
	CodeNotFound:          http.StatusNotFound,
	CodeMethodNotAllowed:  http.StatusMethodNotAllowed,
	CodeConflict:          http.StatusConflict,
	CodeResourceExhausted: http.StatusTooManyRequests,
	CodeCanceled:          statusClientClosed,
	CodeInternal:          http.StatusInternalServerError,
	CodeNotImplemented:    http.StatusNotImplemented,
	CodeBadGateway:        http.StatusBadGateway,
	CodeUnavailable:       http.StatusServiceUnavailable,
	CodeDeadlineExceeded:  http.StatusGatewayTimeout,
}

// HTTPStatus returns the status written for c. Unknown codes are 500.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := httpStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is what a failed call returns to the client inside {"error": ...}.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WithDetail returns a copy of e carrying one more detail. e is not modified.
func (e *Error) WithDetail(key string, value any) *Error {
	out := *e
	out.Details = maps.Clone(e.Details)
	if out.Details == nil {
		out.Details = make(map[string]any, 1)
	}
	out.Details[key] = value
	return &out
}

// ErrorTransformer maps an application error to a service error.
// Returning nil falls through to DefaultErrorTransformer.
type ErrorTransformer func(error) *Error

// DefaultErrorTransformer recognizes *Error anywhere in the chain, context
// errors, validator failures and joined errors. Everything else is internal.
func DefaultErrorTransformer(err error) *Error {
	if err == nil {
		return nil
	}

	var svcErr *Error
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &svcErr):
		return svcErr
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(CodeDeadlineExceeded, "request timeout")
	case errors.Is(err, context.Canceled):
		return NewError(CodeCanceled, "context canceled")
	case errors.As(err, &fieldErrs):
		return fromFieldErrors(fieldErrs)
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := joined.Unwrap(); len(errs) > 0 {
			out := *DefaultErrorTransformer(errs[0])
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			out.Message = strings.Join(msgs, "; ")
			return &out
		}
	}
	return NewError(CodeInternal, err.Error())
}

// fromFieldErrors builds an invalid_argument error whose details are keyed by
// the request's JSON path, e.g. "createRequest.author.name".
func fromFieldErrors(fieldErrs validator.ValidationErrors) *Error {
	out := &Error{Code: CodeInvalidArgument, Details: make(map[string]any, len(fieldErrs))}
	var b strings.Builder
	for i, fe := range fieldErrs {
		msg := FormatValidationError(fe)
		out.Details[fe.Namespace()] = msg
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", fe.Namespace(), msg)
	}
	out.Message = b.String()
	return out
}

var validationMessages = map[string]string{
	"required": "required",
	"min":      "must be at least %s",
	"gte":      "must be at least %s",
	"max":      "must be at most %s",
	"lte":      "must be at most %s",
	"gt":       "must be greater than %s",
	"lt":       "must be less than %s",
	"len":      "must have length %s",
	"oneof":    "must be one of: %s",
	"email":    "must be a valid email address",
	"url":      "must be a valid URL",
	"http_url": "must be a valid URL",
	"uuid":     "must be a valid UUID",
}

// FormatValidationError renders one failed validator tag as a short message.
func FormatValidationError(fe validator.FieldError) string {
	if format, ok := validationMessages[fe.Tag()]; ok {
		if strings.Contains(format, "%s") {
			return fmt.Sprintf(format, fe.Param())
		}
		return format
	}
	if fe.Param() == "" {
		return "failed " + fe.Tag() + " validation"
	}
	return "failed " + fe.Tag() + "=" + fe.Param() + " validation"
}

func writeError(w http.ResponseWriter, svcErr *Error, logger *slog.Logger) {
	if err := writeJSON(w, svcErr.Code.HTTPStatus(), errorEnvelope{Error: svcErr}); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("failed to write error envelope",
			slog.String("code", string(svcErr.Code)),
			slog.Any("error", err))
	}
}
