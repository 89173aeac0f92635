package resource

import (
	"errors"
	"fmt"

	"github.com/broady/reskit/remote"
	"github.com/broady/reskit/shape"
)

// ErrRequestFailed is wrapped by every TransportError.
var ErrRequestFailed = errors.New("upstream request failed")

// TransportError reports a non-success response from a provider's upstream.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
}

func (e *TransportError) Unwrap() error { return ErrRequestFailed }

// ErrorTransformer maps provider failures to remote errors. Malformed
// upstream data and upstream HTTP failures become bad_gateway; anything else
// falls through to the default transformer.
func ErrorTransformer(err error) *remote.Error {
	var verr *shape.ValidationError
	if errors.As(err, &verr) {
		out := remote.NewError(remote.CodeBadGateway, verr.Error())
		for _, is := range verr.Issues {
			out = out.WithDetail(is.Path, is.Message)
		}
		return out
	}
	var terr *TransportError
	if errors.As(err, &terr) {
		return remote.NewError(remote.CodeBadGateway, terr.Error()).
			WithDetail("status", terr.StatusCode)
	}
	return nil
}

// invalidInput reports a client payload that does not fit the shape.
func invalidInput(err error) error {
	var verr *shape.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	out := remote.NewError(remote.CodeInvalidArgument, verr.Error())
	for _, is := range verr.Issues {
		out = out.WithDetail(is.Path, is.Message)
	}
	return out
}
