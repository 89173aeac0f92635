package shape

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/broady/reskit/remote"
)

// Issue is a single validation failure.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError reports every issue found while checking a value against a shape.
type ValidationError struct {
	Shape  string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return fmt.Sprintf("invalid %s: %s", e.Shape, strings.Join(parts, "; "))
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func (e *ValidationError) add(path, format string, args ...any) {
	e.Issues = append(e.Issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) prefix(p string) {
	for i := range e.Issues {
		if e.Issues[i].Path == "" {
			e.Issues[i].Path = p
		} else {
			e.Issues[i].Path = p + "." + e.Issues[i].Path
		}
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

// fromValidator converts validator errors into issues keyed by JSON path.
func (e *ValidationError) fromValidator(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		// drop the leading struct name
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		e.Issues = append(e.Issues, Issue{Path: path, Message: remote.FormatValidationError(fe)})
	}
	return nil
}
