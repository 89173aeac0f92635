package shape

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}

// Partial is a subset of a record's fields keyed by JSON name.
type Partial = map[string]any

// Parse decodes a single JSON object into T, checking that every required
// field is present, that values have the expected JSON kind, and that
// validate tags pass. Absent defaulted fields receive their default.
func Parse[T any](s *Shape, data []byte) (T, error) {
	var out T
	verr := &ValidationError{Shape: s.Name()}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		verr.add("", "expected object, got %s", jsonKind(data))
		return out, verr
	}

	s.checkObject(obj, false, verr)
	if len(verr.Issues) > 0 {
		return out, verr
	}

	if err := json.Unmarshal(data, &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			verr.add(typeErr.Field, "cannot decode %s into %s", typeErr.Value, typeErr.Type)
		} else {
			verr.add("", "%v", err)
		}
		return out, verr
	}

	rv := reflect.ValueOf(&out).Elem()
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}
	for _, f := range s.fields {
		if _, present := obj[f.Key]; present || !f.HasDefault {
			continue
		}
		if err := setDefault(f.value(rv), f.Default); err != nil {
			verr.add(f.Key, "bad default %q: %v", f.Default, err)
		}
	}
	if len(verr.Issues) > 0 {
		return out, verr
	}

	if err := s.Validate(out); err != nil {
		return out, err
	}
	return out, nil
}

// ParseSlice decodes a JSON array of objects. Issue paths are prefixed with
// the element index, e.g. "[2].title".
func ParseSlice[T any](s *Shape, data []byte) ([]T, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		verr := &ValidationError{Shape: s.Name()}
		verr.add("", "expected array, got %s", jsonKind(data))
		return nil, verr
	}

	out := make([]T, 0, len(raws))
	all := &ValidationError{Shape: s.Name()}
	for i, raw := range raws {
		v, err := Parse[T](s, raw)
		if err != nil {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				return nil, err
			}
			verr.prefix("[" + strconv.Itoa(i) + "]")
			all.Issues = append(all.Issues, verr.Issues...)
			continue
		}
		out = append(out, v)
	}
	if err := all.orNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate runs validate tags on an already typed value of the shape's type
// (or a pointer to it). A nil pointer is reported as an issue.
func (s *Shape) Validate(v any) error {
	verr := &ValidationError{Shape: s.Name()}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		verr.add("", "expected %s, got null", s.Name())
		return verr
	}
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Type() != s.typ {
		return fmt.Errorf("shape: cannot validate %s as %s", rv.Type(), s.typ)
	}
	if err := validate.Struct(rv.Interface()); err != nil {
		if err := verr.fromValidator(err); err != nil {
			return err
		}
	}
	return verr.orNil()
}

// ParsePartial decodes a JSON object keeping only the shape's keys. Present
// values are decoded into their field types and checked against the field's
// validate tag; unknown keys are dropped. Required fields may be absent.
func (s *Shape) ParsePartial(data []byte) (Partial, error) {
	verr := &ValidationError{Shape: s.Name()}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		verr.add("", "expected object, got %s", jsonKind(data))
		return nil, verr
	}

	s.checkObject(obj, true, verr)
	if len(verr.Issues) > 0 {
		return nil, verr
	}

	out := make(Partial, len(obj))
	for _, f := range s.fields {
		raw, ok := obj[f.Key]
		if !ok {
			continue
		}
		if isNull(raw) {
			out[f.Key] = nil
			continue
		}
		ptr := reflect.New(f.Type)
		if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
			verr.add(f.Key, "cannot decode %s into %s", jsonKind(raw), f.Type)
			continue
		}
		val := ptr.Elem().Interface()
		if f.ValidateTag != "" {
			if err := validate.Var(val, f.ValidateTag); err != nil {
				fieldErr := &ValidationError{}
				if err := fieldErr.fromValidator(err); err != nil {
					return nil, err
				}
				fieldErr.prefix(f.Key)
				verr.Issues = append(verr.Issues, fieldErr.Issues...)
				continue
			}
		}
		out[f.Key] = val
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidatePartial checks an in-memory partial by round-tripping it through JSON.
func (s *Shape) ValidatePartial(p Partial) (Partial, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode partial: %w", err)
	}
	return s.ParsePartial(data)
}

// checkObject records missing required fields, unexpected nulls and kind mismatches.
func (s *Shape) checkObject(obj map[string]json.RawMessage, partial bool, verr *ValidationError) {
	for _, f := range s.fields {
		raw, present := obj[f.Key]
		switch {
		case !present:
			if !partial && !f.OptionalLike() {
				verr.add(f.Key, "required")
			}
		case isNull(raw):
			if !f.nilable() {
				verr.add(f.Key, "must not be null")
			}
		default:
			if got := jsonKind(raw); !accepts(f.Kind, got) {
				verr.add(f.Key, "expected %s, got %s", f.Kind, got)
			}
		}
	}
}

func accepts(k Kind, got string) bool {
	switch k {
	case KindString, KindTime:
		return got == "string"
	case KindInt, KindFloat:
		return got == "number"
	case KindBool:
		return got == "boolean"
	case KindArray:
		return got == "array"
	case KindObject, KindMap:
		return got == "object"
	default:
		return true
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// jsonKind names the JSON type of raw by its first significant byte.
func jsonKind(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "nothing"
	}
	switch raw[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

func setDefault(v reflect.Value, def string) error {
	if v.Kind() == reflect.Pointer {
		v.Set(reflect.New(v.Type().Elem()))
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(def)
	case reflect.Bool:
		b, err := strconv.ParseBool(def)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(def, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(def, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(def, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(n)
	default:
		return json.Unmarshal([]byte(def), v.Addr().Interface())
	}
	return nil
}
