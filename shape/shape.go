// Package shape describes record types by reflecting their struct fields.
//
// A Shape is computed once per Go type and cached, so the *Field pointers it
// hands out are stable identities that other packages can key metadata on.
//
// Field optionality follows encoding/json conventions:
//
//	Title  string   `json:"title"`                 // required
//	Notes  string   `json:"notes,omitempty"`       // optional
//	Rating *int     `json:"rating"`                // nullable
//	Serves int      `json:"serves" default:"2"`    // defaulted
//	Email  string   `json:"email" validate:"email"`
package shape

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// Kind is the JSON-level category of a field value.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindTime   Kind = "time"
	KindArray  Kind = "array"
	KindObject Kind = "object"
	KindMap    Kind = "map"
	KindAny    Kind = "any"
)

// Field describes one serialised struct field.
type Field struct {
	Key         string // JSON name
	GoName      string
	Kind        Kind
	Type        reflect.Type
	Optional    bool // omitempty or omitzero
	Nullable    bool // pointer type
	Default     string
	HasDefault  bool
	ValidateTag string
	Tag         reflect.StructTag

	index []int
}

// OptionalLike reports whether the field may be absent from input.
func (f *Field) OptionalLike() bool {
	return f.Optional || f.Nullable || f.HasDefault
}

func (f *Field) String() string { return f.Key }

// Shape is the reflected description of a struct type.
type Shape struct {
	typ    reflect.Type
	fields []*Field
	byKey  map[string]*Field
}

var cache sync.Map // reflect.Type -> *Shape

// Of returns the shape of T, which must be a struct or pointer to struct.
// It panics otherwise.
func Of[T any]() *Shape {
	return OfType(reflect.TypeFor[T]())
}

// OfType is the reflect.Type form of Of.
func OfType(t reflect.Type) *Shape {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := cache.Load(t); ok {
		return s.(*Shape)
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("shape: %s is not a struct", t))
	}

	s := &Shape{typ: t, byKey: make(map[string]*Field)}
	collect(t, nil, s)

	actual, _ := cache.LoadOrStore(t, s)
	return actual.(*Shape)
}

func collect(t reflect.Type, index []int, s *Shape) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() && !sf.Anonymous {
			continue
		}

		jsonTag := sf.Tag.Get("json")
		key, optional, skip := parseJSONTag(jsonTag, sf.Name)
		if skip {
			continue
		}

		idx := append(append([]int(nil), index...), i)

		// Untagged embedded structs are flattened, as encoding/json does.
		if sf.Anonymous {
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if jsonTag == "" && et.Kind() == reflect.Struct {
				collect(et, idx, s)
				continue
			}
			if !sf.IsExported() {
				continue
			}
		}

		if _, dup := s.byKey[key]; dup {
			continue
		}

		def, hasDef := sf.Tag.Lookup("default")
		f := &Field{
			Key:         key,
			GoName:      sf.Name,
			Kind:        kindOf(sf.Type),
			Type:        sf.Type,
			Optional:    optional,
			Nullable:    sf.Type.Kind() == reflect.Pointer,
			Default:     def,
			HasDefault:  hasDef,
			ValidateTag: sf.Tag.Get("validate"),
			Tag:         sf.Tag,
			index:       idx,
		}
		s.fields = append(s.fields, f)
		s.byKey[key] = f
	}
}

// parseJSONTag extracts the JSON name and whether the field is optional.
func parseJSONTag(tag, fieldName string) (name string, optional, skip bool) {
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = fieldName
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			optional = true
		}
	}
	return name, optional, false
}

var (
	timeType = reflect.TypeFor[time.Time]()
	rawType  = reflect.TypeFor[json.RawMessage]()
)

func kindOf(t reflect.Type) Kind {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType:
		return KindTime
	case rawType:
		return KindAny
	}
	switch t.Kind() {
	case reflect.String:
		return KindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.Bool:
		return KindBool
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindString // base64
		}
		return KindArray
	case reflect.Array:
		return KindArray
	case reflect.Struct:
		return KindObject
	case reflect.Map:
		return KindMap
	default:
		return KindAny
	}
}

// Name returns the Go type name of the shape.
func (s *Shape) Name() string { return s.typ.Name() }

// Type returns the struct type.
func (s *Shape) Type() reflect.Type { return s.typ }

// Fields returns the fields in declaration order. The slice must not be modified.
func (s *Shape) Fields() []*Field { return s.fields }

// Field returns the field with the given JSON key, or nil.
func (s *Shape) Field(key string) *Field { return s.byKey[key] }

// Keys returns the JSON keys in declaration order.
func (s *Shape) Keys() []string {
	keys := make([]string, len(s.fields))
	for i, f := range s.fields {
		keys[i] = f.Key
	}
	return keys
}

// nilable reports whether JSON null is a meaningful value for the field.
func (f *Field) nilable() bool {
	if f.Nullable || f.Optional {
		return true
	}
	switch f.Type.Kind() {
	case reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}

// value returns the addressable field value inside v, allocating embedded
// pointers on the way.
func (f *Field) value(v reflect.Value) reflect.Value {
	for i, x := range f.index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}
