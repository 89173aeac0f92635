package field

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/broady/reskit/shape"
)

// Resolved is the effective metadata of one field, optionally for one view.
type Resolved struct {
	Key         string
	Label       string
	Placeholder string
	Description string
	Hidden      bool
	ReadOnly    bool
	Required    bool
	Order       float64 // +Inf when unset
	Kind        shape.Kind
	Views       Views    `json:"-"`
	Render      Renderer `json:"-"`
}

// MarshalJSON encodes an unset Order as null.
func (r Resolved) MarshalJSON() ([]byte, error) {
	var order *float64
	if !math.IsInf(r.Order, 1) {
		order = &r.Order
	}
	return json.Marshal(struct {
		Key         string     `json:"key"`
		Label       string     `json:"label"`
		Placeholder string     `json:"placeholder,omitempty"`
		Description string     `json:"description,omitempty"`
		Hidden      bool       `json:"hidden"`
		ReadOnly    bool       `json:"readOnly"`
		Required    bool       `json:"required"`
		Order       *float64   `json:"order"`
		Kind        shape.Kind `json:"kind"`
	}{r.Key, r.Label, r.Placeholder, r.Description, r.Hidden, r.ReadOnly, r.Required, order, r.Kind})
}

// Humanize turns a camelCase key into a label: a space is inserted between
// a lower-case letter and a following upper-case letter, and the first
// character is upper-cased.
//
//	Humanize("prepTimeMinutes") == "Prep Time Minutes"
//	Humanize("id") == "Id"
func Humanize(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	for i := 0; i < len(key); i++ {
		c := key[i]
		if i > 0 && 'A' <= c && c <= 'Z' {
			if p := key[i-1]; 'a' <= p && p <= 'z' {
				b.WriteByte(' ')
			}
		}
		b.WriteByte(c)
	}
	s := b.String()
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// ResolveField combines the registered metadata for f with computed defaults.
// Required is derived from the shape and cannot be set through metadata.
func (r *Registry) ResolveField(key string, f *shape.Field) Resolved {
	m, _ := r.Get(f)

	res := Resolved{
		Key:         key,
		Label:       m.Label,
		Placeholder: m.Placeholder,
		Description: m.Description,
		Hidden:      m.Hidden,
		ReadOnly:    m.ReadOnly,
		Required:    !f.OptionalLike(),
		Order:       math.Inf(1),
		Kind:        f.Kind,
		Views:       m.Views,
	}
	if res.Label == "" {
		res.Label = Humanize(key)
	}
	if m.Order != nil {
		res.Order = float64(*m.Order)
	}
	return res
}

// ResolveFields resolves every field of s in declaration order, then sorts
// stably by Order so unordered fields keep their declared position at the end.
func (r *Registry) ResolveFields(s *shape.Shape) []Resolved {
	fields := s.Fields()
	out := make([]Resolved, len(fields))
	for i, f := range fields {
		out[i] = r.ResolveField(f.Key, f)
	}
	sortByOrder(out)
	return out
}

// FieldsForView resolves the fields of s as they appear in view.
//
// Globally hidden fields are always dropped; a view override cannot unhide
// them. Fields hidden for this view are dropped. Otherwise non-zero override
// values replace the resolved ones, Render is taken from the override only,
// and the result is re-sorted by the effective Order.
func (r *Registry) FieldsForView(s *shape.Shape, view View) []Resolved {
	resolved := r.ResolveFields(s)
	out := make([]Resolved, 0, len(resolved))
	for _, f := range resolved {
		if f.Hidden {
			continue
		}
		vc, ok := f.Views[view]
		if ok && vc.Hidden {
			continue
		}
		f.Render = nil
		if ok {
			f = merge(f, vc)
		}
		out = append(out, f)
	}
	sortByOrder(out)
	return out
}

func merge(f Resolved, vc ViewConfig) Resolved {
	if vc.Label != "" {
		f.Label = vc.Label
	}
	if vc.Placeholder != "" {
		f.Placeholder = vc.Placeholder
	}
	if vc.Description != "" {
		f.Description = vc.Description
	}
	if vc.ReadOnly != nil {
		f.ReadOnly = *vc.ReadOnly
	}
	if vc.Order != nil {
		f.Order = float64(*vc.Order)
	}
	f.Render = vc.Render
	return f
}

func sortByOrder(fs []Resolved) {
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].Order < fs[j].Order })
}

// ResolveFields uses the Default registry.
func ResolveFields(s *shape.Shape) []Resolved { return Default.ResolveFields(s) }

// FieldsForView uses the Default registry.
func FieldsForView(s *shape.Shape, view View) []Resolved { return Default.FieldsForView(s, view) }
