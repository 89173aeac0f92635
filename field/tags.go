package field

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/broady/reskit/shape"
)

// TagName is the struct tag read by RegisterTags.
const TagName = "admin"

// RegisterTags registers metadata declared in `admin` struct tags for every
// field of s that carries one. Entries are separated by ';':
//
//	Title string `json:"title" admin:"label=Recipe title;order=1;list.label=Title"`
//	ID    string `json:"id" admin:"readonly;create.hidden"`
//
// Keys are label, placeholder, description, order, hidden and readonly,
// optionally prefixed with a view name. Bare flags mean true.
func (r *Registry) RegisterTags(s *shape.Shape) error {
	for _, f := range s.Fields() {
		tag, ok := f.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		m, err := ParseTag(tag)
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", s.Name(), f.GoName, err)
		}
		r.Register(f, m)
	}
	return nil
}

// ParseTag parses the contents of an `admin` struct tag.
func ParseTag(tag string) (Meta, error) {
	var m Meta
	for _, entry := range strings.Split(tag, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, value, hasValue := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)

		var view View
		if v, k, ok := strings.Cut(key, "."); ok {
			view, key = View(v), k
			if !knownView(view) {
				return Meta{}, fmt.Errorf("unknown view %q", v)
			}
		}

		if view == "" {
			if err := applyGlobal(&m, key, value, hasValue); err != nil {
				return Meta{}, err
			}
			continue
		}
		if m.Views == nil {
			m.Views = make(Views)
		}
		vc := m.Views[view]
		if err := applyView(&vc, key, value, hasValue); err != nil {
			return Meta{}, fmt.Errorf("%s: %w", view, err)
		}
		m.Views[view] = vc
	}
	return m, nil
}

func applyGlobal(m *Meta, key, value string, hasValue bool) error {
	switch key {
	case "label":
		m.Label = value
	case "placeholder":
		m.Placeholder = value
	case "description":
		m.Description = value
	case "hidden":
		b, err := flag(value, hasValue)
		m.Hidden = b
		return err
	case "readonly":
		b, err := flag(value, hasValue)
		m.ReadOnly = b
		return err
	case "order":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("order: %w", err)
		}
		m.Order = &n
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

func applyView(vc *ViewConfig, key, value string, hasValue bool) error {
	switch key {
	case "label":
		vc.Label = value
	case "placeholder":
		vc.Placeholder = value
	case "description":
		vc.Description = value
	case "hidden":
		b, err := flag(value, hasValue)
		vc.Hidden = b
		return err
	case "readonly":
		b, err := flag(value, hasValue)
		vc.ReadOnly = &b
		return err
	case "order":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("order: %w", err)
		}
		vc.Order = &n
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

func flag(value string, hasValue bool) (bool, error) {
	if !hasValue {
		return true, nil
	}
	return strconv.ParseBool(strings.TrimSpace(value))
}

func knownView(v View) bool {
	for _, known := range AllViews {
		if v == known {
			return true
		}
	}
	return false
}
