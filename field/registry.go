// Package field attaches presentation metadata to shape fields and resolves
// the effective configuration of each field for a given view.
package field

import (
	"sync"

	"github.com/broady/reskit/shape"
)

// View names a rendering context.
type View string

const (
	ViewList   View = "list"
	ViewCreate View = "create"
	ViewEdit   View = "edit"
	ViewDetail View = "detail"
)

// AllViews lists the known views.
var AllViews = []View{ViewList, ViewCreate, ViewEdit, ViewDetail}

// Renderer formats a field value for display in a specific view.
type Renderer func(value any) string

// ViewConfig overrides field metadata for one view. Zero values leave the
// resolved value unchanged.
type ViewConfig struct {
	Hidden      bool
	Label       string
	Placeholder string
	Description string
	ReadOnly    *bool
	Order       *int
	Render      Renderer
}

// Views holds per-view overrides.
type Views map[View]ViewConfig

// Meta is the metadata declared for a field.
type Meta struct {
	Label       string
	Placeholder string
	Description string
	Hidden      bool
	ReadOnly    bool
	Order       *int
	Views       Views
}

// Registry maps field identities to declared metadata.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	meta map[*shape.Field]Meta
}

// Default is the process-wide registry used by resources defined without one.
var Default = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{meta: make(map[*shape.Field]Meta)}
}

// Register stores m for f and returns f unchanged, so it can be used inline.
// Registering the same field again overwrites the previous metadata.
func (r *Registry) Register(f *shape.Field, m Meta) *shape.Field {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meta[f] = m
	return f
}

// Has reports whether metadata was registered for f.
func (r *Registry) Has(f *shape.Field) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.meta[f]
	return ok
}

// Get returns the metadata registered for f.
func (r *Registry) Get(f *shape.Field) (Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meta[f]
	return m, ok
}

// Int returns a pointer to n, for Order fields.
func Int(n int) *int { return &n }

// Bool returns a pointer to b, for ReadOnly overrides.
func Bool(b bool) *bool { return &b }
