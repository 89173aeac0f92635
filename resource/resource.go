// Package resource declares admin resources: a record shape plus a CRUD
// provider, from which typed remote endpoints and field metadata are derived.
//
// Resources are package-level variables, one per <name>.resource.go file:
//
//	var recipesResource = resource.Define[Recipe]("recipes", resource.Options[Recipe]{
//		Label:       "Recipes",
//		NewProvider: rest.New[Recipe]("https://dummyjson.com/recipes"),
//	})
package resource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/broady/reskit/field"
	"github.com/broady/reskit/remote"
	"github.com/broady/reskit/shape"
)

// Operation names, also used as remote method names.
const (
	OpGetMany   = "GetMany"
	OpGetOne    = "GetOne"
	OpCreate    = "Create"
	OpUpdate    = "Update"
	OpDeleteOne = "DeleteOne"
)

// Operations lists the operations in registration order.
var Operations = []string{OpGetMany, OpGetOne, OpCreate, OpUpdate, OpDeleteOne}

var namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidName reports whether name is lower-case kebab-case, e.g. "berry-flavors".
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Options configure a resource.
type Options[T any] struct {
	Label   string // defaults to the name
	Icon    string
	Columns []Column

	// Provider serves the resource. NewProvider, when set, is called with the
	// record shape and takes precedence. With neither, every operation logs a
	// warning and returns an empty result.
	Provider    Provider[T]
	NewProvider ProviderFactory[T]

	Registry *field.Registry // defaults to field.Default
	Logger   *slog.Logger    // defaults to slog.Default()

	Searchable bool
	Exportable bool
	Selectable bool
}

// Metadata describes a resource to user interfaces.
type Metadata struct {
	Name       string       `json:"name"`
	Label      string       `json:"label"`
	Icon       string       `json:"icon,omitempty"`
	Columns    []Column     `json:"columns,omitempty"`
	Searchable bool         `json:"searchable"`
	Exportable bool         `json:"exportable"`
	Selectable bool         `json:"selectable"`
	Shape      *shape.Shape `json:"-"`
}

// Resource is a defined resource for records of type T.
type Resource[T any] struct {
	meta        Metadata
	shape       *shape.Shape
	registry    *field.Registry
	provider    Provider[T]
	hasProvider bool
	logger      *slog.Logger
	remotes     Remotes[T]
}

// Define creates a resource. It registers `admin` struct tag metadata of T
// in the resource's registry and panics if name is not kebab-case or a tag
// is malformed, since both are programming errors caught at load time.
func Define[T any](name string, opts Options[T]) *Resource[T] {
	if !ValidName(name) {
		panic(fmt.Sprintf("resource: invalid name %q (want lower-case kebab-case)", name))
	}

	s := shape.Of[T]()
	reg := opts.Registry
	if reg == nil {
		reg = field.Default
	}
	if err := reg.RegisterTags(s); err != nil {
		panic(fmt.Sprintf("resource %s: %v", name, err))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Resource[T]{
		meta: Metadata{
			Name:       name,
			Label:      opts.Label,
			Icon:       opts.Icon,
			Columns:    opts.Columns,
			Searchable: opts.Searchable,
			Exportable: opts.Exportable,
			Selectable: opts.Selectable,
			Shape:      s,
		},
		shape:    s,
		registry: reg,
		logger:   logger.With(slog.String("resource", name)),
	}
	if r.meta.Label == "" {
		r.meta.Label = name
	}

	switch {
	case opts.NewProvider != nil:
		r.provider = opts.NewProvider(s)
	case opts.Provider != nil:
		r.provider = opts.Provider
	}
	if r.provider != nil {
		r.hasProvider = true
	} else {
		r.provider = &noProvider[T]{name: name, logger: logger}
	}

	r.remotes = r.buildRemotes()
	return r
}

// Name returns the resource name.
func (r *Resource[T]) Name() string { return r.meta.Name }

// Shape returns the record shape.
func (r *Resource[T]) Shape() *shape.Shape { return r.shape }

// Metadata returns the resource metadata.
func (r *Resource[T]) Metadata() Metadata { return r.meta }

// Registry returns the field registry the resource resolves against.
func (r *Resource[T]) Registry() *field.Registry { return r.registry }

// Remotes returns the typed endpoints of the resource.
func (r *Resource[T]) Remotes() Remotes[T] { return r.remotes }

// Fields resolves the record fields for view.
func (r *Resource[T]) Fields(view field.View) []field.Resolved {
	return r.registry.FieldsForView(r.shape, view)
}

// Register mounts the endpoints on app as service <name>.
func (r *Resource[T]) Register(app *remote.App) {
	svc := app.Service(r.meta.Name)
	set := r.remotes.Set()
	for _, op := range Operations {
		svc.Register(op, set.Endpoint(op))
	}
}

// Entry returns a type-erased view of the resource for lookup tables.
func (r *Resource[T]) Entry() Entry {
	return Entry{Metadata: r.meta, Remotes: r.remotes.Set(), res: r}
}

// Entry is a resource with its record type erased.
type Entry struct {
	Metadata Metadata
	Remotes  RemoteSet

	res erased
}

type erased interface {
	Fields(view field.View) []field.Resolved
	Export(ctx context.Context, w io.Writer, format ExportFormat, params GetManyParams) error
	Register(app *remote.App)
}

// Fields resolves the record fields for view.
func (e Entry) Fields(view field.View) []field.Resolved { return e.res.Fields(view) }

// Export writes matching records to w. See Resource.Export.
func (e Entry) Export(ctx context.Context, w io.Writer, format ExportFormat, params GetManyParams) error {
	return e.res.Export(ctx, w, format, params)
}

// Register mounts the endpoints on app.
func (e Entry) Register(app *remote.App) { e.res.Register(app) }
