package gen

import (
	"bytes"
	"text/template"
	"unicode"

	"golang.org/x/tools/imports"

	"github.com/broady/reskit/resource"
)

// Output is one generated file.
type Output struct {
	Name    string
	Content []byte
}

// Generator renders the aggregator and lookup files of a package.
type Generator struct {
	Package     string
	Suffix      string // resource file suffix, names come from filenames
	RemotesFile string
	LookupFile  string
}

// NewGenerator returns a generator for pkg with the default file names.
func NewGenerator(pkg string) *Generator {
	return &Generator{
		Package:     pkg,
		Suffix:      DefaultSuffix,
		RemotesFile: DefaultRemotesFile,
		LookupFile:  DefaultLookupFile,
	}
}

type entry struct {
	Name  string // resource name
	Ident string // Pascal identifier prefix
	Var   string
}

// Generate renders both outputs from files, which must be in discovery
// order. Resources are named after their files. It fails without output
// when a name is not kebab-case, a name does not yield an identifier, or
// two files yield the same identifier or variable.
func (g *Generator) Generate(files []*ResourceFile) ([]Output, error) {
	entries := make([]entry, 0, len(files))
	byIdent := make(map[string]string, len(files))
	byVar := make(map[string]string, len(files))

	for _, rf := range files {
		name := rf.Name
		if rf.Path != "" {
			name = NameFromFile(rf.Path, g.Suffix)
		}
		if !resource.ValidName(name) {
			return nil, errorf(rf.Path, "invalid resource name %q (want lower-case kebab-case)", name)
		}
		if rf.Package != "" && rf.Package != g.Package {
			return nil, errorf(rf.Path, "package %s, want %s", rf.Package, g.Package)
		}
		ident := Pascal(name)
		if !unicode.IsLetter([]rune(ident)[0]) {
			return nil, errorf(rf.Path, "resource %q does not yield an identifier", name)
		}
		if prev, ok := byIdent[ident]; ok {
			return nil, errorf(rf.Path, "resource %q collides with %s on identifier %s", name, prev, ident)
		}
		if prev, ok := byVar[rf.Var]; ok {
			return nil, errorf(rf.Path, "variable %s already declared by %s", rf.Var, prev)
		}
		byIdent[ident] = rf.Path
		byVar[rf.Var] = rf.Path
		entries = append(entries, entry{Name: name, Ident: ident, Var: rf.Var})
	}

	data := struct {
		Package    string
		Operations []string
		Resources  []entry
	}{g.Package, resource.Operations, entries}

	var out []Output
	for _, t := range []struct {
		name string
		tmpl *template.Template
	}{
		{g.RemotesFile, remotesTemplate},
		{g.LookupFile, lookupTemplate},
	} {
		var buf bytes.Buffer
		if err := t.tmpl.Execute(&buf, data); err != nil {
			return nil, wrap(t.name, "render", err)
		}
		src, err := imports.Process(t.name, buf.Bytes(), formatOnly)
		if err != nil {
			return nil, wrap(t.name, "format", err)
		}
		out = append(out, Output{Name: t.name, Content: src})
	}
	return out, nil
}

// The templates import exactly what they use.
var formatOnly = &imports.Options{Comments: true, TabIndent: true, TabWidth: 8, FormatOnly: true}

const header = "// Code generated by reskit. DO NOT EDIT.\n\n"

var remotesTemplate = template.Must(template.New("remotes").Parse(header + `package {{.Package}}

import "github.com/broady/reskit/remote"
{{if .Resources}}
var (
{{- range $r := .Resources}}
	// {{$r.Name}}
{{- range $.Operations}}
	{{$r.Ident}}{{.}} = {{$r.Var}}.Remotes().{{.}}
{{- end}}
{{end -}}
)
{{end}}
// RegisterRemotes mounts the endpoints of every resource on app, one
// service per resource.
func RegisterRemotes(app *remote.App) {
{{- range .Resources}}
	{{.Var}}.Register(app)
{{- end}}
}
`))

var lookupTemplate = template.Must(template.New("lookup").Parse(header + `package {{.Package}}

import "github.com/broady/reskit/resource"

// ResourceName is the name of a resource of this package.
type ResourceName string
{{if .Resources}}
const (
{{- range .Resources}}
	Resource{{.Ident}} ResourceName = {{printf "%q" .Name}}
{{- end}}
)
{{end}}
// ResourceNames lists every resource in file order.
var ResourceNames = []ResourceName{ {{- range .Resources}}
	Resource{{.Ident}},
{{- end}}
{{- if .Resources}}
{{end}}}

var resourceEntries = map[ResourceName]resource.Entry{ {{- range .Resources}}
	Resource{{.Ident}}: {{.Var}}.Entry(),
{{- end}}
{{- if .Resources}}
{{end}}}

// IsResourceName reports whether s names a resource.
func IsResourceName(s string) bool {
	_, ok := resourceEntries[ResourceName(s)]
	return ok
}

// UseResource returns the metadata and endpoints of the named resource.
func UseResource(name ResourceName) (resource.Entry, bool) {
	e, ok := resourceEntries[name]
	return e, ok
}
`))
