package gen

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/broady/reskit/resource"
)

// ResourceFile is what gen reads from a resource file.
type ResourceFile struct {
	Path    string
	Package string
	Var     string // package-level variable bound to the Define call
	Name    string // name passed to Define

	lit  string // literal source, quotes included
	span [2]int // byte offsets of lit
}

// ParseResourceFile locates the resource.Define call of a resource file:
// the first package-level var initialised by it, and the first string
// literal among its arguments.
func ParseResourceFile(path string) (*ResourceFile, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, wrap(path, "read", err)
	}
	return parseSource(path, src)
}

func parseSource(path string, src []byte) (*ResourceFile, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, wrap(path, "parse", err)
	}

	pkgName := importName(f, resourceImportPath)
	if pkgName == "" {
		return nil, errorf(path, "does not import %s", resourceImportPath)
	}

	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.VAR {
			continue
		}
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			for i, v := range vs.Values {
				call, ok := v.(*ast.CallExpr)
				if !ok || !isDefine(call.Fun, pkgName) || i >= len(vs.Names) {
					continue
				}
				lit := firstStringLit(call.Args)
				if lit == nil {
					return nil, errorf(path, "%s.Define has no string literal name", pkgName)
				}
				name, err := strconv.Unquote(lit.Value)
				if err != nil {
					return nil, wrap(path, "resource name", err)
				}
				return &ResourceFile{
					Path:    path,
					Package: f.Name.Name,
					Var:     vs.Names[i].Name,
					Name:    name,
					lit:     lit.Value,
					span:    [2]int{fset.Position(lit.Pos()).Offset, fset.Position(lit.End()).Offset},
				}, nil
			}
		}
	}
	return nil, errorf(path, "no package-level var initialised by %s.Define", pkgName)
}

// importName returns the local name of an import, or "" if absent.
func importName(f *ast.File, path string) string {
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || p != path {
			continue
		}
		if imp.Name != nil {
			return imp.Name.Name
		}
		return p[strings.LastIndex(p, "/")+1:]
	}
	return ""
}

func isDefine(fun ast.Expr, pkgName string) bool {
	switch x := fun.(type) {
	case *ast.IndexExpr:
		fun = x.X
	case *ast.IndexListExpr:
		fun = x.X
	}
	sel, ok := fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Define" {
		return false
	}
	id, ok := sel.X.(*ast.Ident)
	return ok && id.Name == pkgName
}

func firstStringLit(args []ast.Expr) *ast.BasicLit {
	for _, a := range args {
		if lit, ok := a.(*ast.BasicLit); ok && lit.Kind == token.STRING {
			return lit
		}
	}
	return nil
}

// SyncName rewrites the name a resource file declares to the one its
// filename implies. Only the bytes of the name literal change, and only
// after checking they still hold the literal that was parsed. It reports
// whether the file was rewritten.
func SyncName(path, suffix string) (bool, error) {
	want := NameFromFile(path, suffix)
	if !resource.ValidName(want) {
		return false, errorf(path, "invalid resource name %q (want lower-case kebab-case)", want)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return false, wrap(path, "read", err)
	}
	rf, err := parseSource(path, src)
	if err != nil {
		return false, err
	}
	if rf.Name == want {
		return false, nil
	}

	start, end := rf.span[0], rf.span[1]
	if start < 0 || end > len(src) || string(src[start:end]) != rf.lit {
		return false, errorf(path, "name literal moved while syncing")
	}
	out := make([]byte, 0, len(src)+len(want))
	out = append(out, src[:start]...)
	out = strconv.AppendQuote(out, want)
	out = append(out, src[end:]...)

	info, err := os.Stat(path)
	if err != nil {
		return false, wrap(path, "stat", err)
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return false, wrap(path, "write", err)
	}
	return true, nil
}

// IsBlank reports whether src holds nothing but whitespace.
func IsBlank(src []byte) bool {
	return len(bytes.TrimSpace(src)) == 0
}

var scaffoldTemplate = template.Must(template.New("scaffold").Parse(`package {{.Package}}

import "github.com/broady/reskit/resource"

// {{.Type}} is a {{.Name}} record.
type {{.Type}} struct {
	ID   resource.ID ` + "`" + `json:"id" admin:"readonly"` + "`" + `
	Name string      ` + "`" + `json:"name" validate:"required"` + "`" + `
}

var {{.Var}} = resource.Define[{{.Type}}]({{printf "%q" .Name}}, resource.Options[{{.Type}}]{})
`))

// Scaffold returns the source of a minimal resource file for name: a record
// type and a resource without a provider.
func Scaffold(pkg, name string) ([]byte, error) {
	if !resource.ValidName(name) {
		return nil, errorf("", "invalid resource name %q (want lower-case kebab-case)", name)
	}
	var buf bytes.Buffer
	err := scaffoldTemplate.Execute(&buf, struct {
		Package, Name, Type, Var string
	}{
		Package: pkg,
		Name:    name,
		Type:    Pascal(name) + "Record",
		Var:     camel(name) + "Resource",
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// packageName returns the package clause of the first Go file in dir that
// has one. Blank files and tests are skipped.
func packageName(dir string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, "*.go"))
	fset := token.NewFileSet()
	for _, m := range matches {
		if strings.HasSuffix(m, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, m, nil, parser.PackageClauseOnly)
		if err == nil && f.Name != nil {
			return f.Name.Name
		}
	}
	return ""
}

// dirPackage turns a directory name into a package name.
func dirPackage(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	var b strings.Builder
	for _, r := range strings.ToLower(filepath.Base(abs)) {
		if r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' && b.Len() > 0 {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "resources"
	}
	return b.String()
}
