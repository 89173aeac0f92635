// Package gen keeps the generated code of a resources package in step with
// its resource files.
//
// A resources package holds one <name>.resource.go file per resource, each
// declaring a package-level variable bound to resource.Define. From the
// current set of files, gen writes two outputs:
//
//	remotes_gen.go  <Pascal><Operation> endpoint vars and RegisterRemotes
//	lookup_gen.go   ResourceName constants, IsResourceName and UseResource
//
// Both are total rewrites of the current file set, so running the pipeline
// twice over unchanged inputs yields byte-identical outputs. Empty resource
// files are scaffolded, and the name a file declares is rewritten to match
// its filename.
package gen

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	DefaultSuffix      = ".resource.go"
	DefaultRemotesFile = "remotes_gen.go"
	DefaultLookupFile  = "lookup_gen.go"

	resourceImportPath = "github.com/broady/reskit/resource"
	remoteImportPath   = "github.com/broady/reskit/remote"
)

// GenerationError reports a pipeline failure. Outputs written by earlier
// runs are left in place.
type GenerationError struct {
	Path string // file concerned, if any
	Msg  string
	Err  error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		if e.Msg != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *GenerationError) Unwrap() error { return e.Err }

func errorf(path, format string, args ...any) *GenerationError {
	return &GenerationError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

func wrap(path, msg string, err error) *GenerationError {
	return &GenerationError{Path: path, Msg: msg, Err: err}
}

// Pascal converts a kebab-case resource name to an exported identifier
// prefix: "berry-flavors" becomes "BerryFlavors".
func Pascal(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "-") {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// camel is Pascal with a lower-case first letter.
func camel(name string) string {
	p := []rune(Pascal(name))
	if len(p) == 0 {
		return ""
	}
	p[0] = unicode.ToLower(p[0])
	return string(p)
}
