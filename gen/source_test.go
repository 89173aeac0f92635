package gen

import (
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResourceFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("indexed call", func(t *testing.T) {
		path := writeFile(t, dir, "recipes.resource.go", resourceSrc("recipesResource", "recipes"))
		rf, err := ParseResourceFile(path)
		require.NoError(t, err)
		assert.Equal(t, "resources", rf.Package)
		assert.Equal(t, "recipesResource", rf.Var)
		assert.Equal(t, "recipes", rf.Name)
	})

	t.Run("aliased import and inferred type", func(t *testing.T) {
		path := writeFile(t, dir, "notes.resource.go", `package admin

import (
	"log/slog"

	res "github.com/broady/reskit/resource"
)

type Note struct{ ID res.ID }

var logger = slog.Default()

var (
	other = 1
	notes = res.Define("notes", res.Options[Note]{Logger: logger})
)
`)
		rf, err := ParseResourceFile(path)
		require.NoError(t, err)
		assert.Equal(t, "notes", rf.Var)
		assert.Equal(t, "notes", rf.Name)
		assert.Equal(t, "admin", rf.Package)
	})

	errorCases := map[string]string{
		"syntax":     "package resources\n\nvar x = \n",
		"no import":  "package resources\n\nvar x = resource.Define[int](\"x\", nil)\n",
		"no define":  "package resources\n\nimport \"github.com/broady/reskit/resource\"\n\nvar x resource.ID\n",
		"no literal": "package resources\n\nimport \"github.com/broady/reskit/resource\"\n\nconst n = \"x\"\n\nvar x = resource.Define[int](n, resource.Options[int]{})\n",
	}
	for name, src := range errorCases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, "bad.resource.go", src)
			_, err := ParseResourceFile(path)
			var gerr *GenerationError
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, path, gerr.Path)
		})
	}
}

func TestSyncName(t *testing.T) {
	dir := t.TempDir()
	src := resourceSrc("widgetResource", "widget")
	src = strings.Replace(src, `Label: "Items"`, `Label: "widget"`, 1)
	path := writeFile(t, dir, "widgets.resource.go", src)

	changed, err := SyncName(path, DefaultSuffix)
	require.NoError(t, err)
	assert.True(t, changed)

	want := strings.Replace(src, `[Item]("widget"`, `[Item]("widgets"`, 1)
	assert.Equal(t, want, readFile(t, path), "only the name literal changes")
	assert.Contains(t, readFile(t, path), `Label: "widget"`)

	changed, err = SyncName(path, DefaultSuffix)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSyncName_InvalidFilename(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Widgets.resource.go", resourceSrc("w", "widgets"))
	_, err := SyncName(path, DefaultSuffix)
	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Msg, "invalid resource name")
	assert.Equal(t, resourceSrc("w", "widgets"), readFile(t, path))
}

func TestScaffold(t *testing.T) {
	src, err := Scaffold("resources", "berry-flavors")
	require.NoError(t, err)

	_, err = parser.ParseFile(token.NewFileSet(), "", src, 0)
	require.NoError(t, err)

	rf, err := parseSource("berry-flavors.resource.go", src)
	require.NoError(t, err)
	assert.Equal(t, "berryFlavorsResource", rf.Var)
	assert.Equal(t, "berry-flavors", rf.Name)
	assert.Contains(t, string(src), "type BerryFlavorsRecord struct")

	_, err = Scaffold("resources", "Bad_Name")
	assert.Error(t, err)
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(nil))
	assert.True(t, IsBlank([]byte(" \n\t\n")))
	assert.False(t, IsBlank([]byte("package x")))
}

func TestDirPackage(t *testing.T) {
	assert.Equal(t, "resources", dirPackage("/tmp/resources"))
	assert.Equal(t, "myresources", dirPackage("/tmp/my-resources"))
	assert.Equal(t, "resources", dirPackage("/tmp/123"))
}
