package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndCheck(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	g := &Globals{Dir: filepath.Join(dir, "resources")}

	require.NoError(t, (&NewCmd{Name: "berry-flavors"}).Run(g))

	src, err := os.ReadFile(filepath.Join(dir, "resources", "berry-flavors.resource.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package resources\n")
	assert.Contains(t, string(src), `resource.Define[BerryFlavorsRecord]("berry-flavors"`)
	assert.FileExists(t, filepath.Join(dir, "resources", "remotes_gen.go"))
	assert.FileExists(t, filepath.Join(dir, "resources", "lookup_gen.go"))

	assert.ErrorContains(t, (&NewCmd{Name: "berry-flavors"}).Run(g), "already exists")
	assert.ErrorContains(t, (&NewCmd{Name: "BerryFlavors"}).Run(g), "invalid resource name")

	require.NoError(t, (&CheckCmd{}).Run(g))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resources", "empty.resource.go"), nil, 0644))
	assert.EqualError(t, (&CheckCmd{}).Run(g), "check failed")

	require.NoError(t, (&GenerateCmd{}).Run(g))
	assert.NoError(t, (&CheckCmd{}).Run(g))
}

func TestGlobals_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reskit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dir: from-file\n"), 0644))

	cfg, logger, err := (&Globals{Config: path}).load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Dir)
	assert.NotNil(t, logger)

	cfg, _, err = (&Globals{Config: path, Dir: "flag"}).load()
	require.NoError(t, err)
	assert.Equal(t, "flag", cfg.Dir)
}
