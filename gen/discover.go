package gen

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Discover returns the resource files in dir, sorted by name. Files whose
// name starts with a dot are skipped, as are directories.
func Discover(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wrap(dir, "discover", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) || len(name) == len(suffix) {
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	slices.Sort(files)
	return files, nil
}

// NameFromFile derives the resource name from a resource file path:
// "dir/berry-flavors.resource.go" names "berry-flavors".
func NameFromFile(path, suffix string) string {
	return strings.TrimSuffix(filepath.Base(path), suffix)
}
