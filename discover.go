package archlint

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// skipDirs are directory names excluded from discovery alongside hidden
// directories.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// DiscoverFiles returns the repo-relative Python files a run over root
// would consider, after exclusion globs.
func DiscoverFiles(root string, exclude []string) ([]string, error) {
	return discover(root, exclude)
}

// discover walks root and returns repo-relative, slash-separated paths of
// every Python file, sorted, minus excluded globs. Hidden directories,
// node_modules, vendor, and __pycache__ are skipped.
func discover(root string, exclude []string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range exclude {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return nil
			}
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk repository: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// restrict filters discovered paths to an explicit changed-file list or to a
// directory scope. Paths outside the discovered set are ignored.
func restrict(paths []string, changed []string, scope string) []string {
	if len(changed) > 0 {
		known := make(map[string]bool, len(paths))
		for _, p := range paths {
			known[p] = true
		}
		var out []string
		for _, c := range changed {
			c = filepath.ToSlash(c)
			if known[c] {
				out = append(out, c)
			}
		}
		sort.Strings(out)
		return out
	}
	if scope != "" {
		prefix := strings.TrimSuffix(filepath.ToSlash(scope), "/") + "/"
		var out []string
		for _, p := range paths {
			if strings.HasPrefix(p, prefix) {
				out = append(out, p)
			}
		}
		return out
	}
	return paths
}
