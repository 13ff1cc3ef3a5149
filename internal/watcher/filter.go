package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

// Filter decides which files under a root are documents to upload.
type Filter struct {
	patterns []string
}

// NewFilter validates the include globs. An empty list uses DefaultInclude.
func NewFilter(include []string) (*Filter, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	patterns := make([]string, 0, len(include))
	for _, p := range include {
		p = strings.ToLower(filepath.ToSlash(strings.TrimSpace(p)))
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, derrors.ConfigError("invalid include pattern "+p, nil).
				WithSuggestion("Use doublestar globs such as **/*.md")
		}
		patterns = append(patterns, p)
	}
	return &Filter{patterns: patterns}, nil
}

// Patterns returns the normalized include globs.
func (f *Filter) Patterns() []string {
	return append([]string(nil), f.patterns...)
}

// Match reports whether relPath, relative to the root, should be uploaded.
// Hidden files and directories, editor swap files and partial downloads never
// match.
func (f *Filter) Match(relPath string) bool {
	rel := filepath.ToSlash(relPath)
	if rel == "" || rel == "." || strings.HasPrefix(rel, "../") {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") || strings.HasPrefix(part, "~") {
			return false
		}
	}
	base := strings.ToLower(filepath.Base(rel))
	for _, suffix := range []string{".swp", ".tmp", ".part", ".crdownload"} {
		if strings.HasSuffix(base, suffix) {
			return false
		}
	}

	lower := strings.ToLower(rel)
	for _, p := range f.patterns {
		if ok, _ := doublestar.Match(p, lower); ok {
			return true
		}
	}
	return false
}

// Walk returns the absolute paths of matching regular files under root,
// sorted. Hidden directories are not descended into.
func (f *Filter) Walk(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeInvalidPath, "cannot resolve "+root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, derrors.New(derrors.ErrCodeFileNotFound, "directory not found: "+root, err)
		}
		return nil, derrors.New(derrors.ErrCodeFilePermission, "cannot read "+root, err)
	}
	if !info.IsDir() {
		return nil, derrors.New(derrors.ErrCodeInvalidPath, root+" is not a directory", nil)
	}

	var out []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != abs && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && f.Match(rel) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeFilePermission, "failed to walk "+root, err)
	}
	sort.Strings(out)
	return out, nil
}
