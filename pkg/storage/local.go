package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nemanja-m/linecount/pkg/core"
)

// LocalStore serves a directory tree. A root containing glob metacharacters
// is treated as a doublestar pattern; otherwise every file under the root
// matches.
type LocalStore struct {
	base    string
	pattern string
}

func NewLocalStore(root string) *LocalStore {
	root = filepath.Clean(root)
	if !hasMeta(root) {
		return &LocalStore{base: root}
	}
	base, _ := doublestar.SplitPattern(filepath.ToSlash(root))
	return &LocalStore{base: filepath.FromSlash(base), pattern: root}
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

func (s *LocalStore) List(_ context.Context) ([]string, error) {
	pattern := s.pattern
	if pattern == "" {
		info, err := os.Stat(s.base)
		if err != nil {
			return nil, fmt.Errorf("%w: input location %s: %w", core.ErrIO, s.base, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: input location %s is not a directory", core.ErrIO, s.base)
		}
		pattern = filepath.Join(s.base, "**", "*")
	}

	files, err := findFiles(pattern)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		rel, err := filepath.Rel(s.base, file)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrIO, err)
		}
		names = append(names, filepath.ToSlash(rel))
	}
	slices.Sort(names)
	return names, nil
}

func (s *LocalStore) Read(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", core.ErrIO, s.Path(name), err)
	}
	return data, nil
}

func (s *LocalStore) Write(_ context.Context, name string, data []byte) error {
	target := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", core.ErrIO, filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %w", core.ErrIO, target, err)
	}
	return nil
}

func (s *LocalStore) Empty(_ context.Context) (bool, error) {
	info, err := os.Stat(s.base)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %w", core.ErrIO, s.base, err)
	}
	if !info.IsDir() {
		return false, nil
	}
	entries, err := os.ReadDir(s.base)
	if err != nil {
		return false, fmt.Errorf("%w: read dir %s: %w", core.ErrIO, s.base, err)
	}
	return len(entries) == 0, nil
}

func (s *LocalStore) Path(name string) string {
	return filepath.Join(s.base, filepath.FromSlash(name))
}

// findFiles expands a doublestar pattern to the regular files it matches.
// Symlinks are followed, so a link to a file counts as that file. A link
// that cannot be resolved is an error rather than a silent skip.
func findFiles(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, fmt.Errorf("%w: glob %q: %w", core.ErrIO, pattern, err)
	}
	files := make([]string, 0, len(matches))
	for _, name := range matches {
		info, err := os.Stat(name)
		if err != nil {
			return nil, fmt.Errorf("%w: stat %s: %w", core.ErrIO, name, err)
		}
		if info.Mode().IsRegular() {
			files = append(files, name)
		}
	}
	return files, nil
}
