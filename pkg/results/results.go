// Package results reads the part files written by a linecount run and
// renders them for humans.
package results

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/nemanja-m/linecount/pkg/core"
	"github.com/nemanja-m/linecount/pkg/jobs/linecount"
	"github.com/nemanja-m/linecount/pkg/storage"
)

// ResultsDir is the prefix under the output root that holds one directory
// per run, named by timestamp (YYYYMMDD_HHMMSS).
const ResultsDir = "results"

const rule = "=============================================================="

type Entry = linecount.Entry

// Read parses every top-level part file of a run, in part order.
func Read(ctx context.Context, store storage.Store) ([]Entry, error) {
	names, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	var parts []string
	for _, name := range names {
		if !strings.Contains(name, "/") && strings.HasPrefix(name, "part-") {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no part files found under %s", core.ErrIO, store.Path(""))
	}

	var entries []Entry
	for _, part := range parts {
		data, err := store.Read(ctx, part)
		if err != nil {
			return nil, err
		}
		for i, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			entry, err := linecount.Parse(line)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", store.Path(part), i+1, err)
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Latest returns the greatest first-level directory among names, which are
// relative to the results prefix.
func Latest(names []string) (string, error) {
	var latest string
	for _, name := range names {
		dir, _, found := strings.Cut(name, "/")
		if !found || dir == "" {
			continue
		}
		if dir > latest {
			latest = dir
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w: no results found", core.ErrIO)
	}
	return latest, nil
}

// Resolve maps the viewer argument to the location of one run. An argument
// with a scheme is used verbatim, a bare argument is taken relative to root,
// and an empty argument selects the latest run under root/results.
func Resolve(ctx context.Context, arg string, root storage.Location, open func(storage.Location) (storage.Store, error)) (storage.Location, error) {
	arg = strings.TrimSpace(arg)
	if strings.Contains(arg, "://") {
		return storage.ParseLocation(arg)
	}
	if root.Scheme == "" {
		return storage.Location{}, fmt.Errorf("%w: no results root configured; set a project id or pass a full location", core.ErrConfiguration)
	}
	if arg != "" {
		return root.Join(arg), nil
	}

	resultsRoot := root.Join(ResultsDir)
	store, err := open(resultsRoot)
	if err != nil {
		return storage.Location{}, err
	}
	names, err := store.List(ctx)
	if err != nil {
		return storage.Location{}, err
	}
	latest, err := Latest(names)
	if err != nil {
		return storage.Location{}, fmt.Errorf("%w under %s", err, resultsRoot)
	}
	return resultsRoot.Join(latest), nil
}

// SortByCount orders entries by count descending, then filename.
func SortByCount(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Filename, b.Filename)
	})
}

func Render(w io.Writer, location string, entries []Entry) error {
	total := 0
	for _, e := range entries {
		total += e.Count
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s\n%s\n\n", rule, "          Line Counter Job Results", rule)
	fmt.Fprintf(&sb, "Results Path: %s\n\n", location)
	fmt.Fprintf(&sb, "%-50s %10s\n", "Filename", "Lines")
	fmt.Fprintln(&sb, rule)
	for _, e := range entries {
		fmt.Fprintf(&sb, "%-50s %10d lines\n", e.Filename, e.Count)
	}
	fmt.Fprintln(&sb, rule)
	fmt.Fprintf(&sb, "Total: %d files, %d lines\n", len(entries), total)

	_, err := io.WriteString(w, sb.String())
	return err
}
