// Package linecount counts newline-delimited segments per file and merges
// counts for files that share a basename.
package linecount

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/nemanja-m/linecount/pkg/core"
	"github.com/nemanja-m/linecount/pkg/jobs"
)

const Name = "linecount"

func init() {
	jobs.Register(Name, jobs.Job{
		Description: "counts lines per file, summed across files sharing a basename",
		Map:         Map,
		Reduce:      Reduce,
		Format:      Format,
		Combinable:  true,
	})
}

var recordPattern = regexp.MustCompile(`^"(.+)":\s*(\d+)$`)

// CountSegments returns the number of "\n"-delimited segments in content.
// N newlines always yield N+1 segments, so an empty file counts 1 and a file
// ending in a newline counts one more than its visible lines.
func CountSegments(content string) int {
	return strings.Count(content, "\n") + 1
}

// Basename strips directory components from a filesystem path or an object
// location such as gs://bucket/dir/file.
func Basename(location string) string {
	return path.Base(filepath.ToSlash(location))
}

// Map emits one (basename, segment count) pair for a whole file.
func Map(location, content string) []core.KeyValue {
	return []core.KeyValue{{
		Key:   Basename(location),
		Value: strconv.Itoa(CountSegments(content)),
	}}
}

func Reduce(filename string, counts []string) core.KeyValue {
	total := 0
	for _, count := range counts {
		// Values only ever come from Map or an earlier Reduce, both of which
		// write strconv.Itoa output.
		val, _ := strconv.Atoi(count)
		total += val
	}
	return core.KeyValue{Key: filename, Value: strconv.Itoa(total)}
}

// Format renders a record as `"filename": count`. The filename is written
// verbatim, without escaping.
func Format(kv core.KeyValue) string {
	return `"` + kv.Key + `": ` + kv.Value
}

// Entry is a parsed output record.
type Entry struct {
	Filename string
	Count    int
}

// Parse reads a record written by Format.
func Parse(line string) (Entry, error) {
	match := recordPattern.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return Entry{}, fmt.Errorf("%w: malformed record %q", core.ErrDecode, line)
	}
	count, err := strconv.Atoi(match[2])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: invalid count in %q: %v", core.ErrDecode, line, err)
	}
	return Entry{Filename: match[1], Count: count}, nil
}
