package local

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/nemanja-m/linecount/pkg/core"
)

// SuccessMarker is written after every part file of a run.
const SuccessMarker = "_SUCCESS"

func PartName(part int) string {
	return fmt.Sprintf("part-%05d", part)
}

func SortRecords(records []core.KeyValue) {
	slices.SortStableFunc(records, func(left, right core.KeyValue) int {
		return cmp.Compare(left.Key, right.Key)
	})
}

// ReduceSorted applies reduce to each run of equal keys in sorted records.
func ReduceSorted(sorted []core.KeyValue, reduce core.ReduceFunc) []core.KeyValue {
	var results []core.KeyValue
	for i := 0; i < len(sorted); {
		key := sorted[i].Key
		values := []string{}

		for i < len(sorted) && sorted[i].Key == key {
			values = append(values, sorted[i].Value)
			i++
		}

		results = append(results, reduce(key, values))
	}
	return results
}

// SplitRanges cuts records into n contiguous ranges whose sizes differ by at
// most one. Trailing ranges may be empty.
func SplitRanges(records []core.KeyValue, n int) [][]core.KeyValue {
	if n <= 0 {
		n = 1
	}
	ranges := make([][]core.KeyValue, n)
	size, extra := len(records)/n, len(records)%n
	start := 0
	for i := range n {
		end := start + size
		if i < extra {
			end++
		}
		ranges[i] = records[start:end]
		start = end
	}
	return ranges
}

func EncodeRecords(records []core.KeyValue, format core.FormatFunc) []byte {
	var buf bytes.Buffer
	for _, record := range records {
		buf.WriteString(format(record))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
