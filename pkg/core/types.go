package core

import "fmt"

type MapFunc func(string, string) []KeyValue

type ReduceFunc func(string, []string) KeyValue

// FormatFunc renders one output record as a single line, without the
// trailing newline.
type FormatFunc func(KeyValue) string

type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type JobConfig struct {
	Name        string
	NumMappers  int
	NumReducers int

	// Combine pre-aggregates each map task's output with ReduceFunc before
	// it is shuffled. ReduceFunc must be associative and commutative.
	Combine bool

	MapFunc    MapFunc
	ReduceFunc ReduceFunc
	FormatFunc FormatFunc
}

func DefaultFormat(kv KeyValue) string {
	return kv.Key + "\t" + kv.Value
}

func (c JobConfig) Validate() error {
	if c.MapFunc == nil {
		return fmt.Errorf("%w: map function is required", ErrConfiguration)
	}
	if c.ReduceFunc == nil {
		return fmt.Errorf("%w: reduce function is required", ErrConfiguration)
	}
	if c.NumMappers <= 0 {
		return fmt.Errorf("%w: number of mappers must be > 0, got %d", ErrConfiguration, c.NumMappers)
	}
	if c.NumReducers <= 0 {
		return fmt.Errorf("%w: number of reducers must be > 0, got %d", ErrConfiguration, c.NumReducers)
	}
	return nil
}
