package jobs

import (
	"fmt"
	"slices"

	"github.com/nemanja-m/linecount/pkg/core"
)

type Job struct {
	Description string
	Map         core.MapFunc
	Reduce      core.ReduceFunc
	Format      core.FormatFunc

	// Combinable reports whether Reduce may also run map-side.
	Combinable bool
}

var registry = make(map[string]Job)

func Register(name string, job Job) error {
	if _, exists := registry[name]; exists {
		return fmt.Errorf("job already registered: %s", name)
	}
	if job.Map == nil || job.Reduce == nil {
		return fmt.Errorf("job %s: map and reduce functions are required", name)
	}
	registry[name] = job
	return nil
}

func Get(name string) (Job, error) {
	job, exists := registry[name]
	if !exists {
		return Job{}, fmt.Errorf("job not found: %s", name)
	}
	return job, nil
}

// List returns registered job names in sorted order.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Config builds an engine configuration for the named job.
func Config(name string, numMappers, numReducers int) (core.JobConfig, error) {
	job, err := Get(name)
	if err != nil {
		return core.JobConfig{}, err
	}
	format := job.Format
	if format == nil {
		format = core.DefaultFormat
	}
	return core.JobConfig{
		Name:        name,
		NumMappers:  numMappers,
		NumReducers: numReducers,
		Combine:     job.Combinable,
		MapFunc:     job.Map,
		ReduceFunc:  job.Reduce,
		FormatFunc:  format,
	}, nil
}
