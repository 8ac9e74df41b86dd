package local

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nemanja-m/linecount/internal/shared/logging"
	"github.com/nemanja-m/linecount/pkg/core"
	"github.com/nemanja-m/linecount/pkg/storage"
)

type Engine struct {
	config     core.JobConfig
	input      storage.Store
	output     storage.Store
	logger     logging.Logger
	jobID      uuid.UUID
	shuffleDir string
}

type Option func(*Engine)

// WithShuffleDir sets the parent directory for intermediate shuffle data.
// The default is os.TempDir.
func WithShuffleDir(dir string) Option {
	return func(e *Engine) {
		e.shuffleDir = dir
	}
}

func NewEngine(config core.JobConfig, input, output storage.Store, logger logging.Logger, opts ...Option) *Engine {
	if config.FormatFunc == nil {
		config.FormatFunc = core.DefaultFormat
	}
	e := &Engine{
		config: config,
		input:  input,
		output: output,
		logger: logger,
		jobID:  uuid.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) JobID() uuid.UUID {
	return e.jobID
}

func (e *Engine) Run(ctx context.Context) error {
	if err := e.config.Validate(); err != nil {
		return err
	}

	// Refuse to clobber an earlier run before touching the input.
	empty, err := e.output.Empty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return fmt.Errorf("%w: output location %s already exists and is not empty", core.ErrIO, e.output.Path(""))
	}

	inputFiles, err := e.input.List(ctx)
	if err != nil {
		return err
	}
	if len(inputFiles) == 0 {
		return fmt.Errorf("%w: no input files found under %s", core.ErrIO, e.input.Path(""))
	}

	e.logger.Info("Starting job",
		"job_id", e.jobID.String(),
		"job", e.config.Name,
		"files", len(inputFiles),
		"mappers", e.config.NumMappers,
		"reducers", e.config.NumReducers,
	)

	shuffleDir, err := os.MkdirTemp(e.shuffleDir, "linecount-job-"+e.jobID.String()+"-")
	if err != nil {
		return fmt.Errorf("%w: create shuffle dir: %w", core.ErrIO, err)
	}
	defer os.RemoveAll(shuffleDir)

	shuffle, err := OpenShuffle(shuffleDir)
	if err != nil {
		return err
	}
	defer shuffle.Close()

	if err := e.runMapPhase(ctx, shuffle, inputFiles); err != nil {
		return err
	}

	results, err := e.runReducePhase(ctx, shuffle)
	if err != nil {
		return err
	}

	// Reducers own hash partitions, so order is only global after a merge.
	SortRecords(results)

	if err := e.writeResults(ctx, results); err != nil {
		return err
	}

	e.logger.Info("Job completed",
		"job_id", e.jobID.String(),
		"entries", len(results),
		"output", e.output.Path(""),
	)
	return nil
}

func (e *Engine) runMapPhase(ctx context.Context, shuffle *Shuffle, inputFiles []string) error {
	// Deal input files round-robin so each mapper gets a roughly equal share.
	inputPartitions := make(map[int][]string)
	for i, file := range inputFiles {
		mapperID := i % e.config.NumMappers
		inputPartitions[mapperID] = append(inputPartitions[mapperID], file)
	}

	pool := NewPool(ctx, e.config.NumMappers)
	for mapperID := range e.config.NumMappers {
		files := inputPartitions[mapperID]
		if len(files) == 0 {
			continue
		}
		pool.Submit(func(ctx context.Context) error {
			e.logger.Debug("Starting map task", "job_id", e.jobID.String(), "task", mapperID, "files", len(files))
			if err := e.runMapTask(ctx, mapperID, shuffle, files); err != nil {
				e.logger.Error("Map task failed", "job_id", e.jobID.String(), "task", mapperID, "error", err)
				return fmt.Errorf("map task %d: %w", mapperID, err)
			}
			e.logger.Debug("Completed map task", "job_id", e.jobID.String(), "task", mapperID)
			return nil
		})
	}
	return pool.Close()
}

func (e *Engine) runMapTask(ctx context.Context, mapperID int, shuffle *Shuffle, files []string) error {
	var mapped []core.KeyValue
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := e.input.Read(ctx, name)
		if err != nil {
			return err
		}
		if !utf8.Valid(data) {
			return fmt.Errorf("%w: %s is not valid UTF-8 text", core.ErrDecode, e.input.Path(name))
		}

		for _, kv := range e.config.MapFunc(e.input.Path(name), string(data)) {
			// Output is one record per line.
			if strings.Contains(kv.Key, "\n") {
				return fmt.Errorf("%w: key %q from %s contains a newline", core.ErrDecode, kv.Key, e.input.Path(name))
			}
			mapped = append(mapped, kv)
		}
	}

	if e.config.Combine {
		SortRecords(mapped)
		mapped = ReduceSorted(mapped, e.config.ReduceFunc)
	}

	partitioned := make(map[int][]core.KeyValue)
	for _, kv := range mapped {
		partition := core.Partition(kv.Key, e.config.NumReducers)
		partitioned[partition] = append(partitioned[partition], kv)
	}

	for partition, records := range partitioned {
		if err := shuffle.Put(partition, mapperID, records); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runReducePhase(ctx context.Context, shuffle *Shuffle) ([]core.KeyValue, error) {
	reduced := make([][]core.KeyValue, e.config.NumReducers)

	pool := NewPool(ctx, e.config.NumReducers)
	for reducerID := range e.config.NumReducers {
		pool.Submit(func(ctx context.Context) error {
			records, err := shuffle.Get(reducerID)
			if err != nil {
				return fmt.Errorf("reduce task %d: %w", reducerID, err)
			}
			if len(records) == 0 {
				e.logger.Debug("Reduce task has no input", "job_id", e.jobID.String(), "task", reducerID)
				return nil
			}

			SortRecords(records)
			reduced[reducerID] = ReduceSorted(records, e.config.ReduceFunc)
			e.logger.Debug("Completed reduce task", "job_id", e.jobID.String(), "task", reducerID, "keys", len(reduced[reducerID]))
			return nil
		})
	}
	if err := pool.Close(); err != nil {
		return nil, err
	}

	return slices.Concat(reduced...), nil
}

// writeResults stores sorted records as contiguous part files, so reading
// parts in name order yields the global order.
func (e *Engine) writeResults(ctx context.Context, results []core.KeyValue) error {
	for part, records := range SplitRanges(results, e.config.NumReducers) {
		if err := e.output.Write(ctx, PartName(part), EncodeRecords(records, e.config.FormatFunc)); err != nil {
			return err
		}
	}
	return e.output.Write(ctx, SuccessMarker, nil)
}
