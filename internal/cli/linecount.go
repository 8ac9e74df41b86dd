package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nemanja-m/linecount/internal/shared/config"
	"github.com/nemanja-m/linecount/pkg/core"
	"github.com/nemanja-m/linecount/pkg/jobs"
	"github.com/nemanja-m/linecount/pkg/jobs/linecount"
	"github.com/nemanja-m/linecount/pkg/local"
	"github.com/nemanja-m/linecount/pkg/storage"
)

func NewLineCountCommand() *cobra.Command {
	var (
		configPath string
		jobName    string
		mappers    int
		reducers   int
	)

	cmd := &cobra.Command{
		Use:     "linecount <input_path> <output_path>",
		Short:   "Count lines in each file under a location",
		Long:    "Counts newline-delimited segments in every file under input_path, sums counts for files sharing a basename and writes sorted \"filename\": count records to output_path.\n\n" + jobHelp(),
		Example: "  linecount gs://bucket/repo-code gs://bucket/results\n  linecount ./repo ./out",
		Args:    usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("mappers") && mappers <= 0 {
				return fmt.Errorf("%w: --mappers must be > 0", core.ErrUsage)
			}
			if cmd.Flags().Changed("reducers") && reducers <= 0 {
				return fmt.Errorf("%w: --reducers must be > 0", core.ErrUsage)
			}
			if _, err := jobs.Get(jobName); err != nil {
				return fmt.Errorf("%w: %w", core.ErrUsage, err)
			}
			cmd.SilenceUsage = true

			cfg, err := config.LoadLineCount(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("mappers") {
				cfg.Engine.Mappers = mappers
			}
			if cmd.Flags().Changed("reducers") {
				cfg.Engine.Reducers = reducers
			}

			logger := cfg.Logging.NewLogger(cmd.ErrOrStderr())

			inputLoc, err := storage.ParseLocation(args[0])
			if err != nil {
				return err
			}
			outputLoc, err := storage.ParseLocation(args[1])
			if err != nil {
				return err
			}
			input, err := storage.Open(inputLoc, cfg.Storage.S3())
			if err != nil {
				return err
			}
			output, err := storage.Open(outputLoc, cfg.Storage.S3())
			if err != nil {
				return err
			}

			jobConfig, err := jobs.Config(jobName, cfg.Engine.Mappers, cfg.Engine.Reducers)
			if err != nil {
				return err
			}
			jobConfig.Combine = jobConfig.Combine && cfg.Engine.Combine

			var opts []local.Option
			if cfg.Engine.ShuffleDir != "" {
				opts = append(opts, local.WithShuffleDir(cfg.Engine.ShuffleDir))
			}
			engine := local.NewEngine(jobConfig, input, output, logger, opts...)

			logger.Info("Starting line counter job",
				"job_id", engine.JobID().String(),
				"input", inputLoc.String(),
				"output", outputLoc.String(),
			)

			if err := engine.Run(cmd.Context()); err != nil {
				logger.Error("Job failed", "job_id", engine.JobID().String(), "error", err)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Job completed successfully!\nResults saved to: %s\n", outputLoc)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&jobName, "job", linecount.Name, "registered job to run ("+strings.Join(jobs.List(), ", ")+")")
	cmd.Flags().IntVar(&mappers, "mappers", 0, "number of map tasks (overrides config)")
	cmd.Flags().IntVar(&reducers, "reducers", 0, "number of reduce tasks and part files (overrides config)")

	return cmd
}

// jobHelp lists the registered jobs with their descriptions.
func jobHelp() string {
	var sb strings.Builder
	sb.WriteString("Jobs:")
	for _, name := range jobs.List() {
		job, _ := jobs.Get(name)
		fmt.Fprintf(&sb, "\n  %-12s %s", name, job.Description)
	}
	return sb.String()
}
