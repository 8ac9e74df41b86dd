package cli

import (
	"github.com/spf13/cobra"

	"github.com/nemanja-m/linecount/internal/shared/config"
	"github.com/nemanja-m/linecount/pkg/results"
	"github.com/nemanja-m/linecount/pkg/storage"
)

func NewViewResultsCommand() *cobra.Command {
	var (
		configPath string
		root       string
	)

	cmd := &cobra.Command{
		Use:   "viewresults [output_path]",
		Short: "Print the results of a linecount run",
		Long: "Prints a linecount run as a table sorted by line count. A full location is read as-is, " +
			"a bare path is resolved under the results root, and with no argument the latest run under <root>/results is shown.",
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.LoadLineCount(configPath)
			if err != nil {
				return err
			}
			if root != "" {
				cfg.Results.Root = root
			}

			var rootLoc storage.Location
			if r := cfg.Results.RootLocation(); r != "" {
				if rootLoc, err = storage.ParseLocation(r); err != nil {
					return err
				}
			}
			open := func(loc storage.Location) (storage.Store, error) {
				return storage.Open(loc, cfg.Storage.S3())
			}

			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			loc, err := results.Resolve(cmd.Context(), arg, rootLoc, open)
			if err != nil {
				return err
			}

			store, err := open(loc)
			if err != nil {
				return err
			}
			entries, err := results.Read(cmd.Context(), store)
			if err != nil {
				return err
			}
			results.SortByCount(entries)
			return results.Render(cmd.OutOrStdout(), loc.String(), entries)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&root, "root", "", "results root location (overrides results.root and the project bucket)")

	return cmd
}
