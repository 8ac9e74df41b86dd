// Package cli holds the cobra commands behind the linecount and viewresults
// binaries.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nemanja-m/linecount/pkg/core"
)

// Execute runs cmd and returns the process exit code.
func Execute(ctx context.Context, cmd *cobra.Command) int {
	cmd.SilenceErrors = true
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", core.ErrUsage, err)
		}
		return nil
	}
}
