package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnatoleLucet/fiber/internal/scenario"
)

func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Check scenarios without running them",
		Long: `Parse each scenario, reject unknown fields and build every rendered
tree, without creating a runtime.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	out := newFormatter(cmd.OutOrStdout(), opts.Color)

	failed := 0
	for _, path := range paths {
		s, err := scenario.Load(path)
		if err != nil {
			out.fail("%s: %v", path, err)
			failed++
			continue
		}
		out.ok("%s (%d steps)", s.Name, len(s.Steps))
	}

	if failed > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("validation failed for %d file(s)", failed)}
	}
	return nil
}
