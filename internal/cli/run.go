package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnatoleLucet/fiber/internal/config"
	"github.com/AnatoleLucet/fiber/internal/scenario"
)

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run scenarios and print their host traces",
		Long: `Run each scenario on a fresh runtime and in-memory host.

Every step prints the host operations it applied, the resulting markup
and whether work is left. Steps with an expect block stop the scenario
when the expectation does not hold.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runScenarios(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	log := newLogger(opts, cfg, cmd.ErrOrStderr())
	out := newFormatter(cmd.OutOrStdout(), opts.Color)

	failed := 0
	for i, path := range paths {
		if i > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}

		s, err := scenario.Load(path)
		if err != nil {
			out.fail("%s: %v", path, err)
			failed++
			continue
		}

		log.Debug("running scenario", "path", path, "name", s.Name, "steps", len(s.Steps))
		result, err := scenario.Run(s, scenario.WithLogger(log), scenario.WithConfig(cfg))
		if result != nil {
			out.trace(result)
		}
		if err != nil {
			out.fail("%s: %v", s.Name, err)
			failed++
		}
	}

	if failed > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d of %d scenario(s) failed", failed, len(paths))}
	}
	return nil
}
