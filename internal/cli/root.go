// Package cli implements the fiber command line: it runs reconciler
// scenarios and prints the host operations each step applied.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AnatoleLucet/fiber/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Config  string
	Color   string // "auto" | "always" | "never"
}

var validColors = []string{"auto", "always", "never"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fiber",
		Short: "Run reconciler scenarios",
		Long:  "Runs YAML scenarios against the in-memory host and prints every host mutation.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range validColors {
				if c == opts.Color {
					return nil
				}
			}
			return fmt.Errorf("invalid color %q: must be one of %v", opts.Color, validColors)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every step at debug level")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default $HOME/.config/fiber/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Color, "color", "auto", "style output (auto|always|never)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// newLogger logs to w at the configured level, or at debug when verbose.
func newLogger(opts *RootOptions, cfg config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
