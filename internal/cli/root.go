// Package cli implements the recordflat command line.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/usestring/recordflat/internal/config"
	"github.com/usestring/recordflat/internal/extract"
	"github.com/usestring/recordflat/internal/logging"
	"github.com/usestring/recordflat/pkg/mcpsrv"
	"github.com/usestring/recordflat/pkg/source"
)

// selfLogging marks commands that set up logging themselves.
const selfLogging = "self-logging"

// app carries state shared by the commands of one invocation.
type app struct {
	cfg        *config.Config
	logCleanup func() error

	logLevel  string
	logFormat string
	workers   int
	timeout   time.Duration
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "recordflat",
		Short: "Flatten JSON, YAML, XML and HTML records into tables",
		Long: `recordflat turns repeating records in hierarchical documents into
fixed-column tables. An iterator selects the records and each reference
becomes one column. CSV and TSV files are read as tables directly.

Configuration is read from RECORDFLAT_* and LOG_* environment variables;
flags override them.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.logCleanup != nil {
				return a.logCleanup()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json (default from LOG_FORMAT)")
	flags.IntVar(&a.workers, "workers", 0, "rules run in parallel by run (default from RECORDFLAT_WORKERS)")
	flags.DurationVar(&a.timeout, "timeout", 0, "time limit per extraction, e.g. 30s (default from RECORDFLAT_EXTRACT_TIMEOUT_MS)")

	root.AddCommand(
		newFlattenCmd(a),
		newReadCmd(a),
		newRunCmd(a),
		newSchemaCmd(),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.cfg = config.Load()
	if a.logLevel != "" {
		a.cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.LogFormat = a.logFormat
	}
	if a.workers > 0 {
		a.cfg.Workers = a.workers
	}
	if a.timeout > 0 {
		a.cfg.ExtractTimeout = a.timeout
	}

	if cmd.Annotations[selfLogging] != "" {
		return nil
	}
	cleanup, err := logging.Setup(logging.FromConfig(a.cfg))
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	a.logCleanup = cleanup
	return nil
}

// service builds the extraction service, reading stdin from cmd.
func (a *app) service(cmd *cobra.Command) (*extract.Service, error) {
	svc, _, err := mcpsrv.NewService(a.cfg, nil, source.WithStdin(cmd.InOrStdin()))
	return svc, err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "recordflat version %s\n", mcpsrv.Version)
		},
	}
}
