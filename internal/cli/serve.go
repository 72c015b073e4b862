package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/usestring/recordflat/internal/mapping"
	"github.com/usestring/recordflat/pkg/mcpsrv"
)

func newServeCmd(a *app) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Runs recordflat as an MCP server speaking JSON-RPC on stdin and stdout.
Logs go to stderr and LOG_FILE, never to stdout.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{selfLogging: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []mcpsrv.Option{mcpsrv.WithConfig(a.cfg)}
			if cmd.Flags().Changed("metrics-addr") {
				opts = append(opts, mcpsrv.WithMetricsAddr(metricsAddr))
			}
			srv, err := mcpsrv.NewServer(opts...)
			if err != nil {
				return err
			}
			defer srv.Close()
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, empty to disable (default from RECORDFLAT_METRICS_ADDR)")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of mapping files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := mapping.SchemaJSON()
			if err != nil {
				return fmt.Errorf("generating schema: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		},
	}
}
