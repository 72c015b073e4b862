package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/usestring/recordflat/internal/extract"
	"github.com/usestring/recordflat/internal/mapping"
	"github.com/usestring/recordflat/internal/sink"
)

type runOptions struct {
	outDir string
	jsonl  string
	sqlite string
}

func newRunCmd(a *app) *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run MAPPING",
		Short: "Run every rule of a mapping file",
		Long: `Runs the rules of a YAML, TOML or JSON mapping file in parallel and
writes one table per rule. Relative sources resolve against the mapping's
directory. Without an output flag, rows go to stdout as JSON lines tagged
with their rule name.

A failing rule does not stop the others; the command exits non-zero when
any rule failed.

Examples:
  recordflat run mapping.yaml --out-dir tables/
  recordflat run mapping.toml --sqlite out.db --jsonl out.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMapping(cmd, args[0], o)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.outDir, "out-dir", "", "write each table to DIR/<rule>.csv")
	flags.StringVar(&o.jsonl, "jsonl", "", "write every row to FILE as JSON lines")
	flags.StringVar(&o.sqlite, "sqlite", "", "write each table into the SQLite database FILE")
	return cmd
}

func (a *app) runMapping(cmd *cobra.Command, path string, o *runOptions) error {
	file, err := mapping.LoadFile(path)
	if err != nil {
		return err
	}

	out, err := o.openSinks(cmd)
	if err != nil {
		return err
	}
	defer out.Close()

	svc, err := a.service(cmd)
	if err != nil {
		return err
	}

	reqs := make([]extract.Request, len(file.Rules))
	for i, rule := range file.Rules {
		reqs[i] = extract.RequestFromRule(rule, file.BaseDir)
	}
	outcomes, err := svc.RunAll(cmd.Context(), reqs)
	if err != nil {
		return err
	}

	failed := 0
	stderr := cmd.ErrOrStderr()
	for _, oc := range outcomes {
		if oc.Err != nil {
			failed++
			fmt.Fprintf(stderr, "%s: failed: %v\n", oc.Request.Name, oc.Err)
			continue
		}
		if err := out.Write(cmd.Context(), oc.Request.Name, oc.Result.Table); err != nil {
			failed++
			fmt.Fprintf(stderr, "%s: writing: %v\n", oc.Request.Name, err)
			continue
		}
		fmt.Fprintf(stderr, "%s: %d rows (%s, %s)\n", oc.Request.Name, oc.Result.Table.Len(), oc.Result.Format, oc.Result.Duration.Round(time.Millisecond))
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("closing outputs: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d rules failed", failed, len(outcomes))
	}
	return nil
}

func (o *runOptions) openSinks(cmd *cobra.Command) (sink.Multi, error) {
	var out sink.Multi
	fail := func(err error) (sink.Multi, error) {
		out.Close()
		return nil, err
	}

	if o.outDir != "" {
		s, err := sink.NewCSVDir(o.outDir)
		if err != nil {
			return fail(err)
		}
		out = append(out, s)
	}
	if o.jsonl != "" {
		s, err := sink.CreateJSONLines(o.jsonl)
		if err != nil {
			return fail(err)
		}
		out = append(out, s)
	}
	if o.sqlite != "" {
		s, err := sink.OpenSQLite(o.sqlite)
		if err != nil {
			return fail(err)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		out = append(out, sink.NewJSONLines(cmd.OutOrStdout()))
	}
	return out, nil
}
