package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/usestring/recordflat/internal/extract"
	"github.com/usestring/recordflat/internal/sink"
	"github.com/usestring/recordflat/pkg/contenttype"
	"github.com/usestring/recordflat/pkg/flatten"
	"github.com/usestring/recordflat/pkg/source"
)

type flattenOptions struct {
	format     string
	iterator   string
	references []string
	mode       string
	encoding   string
	output     string
}

func newFlattenCmd(a *app) *cobra.Command {
	o := &flattenOptions{}

	cmd := &cobra.Command{
		Use:   "flatten [SOURCE]",
		Short: "Flatten the records of one document into a table",
		Long: `Flattens the records selected by --iterator into a table with one
column per --ref. SOURCE is a file path, a file:// or http(s):// URL, or -
for stdin (the default).

Examples:
  recordflat flatten --iterator /library/book --ref @id --ref title library.xml
  curl -s https://example.com/people.json | recordflat flatten -f json -i '$.people[*]' -r name -r 'tags[*]'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFlatten(cmd, args, o)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.format, "format", "f", "", "json, yaml, xml or html (default: from the source)")
	flags.StringVarP(&o.iterator, "iterator", "i", "", "path selecting the record nodes")
	flags.StringArrayVarP(&o.references, "ref", "r", nil, "field path relative to a record; repeat for more columns")
	flags.StringVarP(&o.mode, "mode", "m", "", "keep-null or drop-incomplete (default depends on the format)")
	flags.StringVarP(&o.encoding, "encoding", "e", "", "text encoding of the source, e.g. latin1")
	flags.StringVarP(&o.output, "output", "o", sink.EncodingCSV, "output encoding: csv, json or jsonl")
	_ = cmd.MarkFlagRequired("iterator")
	return cmd
}

func (a *app) runFlatten(cmd *cobra.Command, args []string, o *flattenOptions) error {
	format, err := parseFormat(o.format)
	if err != nil {
		return err
	}
	if format.Flat() {
		return fmt.Errorf("%s is a flat format, use the read command", format)
	}
	mode, err := flatten.ParseMode(o.mode)
	if err != nil {
		return err
	}

	svc, err := a.service(cmd)
	if err != nil {
		return err
	}
	res, err := svc.Run(cmd.Context(), extract.Request{
		Locator:    sourceArg(args),
		Format:     format,
		Iterator:   o.iterator,
		References: o.references,
		Mode:       mode,
		Encoding:   o.encoding,
	})
	if err != nil {
		return err
	}
	return sink.Encode(cmd.OutOrStdout(), res.Table, o.output)
}

type readOptions struct {
	format  string
	columns []string
	output  string
}

func newReadCmd(a *app) *cobra.Command {
	o := &readOptions{}

	cmd := &cobra.Command{
		Use:   "read [SOURCE]",
		Short: "Read a CSV or TSV file, optionally keeping some columns",
		Long: `Reads a delimited file with a header row. Values stay text and short
rows give null cells. SOURCE defaults to stdin.

Examples:
  recordflat read --column sku --column price prices.csv
  recordflat read -f tsv -o jsonl < export.tsv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRead(cmd, args, o)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.format, "format", "f", "", "csv or tsv (default: from the file extension, else csv)")
	flags.StringArrayVarP(&o.columns, "column", "c", nil, "header name to keep; repeat for more (default: all)")
	flags.StringVarP(&o.output, "output", "o", sink.EncodingCSV, "output encoding: csv, json or jsonl")
	return cmd
}

func (a *app) runRead(cmd *cobra.Command, args []string, o *readOptions) error {
	locator := sourceArg(args)
	format, err := parseFormat(o.format)
	if err != nil {
		return err
	}
	if format == contenttype.Unknown {
		format = contenttype.FromPath(locator)
	}
	if format == contenttype.Unknown {
		format = contenttype.CSV
	}
	if !format.Flat() {
		return fmt.Errorf("%s is a hierarchical format, use the flatten command", format)
	}

	svc, err := a.service(cmd)
	if err != nil {
		return err
	}
	res, err := svc.Run(cmd.Context(), extract.Request{
		Locator:    locator,
		Format:     format,
		References: o.columns,
	})
	if err != nil {
		return err
	}
	return sink.Encode(cmd.OutOrStdout(), res.Table, o.output)
}

func sourceArg(args []string) string {
	if len(args) == 0 {
		return source.Stdin
	}
	return args[0]
}

func parseFormat(label string) (contenttype.Format, error) {
	if label == "" {
		return contenttype.Unknown, nil
	}
	f := contenttype.Parse(label)
	if f == contenttype.Unknown {
		return f, fmt.Errorf("unknown format %q (want json, yaml, xml, html, csv or tsv)", label)
	}
	return f, nil
}
