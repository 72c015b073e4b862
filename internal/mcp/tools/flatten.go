package tools

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/recordflat/internal/extract"
	"github.com/usestring/recordflat/pkg/contenttype"
	"github.com/usestring/recordflat/pkg/flatten"
	"github.com/usestring/recordflat/pkg/source"
	"github.com/usestring/recordflat/pkg/types"
)

// FlattenDocumentInput is the input for flatten_document.
type FlattenDocumentInput struct {
	Source     string   `json:"source,omitempty" jsonschema:"File path or http(s) URL of the document. Give source or body, not both."`
	Body       string   `json:"body,omitempty" jsonschema:"Document text to flatten instead of loading a source"`
	Format     string   `json:"format,omitempty" jsonschema:"json, yaml, xml or html (guessed from the source when omitted)"`
	Iterator   string   `json:"iterator" jsonschema:"Path selecting the repeating record nodes: jq or JSONPath for json/yaml, XPath for xml/html"`
	References []string `json:"references,omitempty" jsonschema:"Field paths relative to each record, one output column each"`
	Mode       string   `json:"mode,omitempty" jsonschema:"keep-null or drop-incomplete (default: drop-incomplete for json/yaml, keep-null for xml/html)"`
	Encoding   string   `json:"encoding,omitempty" jsonschema:"Text encoding label of the source, e.g. latin1 or shift_jis (default: utf-8)"`
	MaxRows    int      `json:"max_rows,omitempty" jsonschema:"Rows to return (default: 50, -1 for all). row_count always reports the full count."`
}

// ToolFlattenDocument flattens the records of one hierarchical document into
// a table.
func ToolFlattenDocument(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FlattenDocumentInput) (*sdkmcp.CallToolResult, types.TableResult, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input FlattenDocumentInput) (*sdkmcp.CallToolResult, types.TableResult, error) {
		if err := checkSource(input.Source, input.Body); err != nil {
			return nil, types.TableResult{}, err
		}
		if strings.TrimSpace(input.Iterator) == "" {
			return nil, types.TableResult{}, ErrInvalidInput("iterator is required")
		}

		format, err := parseFormat(input.Format)
		if err != nil {
			return nil, types.TableResult{}, err
		}
		if format.Flat() {
			return nil, types.TableResult{}, ErrInvalidInput(fmt.Sprintf("%s is a flat format, use read_flat_file", format))
		}

		mode, err := flatten.ParseMode(input.Mode)
		if err != nil {
			return nil, types.TableResult{}, ErrInvalidInput(err.Error())
		}

		res, err := d.Service.Run(ctx, extract.Request{
			Locator:    input.Source,
			Body:       []byte(input.Body),
			Format:     format,
			Iterator:   input.Iterator,
			References: input.References,
			Mode:       mode,
			Encoding:   input.Encoding,
		})
		if err != nil {
			return nil, types.TableResult{}, WrapError(err)
		}
		if res.Format.Flat() {
			return nil, types.TableResult{}, ErrInvalidInput(fmt.Sprintf("%s is a flat format, use read_flat_file", res.Format))
		}

		return nil, BuildTableResult(res, d.previewRows(input.MaxRows)), nil
	}
}

// ReadFlatFileInput is the input for read_flat_file.
type ReadFlatFileInput struct {
	Source  string   `json:"source,omitempty" jsonschema:"File path or http(s) URL of the CSV/TSV file. Give source or body, not both."`
	Body    string   `json:"body,omitempty" jsonschema:"Delimited text to read instead of loading a source"`
	Format  string   `json:"format,omitempty" jsonschema:"csv or tsv (default: from the file extension, else csv)"`
	Columns []string `json:"columns,omitempty" jsonschema:"Header names to keep, in output order (default: every column)"`
	MaxRows int      `json:"max_rows,omitempty" jsonschema:"Rows to return (default: 50, -1 for all). row_count always reports the full count."`
}

// ToolReadFlatFile reads a delimited file into a table.
func ToolReadFlatFile(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ReadFlatFileInput) (*sdkmcp.CallToolResult, types.TableResult, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ReadFlatFileInput) (*sdkmcp.CallToolResult, types.TableResult, error) {
		if err := checkSource(input.Source, input.Body); err != nil {
			return nil, types.TableResult{}, err
		}

		format, err := parseFormat(input.Format)
		if err != nil {
			return nil, types.TableResult{}, err
		}
		if format == contenttype.Unknown && input.Source != "" {
			format = contenttype.FromPath(input.Source)
		}
		if format == contenttype.Unknown {
			format = contenttype.CSV
		}
		if !format.Flat() {
			return nil, types.TableResult{}, ErrInvalidInput(fmt.Sprintf("%s is a hierarchical format, use flatten_document", format))
		}

		res, err := d.Service.Run(ctx, extract.Request{
			Locator:    input.Source,
			Body:       []byte(input.Body),
			Format:     format,
			References: input.Columns,
		})
		if err != nil {
			return nil, types.TableResult{}, WrapError(err)
		}

		return nil, BuildTableResult(res, d.previewRows(input.MaxRows)), nil
	}
}

// checkSource requires exactly one of source and body. Stdin is reserved
// for the MCP transport.
func checkSource(src, body string) error {
	switch {
	case src == "" && body == "":
		return ErrInvalidInput("either source or body is required")
	case src != "" && body != "":
		return ErrInvalidInput("give source or body, not both")
	case src == source.Stdin:
		return ErrInvalidInput("stdin is not available over MCP, pass the text as body")
	}
	return nil
}

func parseFormat(label string) (contenttype.Format, error) {
	if strings.TrimSpace(label) == "" {
		return contenttype.Unknown, nil
	}
	f := contenttype.Parse(label)
	if f == contenttype.Unknown {
		return f, ErrInvalidInput(fmt.Sprintf("unknown format %q (want json, yaml, xml, html, csv or tsv)", label))
	}
	return f, nil
}
