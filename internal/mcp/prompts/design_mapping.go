package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/recordflat/pkg/contenttype"
)

// HandleDesignMapping implements the mapping design workflow.
func HandleDesignMapping(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		var formatArg, src string
		if args := req.Params.Arguments; args != nil {
			formatArg = args["format"]
			src = args["source"]
		}
		format := contenttype.Parse(formatArg)
		if format == contenttype.Unknown && src != "" {
			format = contenttype.FromPath(src)
		}

		var sb strings.Builder

		sb.WriteString("# Design a recordflat Mapping\n\n")
		sb.WriteString("You are turning a hierarchical or delimited document into flat tables. ")
		sb.WriteString("Every table comes from one rule: an iterator picks the repeating records, and each reference becomes one column.\n\n")

		sb.WriteString("## Target\n\n")
		if src != "" {
			fmt.Fprintf(&sb, "- Source: `%s`\n", src)
		}
		if format != contenttype.Unknown {
			fmt.Fprintf(&sb, "- Format: %s\n", format)
		} else {
			sb.WriteString("- Format: not given. Guess from the extension or content, and set `source_type` in the rule when unsure.\n")
		}
		sb.WriteString("\n")

		sb.WriteString("## Workflow\n\n")
		if format.Flat() {
			sb.WriteString("1. Call `read_flat_file` with the source and no columns to see the header.\n")
			sb.WriteString("2. Pick the columns to keep, in the order you want them.\n")
			sb.WriteString("3. Write the rule with `references` listing those columns and no iterator.\n")
		} else {
			sb.WriteString("1. Look at a sample of the source and find the node that repeats once per record.\n")
			sb.WriteString("2. Check the iterator with `validate_expression` (kind `iterator`).\n")
			sb.WriteString("3. List references relative to a record. Check each with `validate_expression` (kind `reference`).\n")
			fmt.Fprintf(&sb, "4. Run `flatten_document` and read the preview (%d rows by default), `coverage` and `hints`.\n", previewRows(cfg))
			sb.WriteString("5. Adjust until row_count and null counts match what the source holds.\n")
		}
		sb.WriteString("6. Put the rules in a mapping file and try it with `run_mapping`. `mapping_schema` has the exact file format.\n\n")

		sb.WriteString("## Path Syntax\n\n")
		switch format {
		case contenttype.JSON, contenttype.YAML:
			writeJSONSyntax(&sb)
		case contenttype.XML, contenttype.HTML:
			writeXPathSyntax(&sb)
		case contenttype.CSV, contenttype.TSV:
			sb.WriteString("Columns are named by their header text, matched exactly. Values stay text; short rows give nulls.\n")
		default:
			writeJSONSyntax(&sb)
			writeXPathSyntax(&sb)
		}
		sb.WriteString("\n")

		sb.WriteString("## Rows and Modes\n\n")
		sb.WriteString("- A reference matching several nodes in one record produces one row per combination with the other multi-valued references. Two list-valued references multiply.\n")
		sb.WriteString("- `keep-null` keeps a record whose reference matched nothing, with a null cell. Default for xml and html.\n")
		sb.WriteString("- `drop-incomplete` drops such records. Default for json and yaml.\n")
		sb.WriteString("- Columns follow the order of `references`; rows follow document order.\n\n")

		sb.WriteString("## Example Rule\n\n")
		sb.WriteString("```yaml\nrules:\n")
		switch format {
		case contenttype.JSON, contenttype.YAML:
			sb.WriteString("  - name: people\n    source: people.json\n    iterator: $.people[*]\n    references: [name, \"address.city\", \"tags[*]\"]\n    mode: keep-null\n")
		case contenttype.CSV, contenttype.TSV:
			sb.WriteString("  - name: prices\n    source: prices.csv\n    references: [sku, price]\n")
		default:
			sb.WriteString("  - name: books\n    source: library.xml\n    iterator: /library/book\n    references: [\"@id\", title, author]\n")
		}
		sb.WriteString("```\n")

		return &sdkmcp.GetPromptResult{
			Description: "Guide for designing a recordflat mapping",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}

func writeJSONSyntax(sb *strings.Builder) {
	sb.WriteString("JSON and YAML take jq (`.people[]`, `.address.city`) or JSONPath: ")
	sb.WriteString("`$`, `.key`, `['key']`, `[*]`, `[n]`, `..key`. A reference is relative to the record, so `name` reads the record's name field. ")
	sb.WriteString("Prefix `jq:` to force jq. Objects and arrays come back as compact JSON text.\n")
}

func writeXPathSyntax(sb *strings.Builder) {
	sb.WriteString("XML and HTML take XPath 1.0. References are relative to the record node: `title`, `@id`, `author/name`, `../@lang`. ")
	sb.WriteString("An element's value is its full text content; functions such as `count(item)` give a single value.\n")
}

func previewRows(cfg *Config) int {
	if cfg != nil && cfg.PreviewRows > 0 {
		return cfg.PreviewRows
	}
	return 50
}
