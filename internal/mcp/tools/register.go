package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	AddTool(srv, &sdkmcp.Tool{
		Name:        "flatten_document",
		Description: "Flatten the repeating records of a JSON, YAML, XML or HTML document into a fixed-column table. The iterator selects record nodes; each reference becomes one column. A reference matching several nodes in one record yields one row per combination (cross product); a missing reference yields null (keep-null) or drops the record (drop-incomplete). Returns columns, rows (a preview of max_rows), row_count, per-column null coverage and hints. Use validate_expression first when unsure of the path syntax.",
	}, ToolFlattenDocument(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "read_flat_file",
		Description: "Read a CSV or TSV file with a header row into a table, optionally keeping only some columns. Values stay text; short rows give null cells. Returns the same shape as flatten_document.",
	}, ToolReadFlatFile(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "run_mapping",
		Description: "Run every rule of a mapping (YAML, TOML or JSON) in parallel. Each rule names a source, its format, an iterator and references, and produces one table. Failing rules are reported in failures with an error code and do not stop the others. Call mapping_schema for the file format.",
	}, ToolRunMapping(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "validate_expression",
		Description: "Check that an iterator or reference compiles for a format without loading any document. JSON/YAML take jq or a JSONPath subset ($, .key, ['key'], [*], [n], ..key); XML/HTML take XPath 1.0. Returns {valid, error}.",
	}, ToolValidateExpression(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "mapping_schema",
		Description: "Return the JSON Schema that mapping files are validated against.",
	}, ToolMappingSchema(d))
}
