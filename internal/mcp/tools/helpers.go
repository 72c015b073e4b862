// Package tools contains the MCP tool implementations for recordflat.
package tools

import (
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/recordflat/internal/extract"
	"github.com/usestring/recordflat/pkg/types"
)

// MIME type constant.
const MimeJSON = "application/json"

// MakeJSONToolResult creates a CallToolResult with JSON text content.
func MakeJSONToolResult(v any) (*sdkmcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{
			&sdkmcp.TextContent{Text: string(b)},
		},
	}, nil
}

// BuildTableResult converts a service result into tool output, keeping at
// most maxRows rows (0 keeps all).
func BuildTableResult(res *extract.Result, maxRows int) types.TableResult {
	t := res.Table
	head, truncated := t.Head(maxRows)

	out := types.TableResult{
		Name:       res.Name,
		RunID:      res.RunID,
		Locator:    res.Locator,
		Format:     string(res.Format),
		Columns:    append(make([]string, 0, len(t.Columns)), t.Columns...),
		Rows:       make([][]*string, len(head.Rows)),
		RowCount:   t.Len(),
		Truncated:  truncated,
		Coverage:   make([]types.ColumnCoverage, 0, len(t.Columns)),
		DurationMs: res.Duration.Milliseconds(),
		Cached:     res.Cached,
	}
	if res.Format.Hierarchical() {
		out.Mode = res.Mode.String()
	}
	for i, r := range head.Rows {
		out.Rows[i] = r
	}

	var allNull []string
	for _, c := range t.Coverage() {
		out.Coverage = append(out.Coverage, types.ColumnCoverage{
			Column:        c.Column,
			NonNull:       c.NonNull,
			Null:          c.Null,
			NullFrequency: c.NullFrequency,
		})
		if t.Len() > 0 && c.NonNull == 0 {
			allNull = append(allNull, c.Column)
		}
	}

	out.Hints = tableHints(res, len(head.Rows), truncated, allNull)
	return out
}

func tableHints(res *extract.Result, shown int, truncated bool, allNull []string) []string {
	var hints []string
	switch {
	case res.Table.Len() == 0 && res.Format.Hierarchical():
		hints = append(hints, "No rows. Check that the iterator matches record nodes; with mode drop-incomplete every record needs a value for every reference.")
	case res.Table.Len() == 0:
		hints = append(hints, "No rows. The source has a header but no data rows.")
	}
	for _, col := range allNull {
		hints = append(hints, fmt.Sprintf("Column %q is null in every row.", col))
	}
	if truncated {
		hints = append(hints, fmt.Sprintf("Showing %d of %d rows. Raise max_rows, or use the CLI to write the full table.", shown, res.Table.Len()))
	}
	return hints
}
