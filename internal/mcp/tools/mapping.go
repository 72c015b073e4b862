package tools

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/recordflat/internal/extract"
	"github.com/usestring/recordflat/internal/mapping"
	"github.com/usestring/recordflat/pkg/source"
	"github.com/usestring/recordflat/pkg/types"
)

// RunMappingInput is the input for run_mapping.
type RunMappingInput struct {
	Path    string `json:"path,omitempty" jsonschema:"Path of a mapping file (.yaml, .toml or .json). Relative sources resolve against its directory."`
	Mapping string `json:"mapping,omitempty" jsonschema:"Mapping text to run instead of a file"`
	Syntax  string `json:"syntax,omitempty" jsonschema:"Notation of mapping: yaml, toml or json (default: yaml)"`
	MaxRows int    `json:"max_rows,omitempty" jsonschema:"Rows to return per table (default: 50, -1 for all)"`
}

// ToolRunMapping runs every rule of a mapping in parallel.
func ToolRunMapping(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input RunMappingInput) (*sdkmcp.CallToolResult, types.MappingRunResult, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input RunMappingInput) (*sdkmcp.CallToolResult, types.MappingRunResult, error) {
		var file *mapping.File
		var err error
		switch {
		case input.Path == "" && input.Mapping == "":
			return nil, types.MappingRunResult{}, ErrInvalidInput("either path or mapping is required")
		case input.Path != "" && input.Mapping != "":
			return nil, types.MappingRunResult{}, ErrInvalidInput("give path or mapping, not both")
		case input.Path != "":
			file, err = mapping.LoadFile(input.Path)
		default:
			syntax := mapping.Syntax(strings.ToLower(input.Syntax))
			if syntax == "" {
				syntax = mapping.SyntaxYAML
			}
			file, err = mapping.Parse([]byte(input.Mapping), syntax)
		}
		if err != nil {
			return nil, types.MappingRunResult{}, WrapError(err)
		}

		reqs := make([]extract.Request, len(file.Rules))
		for i, rule := range file.Rules {
			if rule.Source == source.Stdin {
				return nil, types.MappingRunResult{}, ErrInvalidInput(fmt.Sprintf("rule %q reads stdin, which is not available over MCP", rule.Name))
			}
			reqs[i] = extract.RequestFromRule(rule, file.BaseDir)
		}

		outcomes, err := d.Service.RunAll(ctx, reqs)
		if err != nil {
			return nil, types.MappingRunResult{}, WrapError(err)
		}

		maxRows := d.previewRows(input.MaxRows)
		output := types.MappingRunResult{
			Tables:   make([]types.TableResult, 0, len(outcomes)),
			Failures: make([]types.RuleFailure, 0),
		}
		for _, o := range outcomes {
			if o.Err != nil {
				output.Failed++
				output.Failures = append(output.Failures, types.RuleFailure{
					Name:  o.Request.Name,
					Code:  Code(o.Err),
					Error: o.Err.Error(),
				})
				continue
			}
			output.Succeeded++
			output.Tables = append(output.Tables, BuildTableResult(o.Result, maxRows))
		}
		return nil, output, nil
	}
}

// MappingSchemaInput is the input for mapping_schema.
type MappingSchemaInput struct{}

// ToolMappingSchema returns the JSON Schema mapping files are validated
// against.
func ToolMappingSchema(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input MappingSchemaInput) (*sdkmcp.CallToolResult, types.MappingSchema, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input MappingSchemaInput) (*sdkmcp.CallToolResult, types.MappingSchema, error) {
		schema, err := types.ToAny(mapping.Schema())
		if err != nil {
			return nil, types.MappingSchema{}, fmt.Errorf("serializing schema: %w", err)
		}
		return nil, types.MappingSchema{
			Resource: types.ResourceRef{
				URI:  mapping.SchemaURI,
				MIME: MimeJSON,
				Hint: "Same schema as a resource.",
			},
			Schema: schema,
		}, nil
	}
}
