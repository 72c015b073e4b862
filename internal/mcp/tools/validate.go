package tools

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/recordflat/pkg/types"
)

// Expression kinds accepted by validate_expression.
const (
	KindIterator  = "iterator"
	KindReference = "reference"
)

// ValidateExpressionInput is the input for validate_expression.
type ValidateExpressionInput struct {
	Format     string `json:"format" jsonschema:"Document format whose path language to use: json, yaml, xml or html"`
	Expression string `json:"expression" jsonschema:"The iterator or reference to compile"`
	Kind       string `json:"kind,omitempty" jsonschema:"iterator or reference (default: iterator)"`
}

// ToolValidateExpression compiles an expression without running it. A bad
// expression is a normal result with valid=false, not a tool error.
func ToolValidateExpression(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ValidateExpressionInput) (*sdkmcp.CallToolResult, types.ExpressionCheck, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ValidateExpressionInput) (*sdkmcp.CallToolResult, types.ExpressionCheck, error) {
		format, err := parseFormat(input.Format)
		if err != nil {
			return nil, types.ExpressionCheck{}, err
		}
		if !format.Hierarchical() {
			return nil, types.ExpressionCheck{}, ErrInvalidInput("format must be json, yaml, xml or html")
		}

		kind := strings.ToLower(input.Kind)
		if kind == "" {
			kind = KindIterator
		}
		if kind != KindIterator && kind != KindReference {
			return nil, types.ExpressionCheck{}, ErrInvalidInput(fmt.Sprintf("kind must be %q or %q", KindIterator, KindReference))
		}

		eng, err := d.Service.Engines().Get(format)
		if err != nil {
			return nil, types.ExpressionCheck{}, WrapError(err)
		}

		if kind == KindIterator {
			err = eng.ValidateIterator(input.Expression)
		} else {
			err = eng.ValidateReference(input.Expression)
		}

		out := types.ExpressionCheck{
			Valid:      err == nil,
			Format:     string(format),
			Kind:       kind,
			Expression: input.Expression,
		}
		if err != nil {
			out.Error = err.Error()
		}
		return nil, out, nil
	}
}
