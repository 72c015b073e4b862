package mcpsrv

import (
	"context"
	"testing"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/recordflat/internal/config"
	"github.com/usestring/recordflat/internal/extract"
	"github.com/usestring/recordflat/pkg/contenttype"
)

type countInput struct {
	Body     string `json:"body"`
	Iterator string `json:"iterator"`
}

type countOutput struct {
	Rows int `json:"rows"`
}

func countTool(d *Deps) func(context.Context, *mcp.CallToolRequest, countInput) (*mcp.CallToolResult, countOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, in countInput) (*mcp.CallToolResult, countOutput, error) {
		res, err := d.Service.Run(ctx, extract.Request{Body: []byte(in.Body), Format: contenttype.JSON, Iterator: in.Iterator})
		if err != nil {
			return nil, countOutput{}, err
		}
		return nil, countOutput{Rows: res.Table.Len()}, nil
	}
}

func TestNewServer_CustomDepsTool(t *testing.T) {
	cfg := config.Load()
	cfg.LogFile = ""
	cfg.MetricsAddr = ""

	srv, err := NewServer(
		WithConfig(cfg),
		WithoutBuiltinTools(),
		WithoutBuiltinPrompts(),
		WithDepsTool(&mcp.Tool{Name: "count_rows", Description: "Count records"}, countTool),
	)
	require.NoError(t, err)
	defer srv.Close()

	require.NotNil(t, srv.Deps().Service)
	require.NotNil(t, srv.Deps().Registry)

	ctx := context.Background()
	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := srv.MCPServer().Connect(ctx, serverT, nil)
	require.NoError(t, err)
	defer ss.Close()

	cs, err := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil).Connect(ctx, clientT, nil)
	require.NoError(t, err)
	defer cs.Close()

	list, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list.Tools, 1)
	assert.Equal(t, "count_rows", list.Tools[0].Name)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "count_rows",
		Arguments: map[string]any{"body": `[{"a":1},{"a":2}]`, "iterator": "$[*]"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, map[string]any{"rows": float64(2)}, res.StructuredContent)
}

func TestNewService(t *testing.T) {
	cfg := config.Load()
	svc, reg, err := NewService(cfg, nil)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), extract.Request{Body: []byte(`{"a": [1]}`), Format: contenttype.JSON, Iterator: "$.a[*]"})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "recordflat_extractions_total")
}
