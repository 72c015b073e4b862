// Package mcpsrv provides an embeddable MCP server that flattens documents
// into tables.
//
// # Basic Usage
//
//	server, err := mcpsrv.NewServer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//	server.Run(ctx)
//
// Configuration comes from the environment (see internal/config) unless
// WithConfig is given.
//
// # Extension
//
// Custom tools can use the same extraction service as the builtin ones:
//
//	mcpsrv.WithDepsTool(
//	    &mcp.Tool{Name: "count_rows", Description: "Count the records of a document"},
//	    func(d *mcpsrv.Deps) func(ctx context.Context, req *mcp.CallToolRequest, in CountInput) (*mcp.CallToolResult, CountOutput, error) {
//	        return func(ctx context.Context, req *mcp.CallToolRequest, in CountInput) (*mcp.CallToolResult, CountOutput, error) {
//	            res, err := d.Service.Run(ctx, extract.Request{Locator: in.Source, Iterator: in.Iterator})
//	            if err != nil {
//	                return nil, CountOutput{}, err
//	            }
//	            return nil, CountOutput{Rows: res.Table.Len()}, nil
//	        }
//	    },
//	)
package mcpsrv
