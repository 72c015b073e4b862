package mcpsrv

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/recordflat/internal/mcp/tools"
)

// AddTool registers a tool, first checking that the zero value of Out passes
// the output schema the SDK infers for it. It panics with the offending field
// otherwise. Use it instead of [sdkmcp.AddTool].
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	tools.AddTool(srv, t, h)
}
