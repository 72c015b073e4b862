package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/recordflat/internal/mapping"
	"github.com/usestring/recordflat/internal/mcp/tools"
)

// registerResources registers the static resources.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         mapping.SchemaURI,
		Name:        "Mapping file schema",
		Description: "JSON Schema of recordflat mapping files. The same document the mapping_schema tool returns.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.5,
		},
	}, handleMappingSchema)
}

func handleMappingSchema(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	if req.Params.URI != mapping.SchemaURI {
		return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
	}
	data, err := mapping.SchemaJSON()
	if err != nil {
		return nil, fmt.Errorf("serializing resource: %w", err)
	}

	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      req.Params.URI,
				MIMEType: tools.MimeJSON,
				Text:     string(data),
			},
		},
	}, nil
}
