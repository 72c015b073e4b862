package prompts

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all prompts with the MCP server.
func Register(srv *sdkmcp.Server, cfg *Config) {
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "design_mapping",
		Description: "RECOMMENDED: Design a mapping that flattens a JSON, YAML, XML, HTML or CSV source into tables. Walks through picking the record iterator, the references and the mode, checking each step with the tools.",
		Arguments: []*sdkmcp.PromptArgument{
			{
				Name:        "format",
				Description: "Source format: json, yaml, xml, html, csv or tsv (default: work it out from the source)",
				Required:    false,
			},
			{
				Name:        "source",
				Description: "File path or URL of a sample document",
				Required:    false,
			},
		},
	}, HandleDesignMapping(cfg))
}
