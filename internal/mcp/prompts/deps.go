// Package prompts contains MCP prompt implementations for recordflat.
package prompts

// Config holds configuration needed by prompts.
type Config struct {
	PreviewRows int
}
