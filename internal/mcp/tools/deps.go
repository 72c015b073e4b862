package tools

import (
	"github.com/usestring/recordflat/internal/config"
	"github.com/usestring/recordflat/internal/extract"
)

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Service *extract.Service
	Config  *config.Config
}

// previewRows returns the row limit for a tool call: the requested one, or
// the configured default. Negative means no limit.
func (d *Deps) previewRows(requested int) int {
	switch {
	case requested < 0:
		return 0
	case requested > 0:
		return requested
	case d.Config != nil && d.Config.PreviewRows > 0:
		return d.Config.PreviewRows
	default:
		return config.DefaultPreviewRows
	}
}
