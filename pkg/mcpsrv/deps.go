package mcpsrv

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/usestring/recordflat/internal/config"
	"github.com/usestring/recordflat/internal/extract"
)

// Deps contains all dependencies available to custom tools.
// This gives custom tools access to the same infrastructure as builtin tools.
type Deps struct {
	Service  *extract.Service
	Config   *config.Config
	Registry *prometheus.Registry
}
