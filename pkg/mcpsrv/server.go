package mcpsrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/usestring/recordflat/internal/cache"
	"github.com/usestring/recordflat/internal/config"
	"github.com/usestring/recordflat/internal/extract"
	"github.com/usestring/recordflat/internal/logging"
	"github.com/usestring/recordflat/internal/mcp"
	"github.com/usestring/recordflat/internal/mcp/tools"
	"github.com/usestring/recordflat/internal/metrics"
	"github.com/usestring/recordflat/pkg/pathengine"
	"github.com/usestring/recordflat/pkg/source"
)

// Version is the version reported to MCP clients and by the CLI.
const Version = mcp.Version

// Server is the recordflat MCP server.
// It wraps the internal implementation and provides extension points.
type Server struct {
	internal    *mcp.Server
	deps        *Deps
	metricsAddr string
	logCleanup  func() error
}

// NewServer creates an MCP server with the builtin tools, prompts and
// resources. Use functional options to configure logging, add custom tools,
// etc.
func NewServer(opts ...Option) (*Server, error) {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.config == nil {
		cfg.config = config.Load()
	}

	logCfg := logging.FromConfig(cfg.config)
	if cfg.logLevel != "" {
		logCfg.Level = cfg.logLevel
	}
	if cfg.logFile != "" {
		logCfg.FilePath = cfg.logFile
	}
	logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	svc, reg, err := NewService(cfg.config, cfg.httpClient)
	if err != nil {
		logCleanup()
		return nil, err
	}

	deps := &Deps{
		Service:  svc,
		Config:   cfg.config,
		Registry: reg,
	}
	toolDeps := &tools.Deps{
		Service: svc,
		Config:  cfg.config,
	}

	var internalOpts []mcp.ServerOption
	if !cfg.disableBuiltinTools {
		internalOpts = append(internalOpts, mcp.WithBuiltinTools())
	}
	if !cfg.disableBuiltinPrompts {
		internalOpts = append(internalOpts, mcp.WithBuiltinPrompts())
	}
	for _, fn := range cfg.registrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.depsRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(func(srv *sdkmcp.Server) {
			fn(srv, deps)
		}))
	}

	internal, err := mcp.NewServer(toolDeps, internalOpts...)
	if err != nil {
		logCleanup()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	metricsAddr := cfg.config.MetricsAddr
	if cfg.metricsAddr != nil {
		metricsAddr = *cfg.metricsAddr
	}

	return &Server{
		internal:    internal,
		deps:        deps,
		metricsAddr: metricsAddr,
		logCleanup:  logCleanup,
	}, nil
}

// NewService builds the extraction service described by cfg, with a document
// cache and metrics in a fresh registry. httpClient may be nil. loaderOpts
// are applied after the ones derived from cfg.
func NewService(cfg *config.Config, httpClient *http.Client, loaderOpts ...source.Option) (*extract.Service, *prometheus.Registry, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	loader := source.New(append([]source.Option{
		source.WithHTTPClient(httpClient),
		source.WithMaxBytes(cfg.MaxSourceBytes),
		source.WithUserAgent("recordflat/" + mcp.Version),
	}, loaderOpts...)...)

	docs, err := cache.NewDocumentCache(cfg.DocCacheItems)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create document cache: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := extract.New(loader, pathengine.NewRegistry(pathengine.WithCacheSize(cfg.ExprCacheItems)),
		extract.WithDocumentCache(docs),
		extract.WithMetrics(metrics.New(reg)),
		extract.WithTimeout(cfg.ExtractTimeout),
		extract.WithWorkers(cfg.Workers),
	)
	return svc, reg, nil
}

// Run starts the MCP server with stdio transport, plus the metrics listener
// when one is configured. The server runs until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, s.metricsAddr, s.deps.Registry); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.String("addr", s.metricsAddr), slog.String("error", err.Error()))
			}
		}()
	}
	return s.internal.Run(ctx)
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.logCleanup != nil {
		return s.logCleanup()
	}
	return nil
}

// Deps returns the dependencies for building custom tools.
func (s *Server) Deps() *Deps {
	return s.deps
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.internal.MCPServer()
}
