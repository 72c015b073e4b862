// Package config provides configuration loading from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults shared with flag definitions.
const (
	DefaultWorkers        = 4
	DefaultExtractTimeout = 30000 // ms
	DefaultDocCacheItems  = 32
	DefaultExprCacheItems = 256
	DefaultMaxSourceBytes = 256 << 20
	DefaultHTTPTimeout    = 15000 // ms
	DefaultPreviewRows    = 50
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultLogMaxSizeMB   = 10
	DefaultLogMaxBackups  = 5
	DefaultLogMaxAgeDays  = 28
	DefaultLogCompress    = true
)

// Config holds all configuration for the CLI and the MCP server.
type Config struct {
	Workers        int           // RECORDFLAT_WORKERS, default 4
	ExtractTimeout time.Duration // RECORDFLAT_EXTRACT_TIMEOUT_MS, default 30000ms
	DocCacheItems  int           // RECORDFLAT_DOC_CACHE_ITEMS, default 32
	ExprCacheItems int           // RECORDFLAT_EXPR_CACHE_ITEMS, default 256
	MaxSourceBytes int64         // RECORDFLAT_MAX_SOURCE_BYTES, default 256 MiB
	HTTPTimeout    time.Duration // RECORDFLAT_HTTP_TIMEOUT_MS, default 15000ms
	PreviewRows    int           // RECORDFLAT_PREVIEW_ROWS, default 50
	MetricsAddr    string        // RECORDFLAT_METRICS_ADDR, default "" (disabled)

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "info"
	LogFormat     string // LOG_FORMAT, "text" or "json"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Workers:        getEnvInt("RECORDFLAT_WORKERS", DefaultWorkers),
		ExtractTimeout: getEnvDurationMs("RECORDFLAT_EXTRACT_TIMEOUT_MS", DefaultExtractTimeout),
		DocCacheItems:  getEnvInt("RECORDFLAT_DOC_CACHE_ITEMS", DefaultDocCacheItems),
		ExprCacheItems: getEnvInt("RECORDFLAT_EXPR_CACHE_ITEMS", DefaultExprCacheItems),
		MaxSourceBytes: int64(getEnvInt("RECORDFLAT_MAX_SOURCE_BYTES", DefaultMaxSourceBytes)),
		HTTPTimeout:    getEnvDurationMs("RECORDFLAT_HTTP_TIMEOUT_MS", DefaultHTTPTimeout),
		PreviewRows:    getEnvInt("RECORDFLAT_PREVIEW_ROWS", DefaultPreviewRows),
		MetricsAddr:    getEnvString("RECORDFLAT_METRICS_ADDR", ""),

		LogLevel:      getEnvString("LOG_LEVEL", DefaultLogLevel),
		LogFormat:     getEnvString("LOG_FORMAT", DefaultLogFormat),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", DefaultLogMaxSizeMB),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", DefaultLogMaxBackups),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", DefaultLogMaxAgeDays),
		LogCompress:   getEnvBool("LOG_COMPRESS", DefaultLogCompress),
	}
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
