// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// This package centralizes all application configuration and provides consistent
// logging throughout the application lifecycle.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// The following environment variables are supported:
//
//   - LIBRARY_ROOTS: Comma-separated list of library root directories (default: /media)
//   - CACHE_DIR: Path to cache directory for thumbnails and previews (default: /cache)
//   - DATABASE_DIR: Path to database directory (default: /database)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - SCAN_INTERVAL: Full discovery re-scan interval as Go duration (default: 30m)
//   - MOSAIC_INTERVAL: Periodic mosaic/preview backfill interval as Go duration (default: 6h)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - MEMORY_LIMIT: Container memory limit for automatic GOMEMLIMIT configuration
//   - MEMORY_RATIO: Percentage of MEMORY_LIMIT for Go heap (default: 0.85)
//   - GOMEMLIMIT: Direct override for Go's memory limit
//
// # Directory Setup
//
// The package validates and creates required directories:
//   - Database directory: Required, must be writable
//   - Cache directory: Optional, enables artifact caching (thumbnails/previews) if writable
//   - Library roots: Checked but not created (should be mounted)
//
// # Configuration Defaults
//
// [Defaults] holds the factory defaults for MosaicConfiguration,
// PreviewConfiguration, and per-video processing, matching the values [LoadConfig]
// assigns to a fresh [Config].
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// # Lifecycle Logging
//
// The package provides structured logging functions for consistent output:
//   - [LogDatabaseInit]: Catalog initialization timing
//   - [LogFFmpegCheck]: FFmpeg availability
//   - [LogScanStarted] / [LogScanStartedOK]: Coordinator startup
//   - [LogBatchComplete]: Per-run discovery outcome
//   - [LogShutdownInitiated] / [LogShutdownComplete]: Graceful shutdown
//   - [LogMemoryConfig]: Memory limit configuration
package startup
