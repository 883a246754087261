// Command videopiped runs the videopipe library engine as a long-running
// service: it periodically discovers video files under its configured
// library roots, keeps their catalog entries and thumbnails up to date, and
// sweeps for mosaics/previews that have not yet been generated.
//
// # Application Lifecycle
//
//  1. Memory Configuration: sets GOMEMLIMIT from the environment or a
//     Kubernetes Downward API memory limit.
//  2. Configuration Loading: reads environment variables, resolves and
//     prepares the library, cache, and database directories.
//  3. Catalog Initialization: opens the sqlite-backed catalog.
//  4. Component Initialization: video processor, mosaic/preview engines,
//     smart-folder evaluator, batch coordinator, memory monitor, metrics
//     collector.
//  5. Background Services: a discovery loop on SCAN_INTERVAL, an artifact
//     sweep loop on MOSAIC_INTERVAL, and (if enabled) a metrics HTTP server.
//  6. Graceful Shutdown: on SIGINT/SIGTERM, stops background loops, the
//     metrics server, the metrics collector, and the memory monitor, then
//     closes the catalog.
//
// # Background Services
//
//   - Discovery loop: runs a DiscoverFolder pass over every library root
//     every ScanInterval.
//   - Artifact sweep: regenerates mosaics and previews for videos missing
//     them every MosaicInterval.
//   - Metrics collector: refreshes catalog-wide gauges every minute.
//
// # HTTP Server
//
// When METRICS_ENABLED is true, an HTTP server listens on METRICS_PORT
// exposing:
//
//	/metrics   Prometheus metrics
//	/healthz   liveness check (always 200 once the server is up)
//	/readyz    readiness check (200 once the catalog has opened)
//	/version   build version information as JSON
//
// # Environment Variables
//
// See [videopipe/internal/startup] for the full list of environment
// variables consumed during configuration loading.
package main
