package startup

import (
	"strconv"

	"videopipe/internal/logging"
)

// MemoryConfig mirrors memory.ConfigResult for startup-time logging, kept as
// its own type so this package doesn't need to import internal/memory just
// to log what it already decided.
type MemoryConfig struct {
	Configured     bool
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// LogMemoryConfig logs the outcome of memory.ConfigureFromEnv.
func LogMemoryConfig(mc MemoryConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if !mc.Configured {
		logging.Info("  GOMEMLIMIT not configured (no MEMORY_LIMIT or GOMEMLIMIT env var)")
		return
	}

	switch mc.Source {
	case "GOMEMLIMIT":
		logging.Info("  GOMEMLIMIT: %s (set explicitly)", formatBytesStartup(mc.GoMemLimit))
	case "MEMORY_LIMIT":
		logging.Info("  GOMEMLIMIT: %s (%.1f%% of %s container limit)",
			formatBytesStartup(mc.GoMemLimit), mc.Ratio*100, formatBytesStartup(mc.ContainerLimit))
	default:
		logging.Info("  GOMEMLIMIT: %s", formatBytesStartup(mc.GoMemLimit))
	}
}

// formatBytesStartup formats bytes into a human-readable binary-unit string,
// matching internal/memory's formatBytes but kept local to avoid a two-way
// import between the packages.
func formatBytesStartup(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
