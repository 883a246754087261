package metrics

import (
	"time"

	"videopipe/internal/logging"
)

// StatsProvider is implemented by the catalog to expose periodic gauge data.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds a snapshot of catalog-wide counts.
type Stats struct {
	TotalVideos       int
	TotalFolders      int
	TotalSmartFolders int
	TotalPlaylists    int
	MosaicsGenerated  int
	PreviewsGenerated int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	CatalogVideosTotal.Set(float64(stats.TotalVideos))
	CatalogFoldersTotal.Set(float64(stats.TotalFolders))
	CatalogSmartFoldersTotal.Set(float64(stats.TotalSmartFolders))
	CatalogPlaylistsTotal.Set(float64(stats.TotalPlaylists))
	CatalogMosaicsGeneratedTotal.Set(float64(stats.MosaicsGenerated))
	CatalogPreviewsGeneratedTotal.Set(float64(stats.PreviewsGenerated))

	logging.Debug("metrics collected: videos=%d folders=%d smart_folders=%d mosaics=%d previews=%d",
		stats.TotalVideos, stats.TotalFolders, stats.TotalSmartFolders,
		stats.MosaicsGenerated, stats.PreviewsGenerated)
}
