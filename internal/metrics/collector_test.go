package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	stats Stats
}

func (m *mockStatsProvider) GetStats() Stats {
	return m.stats
}

func TestNewCollector(t *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{
			TotalVideos:       20,
			TotalFolders:      10,
			TotalSmartFolders: 3,
			TotalPlaylists:    5,
			MosaicsGenerated:  8,
			PreviewsGenerated: 4,
		},
	}

	collector := NewCollector(provider, 5*time.Second)

	if collector == nil {
		t.Fatal("NewCollector returned nil")
	}
	if collector.statsProvider != provider {
		t.Error("statsProvider not set correctly")
	}
	if collector.interval != 5*time.Second {
		t.Errorf("interval = %v, want %v", collector.interval, 5*time.Second)
	}
	if collector.stopChan == nil {
		t.Error("stopChan not initialized")
	}
}

func TestNewCollectorWithNilProvider(t *testing.T) {
	collector := NewCollector(nil, 5*time.Second)

	if collector == nil {
		t.Fatal("NewCollector returned nil")
	}
	if collector.statsProvider != nil {
		t.Error("statsProvider should be nil")
	}
}

func TestCollectorStartStop(_ *testing.T) {
	provider := &mockStatsProvider{stats: Stats{TotalVideos: 50}}

	collector := NewCollector(provider, 100*time.Millisecond)

	collector.Start()
	time.Sleep(150 * time.Millisecond)
	collector.Stop()

	// Test should complete without hanging.
}

func TestCollectorMultipleCollectCycles(_ *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{TotalVideos: 100, MosaicsGenerated: 50},
	}

	collector := NewCollector(provider, 50*time.Millisecond)

	collector.Start()
	time.Sleep(200 * time.Millisecond)
	collector.Stop()
}

func TestCollectorWithMinimalInterval(_ *testing.T) {
	provider := &mockStatsProvider{stats: Stats{TotalVideos: 10}}

	collector := NewCollector(provider, 1*time.Millisecond)

	collector.Start()
	time.Sleep(10 * time.Millisecond)
	collector.Stop()
}

func TestCollectWithNilProvider(t *testing.T) {
	collector := NewCollector(nil, 1*time.Second)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("collect() panicked with nil provider: %v", r)
		}
	}()

	collector.collect()
}

func TestCollectUpdatesGauges(t *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{
			TotalVideos:       7,
			TotalFolders:      2,
			TotalSmartFolders: 1,
			TotalPlaylists:    3,
			MosaicsGenerated:  6,
			PreviewsGenerated: 5,
		},
	}

	collector := NewCollector(provider, time.Hour)
	collector.collect()

	if got := testutil.ToFloat64(CatalogVideosTotal); got != 7 {
		t.Errorf("CatalogVideosTotal = %v, want 7", got)
	}
	if got := testutil.ToFloat64(CatalogMosaicsGeneratedTotal); got != 6 {
		t.Errorf("CatalogMosaicsGeneratedTotal = %v, want 6", got)
	}
	if got := testutil.ToFloat64(CatalogPreviewsGeneratedTotal); got != 5 {
		t.Errorf("CatalogPreviewsGeneratedTotal = %v, want 5", got)
	}
}
