package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCatalogMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"DBQueryTotal", DBQueryTotal},
		{"DBQueryDuration", DBQueryDuration},
		{"DBTransactionDuration", DBTransactionDuration},
		{"DBConnectionsOpen", DBConnectionsOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestScannerMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"ScannerOperationsTotal", ScannerOperationsTotal},
		{"ScannerOperationDuration", ScannerOperationDuration},
		{"ScannerFilesFound", ScannerFilesFound},
		{"ScannerPollChecksTotal", ScannerPollChecksTotal},
		{"ScannerPollChangesDetected", ScannerPollChangesDetected},
		{"ScannerPollDuration", ScannerPollDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestMosaicAndPreviewMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"MosaicGenerationsTotal", MosaicGenerationsTotal},
		{"MosaicGenerationDuration", MosaicGenerationDuration},
		{"MosaicTileCount", MosaicTileCount},
		{"MosaicInFlight", MosaicInFlight},
		{"PreviewGenerationsTotal", PreviewGenerationsTotal},
		{"PreviewGenerationDuration", PreviewGenerationDuration},
		{"PreviewSegmentCount", PreviewSegmentCount},
		{"PreviewInFlight", PreviewInFlight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestCoordinatorMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"CoordinatorRunsTotal", CoordinatorRunsTotal},
		{"CoordinatorRunDuration", CoordinatorRunDuration},
		{"CoordinatorVideosProcessed", CoordinatorVideosProcessed},
		{"CoordinatorInFlight", CoordinatorInFlight},
		{"CoordinatorCancellationsTotal", CoordinatorCancellationsTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestFilesystemMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"FilesystemOperationDuration", FilesystemOperationDuration},
		{"FilesystemOperationErrors", FilesystemOperationErrors},
		{"FilesystemRetryAttempts", FilesystemRetryAttempts},
		{"FilesystemRetrySuccess", FilesystemRetrySuccess},
		{"FilesystemRetryFailures", FilesystemRetryFailures},
		{"FilesystemStaleErrors", FilesystemStaleErrors},
		{"FilesystemRetryDuration", FilesystemRetryDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.2.3", "abc1234", "go1.25")

	if got := testutil.ToFloat64(AppInfo.WithLabelValues("1.2.3", "abc1234", "go1.25")); got != 1 {
		t.Errorf("AppInfo gauge = %v, want 1", got)
	}
}

func TestCoordinatorInFlightConcurrentUpdates(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			CoordinatorInFlight.Inc()
			CoordinatorInFlight.Dec()
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(CoordinatorInFlight); got != 0 {
		t.Errorf("CoordinatorInFlight = %v, want 0 after balanced inc/dec", got)
	}
}
