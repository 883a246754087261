// Package coordinator implements the Batch Coordinator (spec §4.9): it
// orchestrates the scanner, smart-folder evaluator, and per-video processor
// against the catalog, processing videos in batches of 100 behind a bounded
// inflight gate, with cooperative cancellation at batch boundaries.
package coordinator

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"videopipe/internal/catalog"
	"videopipe/internal/errs"
	"videopipe/internal/logging"
	"videopipe/internal/metrics"
	"videopipe/internal/scanner"
	"videopipe/internal/smartfolder"
)

const batchSize = 100

// clearCacheEvery is how many batches pass between transient-cache clears
// (spec §4.9 step 5).
const clearCacheEvery = 5

// VideoProcessor loads metadata (and a cover thumbnail) for a single video,
// deduplicating concurrent calls for the same URL. video.Processor
// satisfies this.
type VideoProcessor interface {
	Process(ctx context.Context, url string) (*catalog.Video, error)
}

// CatalogStore is the subset of the Catalog Adapter contract (spec §6) the
// coordinator needs. *catalog.Catalog satisfies this; tests substitute a
// fake.
type CatalogStore interface {
	BeginBatch(ctx context.Context) (*sql.Tx, error)
	EndBatch(tx *sql.Tx, runErr error) error
	UpsertVideo(tx *sql.Tx, v *catalog.Video) error
	DeleteVideoByURL(ctx context.Context, url string) error
	FetchVideoByURL(ctx context.Context, url string) (*catalog.Video, error)
	FetchVideos(ctx context.Context, predicate catalog.VideoPredicate) ([]*catalog.Video, error)
	UpsertFolder(tx *sql.Tx, item *catalog.LibraryItem) error
	FetchFolder(ctx context.Context, url string, itemType catalog.LibraryItemType) (*catalog.LibraryItem, error)
	Stats(ctx context.Context) (catalog.Stats, error)
}

// Options mirrors discover_folder/discover_smart_folder's options (spec
// §4.9).
type Options struct {
	Recursive            bool
	ConcurrentOperations int
	IsUpdate             bool
	GenerateThumbnails   bool
}

// clamp applies the [1,12] bound on ConcurrentOperations (spec §8 boundary
// behaviors), defaulting to 8 when unset.
func (o Options) clamp() Options {
	switch {
	case o.ConcurrentOperations == 0:
		o.ConcurrentOperations = 8
	case o.ConcurrentOperations > 12:
		o.ConcurrentOperations = 12
	case o.ConcurrentOperations < 1:
		o.ConcurrentOperations = 1
	}
	return o
}

// ProgressEvent is emitted after each completed unit of work (spec §4.9
// step 6).
type ProgressEvent struct {
	TotalFolders           int
	ProcessedFolders       int
	CurrentFolder          string
	TotalVideos            int
	ProcessedVideos        int
	CurrentVideo           string
	SkippedFiles           int
	ErrorFiles             int
	ProcessingRate         float64 // videos/sec
	EstimatedTimeRemaining time.Duration
}

// Listener receives progress events and a cancellation notice during a run.
type Listener struct {
	OnProgress func(ProgressEvent)
	OnCancel   func()
}

// DiscoveryResult summarizes a completed run (spec §4.9 step 7).
type DiscoveryResult struct {
	Added          []string
	Updated        []string
	Removed        []string
	CreatedFolders []string
	Errors         []error
	Statistics     catalog.Stats
}

// Coordinator is the Batch Coordinator. It owns the cancellation flag and
// the inflight semaphore (spec §5); all other state (caches, task maps)
// belongs to the components it orchestrates.
type Coordinator struct {
	cat       CatalogStore
	processor VideoProcessor
	evaluator *smartfolder.Evaluator

	inflight chan struct{}

	cancelled atomic.Bool
}

// New returns a Coordinator. maxInflight is clamped to [2,16] (spec §4.9 /
// §5).
func New(cat CatalogStore, processor VideoProcessor, evaluator *smartfolder.Evaluator, maxInflight int) *Coordinator {
	switch {
	case maxInflight < 2:
		maxInflight = 2
	case maxInflight > 16:
		maxInflight = 16
	}
	return &Coordinator{
		cat:       cat,
		processor: processor,
		evaluator: evaluator,
		inflight:  make(chan struct{}, maxInflight),
	}
}

// Cancel requests that the current (or next) run stop at its next
// suspension point (spec §4.9 / §5).
func (c *Coordinator) Cancel() {
	c.cancelled.Store(true)
}

// DiscoverFolder scans root, reconciles it against the catalog, and
// upserts/removes rows accordingly (spec §4.9 discover_folder).
func (c *Coordinator) DiscoverFolder(ctx context.Context, root string, opts Options, listener Listener) (*DiscoveryResult, error) {
	c.cancelled.Store(false)
	opts = opts.clamp()

	start := time.Now()
	metrics.CoordinatorRunsTotal.WithLabelValues("folder").Inc()
	defer func() { metrics.CoordinatorRunDuration.Observe(time.Since(start).Seconds()) }()

	scanRes, err := scanner.Scan(ctx, root, opts.Recursive, nil)
	if err != nil {
		return nil, err
	}
	totalVideos := len(scanRes.URLs)

	existing, err := c.cat.FetchVideos(ctx, func(v *catalog.Video) bool {
		return strings.HasPrefix(v.URL, root)
	})
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, v := range existing {
		known[v.URL] = true
	}

	result := &DiscoveryResult{}
	kind := make(map[string]string, totalVideos) // url -> "added" | "updated"
	var toProcess []string
	for _, u := range scanRes.URLs {
		if known[u] {
			if !opts.IsUpdate {
				continue
			}
			kind[u] = "updated"
		} else {
			kind[u] = "added"
		}
		toProcess = append(toProcess, u)
	}
	skippedFiles := totalVideos - len(toProcess)

	createdDirs := make(map[string]bool)
	dirs := uniqueParentDirs(toProcess)
	for _, dir := range dirs {
		newly, err := c.ensureFolderChain(ctx, root, dir, createdDirs)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.CreatedFolders = append(result.CreatedFolders, newly...)
	}

	remainingInFolder := make(map[string]int, len(dirs))
	for _, u := range toProcess {
		remainingInFolder[filepath.Dir(u)]++
	}
	totalFolders := len(dirs)

	var (
		reportMu         sync.Mutex
		processedVideos  int
		processedFolders int
		errorFiles       int
	)

	reportProgress := func(currentVideo string) {
		reportMu.Lock()
		defer reportMu.Unlock()
		elapsed := time.Since(start).Seconds()
		var rate float64
		if elapsed > 0 {
			rate = float64(processedVideos) / elapsed
		}
		var eta time.Duration
		if rate > 0 {
			eta = time.Duration(float64(totalVideos-processedVideos) / rate * float64(time.Second))
		}
		if listener.OnProgress != nil {
			listener.OnProgress(ProgressEvent{
				TotalFolders:           totalFolders,
				ProcessedFolders:       processedFolders,
				CurrentFolder:          filepath.Dir(currentVideo),
				TotalVideos:            totalVideos,
				ProcessedVideos:        processedVideos,
				CurrentVideo:           currentVideo,
				SkippedFiles:           skippedFiles,
				ErrorFiles:             errorFiles,
				ProcessingRate:         rate,
				EstimatedTimeRemaining: eta,
			})
		}
	}

	for batchStart := 0; batchStart < len(toProcess); batchStart += batchSize {
		if c.cancelled.Load() {
			metrics.CoordinatorCancellationsTotal.Inc()
			if listener.OnCancel != nil {
				listener.OnCancel()
			}
			break
		}

		batchEnd := batchStart + batchSize
		if batchEnd > len(toProcess) {
			batchEnd = len(toProcess)
		}
		batch := toProcess[batchStart:batchEnd]

		videos, errsByURL := c.processBatch(ctx, batch, opts.ConcurrentOperations)

		tx, txErr := c.cat.BeginBatch(ctx)
		if txErr != nil {
			return nil, txErr
		}
		var commitErr error
		for _, url := range batch {
			reportMu.Lock()
			processedVideos++
			dir := filepath.Dir(url)
			remainingInFolder[dir]--
			if remainingInFolder[dir] == 0 {
				processedFolders++
			}
			reportMu.Unlock()

			if perErr, ok := errsByURL[url]; ok {
				errorFiles++
				result.Errors = append(result.Errors, perErr)
				metrics.CoordinatorVideosProcessed.WithLabelValues("error").Inc()
				reportProgress(url)
				continue
			}

			v := videos[url]
			if err := c.cat.UpsertVideo(tx, v); err != nil {
				commitErr = err
				break
			}
			switch kind[url] {
			case "added":
				result.Added = append(result.Added, url)
				metrics.CoordinatorVideosProcessed.WithLabelValues("added").Inc()
			case "updated":
				result.Updated = append(result.Updated, url)
				metrics.CoordinatorVideosProcessed.WithLabelValues("updated").Inc()
			}
			reportProgress(url)
		}
		if err := c.cat.EndBatch(tx, commitErr); err != nil {
			return nil, fmt.Errorf("coordinator: batch commit failed: %w", err)
		}
	}

	recon := scanner.Compare(existing, root, scanRes)
	for _, orphan := range recon.Orphaned {
		if err := c.cat.DeleteVideoByURL(ctx, orphan.URL); err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Removed = append(result.Removed, orphan.URL)
		metrics.CoordinatorVideosProcessed.WithLabelValues("removed").Inc()
	}

	stats, err := c.cat.Stats(ctx)
	if err != nil {
		result.Errors = append(result.Errors, err)
	}
	result.Statistics = stats

	sort.Strings(result.Added)
	sort.Strings(result.Updated)
	sort.Strings(result.Removed)
	sort.Strings(result.CreatedFolders)

	return result, nil
}

// DiscoverSmartFolder evaluates criteria against the full catalog and
// returns the added/removed diff since the previous evaluation (spec §4.9
// discover_smart_folder, §4.8).
func (c *Coordinator) DiscoverSmartFolder(ctx context.Context, criteria smartfolder.Criteria, listener Listener) (*DiscoveryResult, error) {
	c.cancelled.Store(false)

	start := time.Now()
	metrics.CoordinatorRunsTotal.WithLabelValues("smart_folder").Inc()
	defer func() { metrics.CoordinatorRunDuration.Observe(time.Since(start).Seconds()) }()

	videos, err := c.cat.FetchVideos(ctx, nil)
	if err != nil {
		return nil, err
	}

	added, removed, err := c.evaluator.Refresh(criteria, videos)
	if err != nil {
		return nil, err
	}

	if listener.OnProgress != nil {
		listener.OnProgress(ProgressEvent{
			TotalVideos:     len(videos),
			ProcessedVideos: len(videos),
			ProcessingRate:  float64(len(videos)) / time.Since(start).Seconds(),
		})
	}

	metrics.CoordinatorVideosProcessed.WithLabelValues("added").Add(float64(len(added)))
	metrics.CoordinatorVideosProcessed.WithLabelValues("removed").Add(float64(len(removed)))

	stats, err := c.cat.Stats(ctx)
	if err != nil {
		stats = catalog.Stats{}
	}

	return &DiscoveryResult{Added: added, Removed: removed, Statistics: stats}, nil
}

// CheckThumbnails returns the videos under root whose cover thumbnail is
// not in a completed state (spec §4.9 check_thumbnails).
func (c *Coordinator) CheckThumbnails(ctx context.Context, root string) ([]*catalog.Video, error) {
	return c.cat.FetchVideos(ctx, func(v *catalog.Video) bool {
		return strings.HasPrefix(v.URL, root) && v.ThumbnailStatus != catalog.ThumbnailCompleted
	})
}

// RegenerateThumbnails reprocesses videos to refresh their cover thumbnail,
// preserving each video's catalog id (UpsertVideo's conflict target is the
// URL, not the id) (spec §4.9 regenerate_thumbnails).
func (c *Coordinator) RegenerateThumbnails(ctx context.Context, videos []*catalog.Video, listener Listener) (*DiscoveryResult, error) {
	c.cancelled.Store(false)

	urls := make([]string, len(videos))
	for i, v := range videos {
		urls[i] = v.URL
	}

	result := &DiscoveryResult{}
	var processed int

	for batchStart := 0; batchStart < len(urls); batchStart += batchSize {
		if c.cancelled.Load() {
			metrics.CoordinatorCancellationsTotal.Inc()
			if listener.OnCancel != nil {
				listener.OnCancel()
			}
			break
		}
		batchEnd := batchStart + batchSize
		if batchEnd > len(urls) {
			batchEnd = len(urls)
		}
		batch := urls[batchStart:batchEnd]

		refreshed, errsByURL := c.processBatch(ctx, batch, 8)

		tx, err := c.cat.BeginBatch(ctx)
		if err != nil {
			return nil, err
		}
		var commitErr error
		for _, url := range batch {
			processed++
			if perErr, ok := errsByURL[url]; ok {
				result.Errors = append(result.Errors, perErr)
				continue
			}
			if err := c.cat.UpsertVideo(tx, refreshed[url]); err != nil {
				commitErr = err
				break
			}
			result.Updated = append(result.Updated, url)
			if listener.OnProgress != nil {
				listener.OnProgress(ProgressEvent{
					TotalVideos:     len(urls),
					ProcessedVideos: processed,
					CurrentVideo:    url,
				})
			}
		}
		if err := c.cat.EndBatch(tx, commitErr); err != nil {
			return nil, err
		}
	}

	sort.Strings(result.Updated)
	return result, nil
}

// processBatch runs the Per-Video Processor over urls with up to
// concurrency tasks issued at once, each also gated by the coordinator's
// shared inflight semaphore (spec §4.9 step 5, §5).
func (c *Coordinator) processBatch(ctx context.Context, urls []string, concurrency int) (map[string]*catalog.Video, map[string]error) {
	videos := make(map[string]*catalog.Video, len(urls))
	errsByURL := make(map[string]error)
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, url := range urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				mu.Lock()
				errsByURL[url] = ctx.Err()
				mu.Unlock()
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			if c.cancelled.Load() {
				mu.Lock()
				errsByURL[url] = errs.NewDiscoveryError(errs.Cancelled, url, nil)
				mu.Unlock()
				return
			}

			c.inflight <- struct{}{}
			metrics.CoordinatorInFlight.Inc()
			v, err := c.processor.Process(ctx, url)
			<-c.inflight
			metrics.CoordinatorInFlight.Dec()

			mu.Lock()
			if err != nil {
				errsByURL[url] = err
			} else {
				videos[url] = v
			}
			mu.Unlock()
		}(url)
	}
	wg.Wait()
	return videos, errsByURL
}

// ensureFolderChain creates the LibraryItem chain from root down to
// dirPath, skipping any path already created this run (spec §4.9 step 4:
// "create once per unique path during this run").
func (c *Coordinator) ensureFolderChain(ctx context.Context, root, dirPath string, createdThisRun map[string]bool) ([]string, error) {
	rel, err := filepath.Rel(root, dirPath)
	if err != nil || rel == "." || rel == "" {
		return nil, nil
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")

	var created []string
	currentPath := root
	var parentID string
	for _, seg := range segments {
		currentPath = filepath.Join(currentPath, seg)

		if createdThisRun[currentPath] {
			item, err := c.cat.FetchFolder(ctx, currentPath, catalog.ItemFolder)
			if err == nil {
				parentID = item.ID
			}
			continue
		}
		createdThisRun[currentPath] = true

		item, err := c.cat.FetchFolder(ctx, currentPath, catalog.ItemFolder)
		if err == nil {
			parentID = item.ID
			continue
		}

		item = &catalog.LibraryItem{
			ID:           uuid.NewString(),
			Name:         seg,
			Type:         catalog.ItemFolder,
			URL:          currentPath,
			ParentID:     parentID,
			DateCreated:  time.Now(),
			DateModified: time.Now(),
		}
		tx, txErr := c.cat.BeginBatch(ctx)
		if txErr != nil {
			return created, txErr
		}
		upsertErr := c.cat.UpsertFolder(tx, item)
		if err := c.cat.EndBatch(tx, upsertErr); err != nil {
			return created, err
		}

		logging.Debug("coordinator: created folder %s", currentPath)
		created = append(created, currentPath)
		parentID = item.ID
	}
	return created, nil
}

func uniqueParentDirs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var dirs []string
	for _, u := range urls {
		dir := filepath.Dir(u)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}
