// Package scanner implements the Discovery Scanner (spec §4.7): enumerating
// a library root for video files, filtering and deduplicating results, and
// reconciling them against the catalog.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"videopipe/internal/catalog"
	"videopipe/internal/errs"
	"videopipe/internal/filesystem"
	"videopipe/internal/logging"
	"videopipe/internal/mediatypes"
	"videopipe/internal/metrics"
)

// retryConfig governs the filesystem.StatWithRetry calls this package makes
// while deduplicating hardlinks during a scan. Library roots are frequently
// NFS mounts, where a stat can surface a transient stale-file-handle error;
// SetRetryConfig lets the daemon install a volume-aware config at startup.
var (
	retryMu     sync.RWMutex
	retryConfig = filesystem.DefaultRetryConfig()
)

// SetRetryConfig installs the filesystem retry/volume-labeling configuration
// used for stat calls made during scanning.
func SetRetryConfig(cfg filesystem.RetryConfig) {
	retryMu.Lock()
	defer retryMu.Unlock()
	retryConfig = cfg
}

func currentRetryConfig() filesystem.RetryConfig {
	retryMu.RLock()
	defer retryMu.RUnlock()
	return retryConfig
}

// ProgressFunc receives the current path being examined during enumeration
// (spec §4.7: "Emits progress as 'current path' strings").
type ProgressFunc func(currentPath string)

// Result is the outcome of a single scan: the deduplicated, filtered video
// URLs in directory order, plus the preview-sibling map recorded alongside
// them (spec §4.7).
type Result struct {
	URLs     []string
	Previews map[string]string // original video URL -> its preview sibling's path
}

// Scan enumerates root per spec §4.7: content-type filtered, hidden files
// and package descendants excluded, deduplicated by OS-level file identity
// (falling back to absolute path), with preview-suffixed siblings recorded
// separately rather than returned.
func Scan(ctx context.Context, root string, recursive bool, progress ProgressFunc) (*Result, error) {
	start := time.Now()
	operation := "shallow"
	if recursive {
		operation = "recursive"
	}
	defer func() {
		metrics.ScannerOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	var res *Result
	var err error
	if recursive {
		res, err = scanRecursive(ctx, root, progress)
	} else {
		res, err = scanShallow(ctx, root, progress)
	}

	status := "ok"
	if err != nil {
		status = "failed"
	}
	metrics.ScannerOperationsTotal.WithLabelValues(operation, status).Inc()
	if err == nil {
		metrics.ScannerFilesFound.WithLabelValues(root).Add(float64(len(res.URLs)))
	}
	return res, err
}

func scanShallow(ctx context.Context, root string, progress ProgressFunc) (*Result, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errs.NewVideoFinderError(errs.FinderAccessDenied, root, err)
	}

	res := newResult()
	seen := newIdentitySet()

	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, errs.NewDiscoveryError(errs.Cancelled, root, ctx.Err())
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if progress != nil {
			progress(path)
		}
		considerFile(res, seen, path)
	}

	sortResult(res)
	return res, nil
}

func scanRecursive(ctx context.Context, root string, progress ProgressFunc) (*Result, error) {
	res := newResult()
	seen := newIdentitySet()

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logging.Warn("scanner: error walking %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || isPackageDir(name)) {
				return filepath.SkipDir
			}
			return nil
		}

		if progress != nil {
			progress(path)
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		considerFile(res, seen, path)
		return nil
	})
	if err != nil {
		if err == ctx.Err() {
			return nil, errs.NewDiscoveryError(errs.Cancelled, root, err)
		}
		return nil, errs.NewVideoFinderError(errs.EnumerationFailed, root, err)
	}

	sortResult(res)
	return res, nil
}

// isPackageDir recognizes macOS-style bundle directories that should be
// treated as opaque files rather than traversed, per spec §4.7's
// "package descendants" exclusion.
func isPackageDir(name string) bool {
	switch filepath.Ext(name) {
	case ".bundle", ".app", ".framework", ".plugin":
		return true
	default:
		return false
	}
}

func considerFile(res *Result, seen *identitySet, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if mediatypes.IsPreviewFile(stem) {
		originalName := mediatypes.OriginalStem(stem) + filepath.Ext(path)
		originalPath := filepath.Join(filepath.Dir(path), originalName)
		res.Previews[originalPath] = path
		return
	}

	if !mediatypes.IsVideoFile(ext) {
		return
	}
	if seen.seenBefore(path) {
		return
	}

	res.URLs = append(res.URLs, path)
}

func newResult() *Result {
	return &Result{Previews: make(map[string]string)}
}

func sortResult(res *Result) {
	sort.Strings(res.URLs)
}

// identitySet deduplicates paths by OS-level file identity (os.SameFile),
// falling back to the absolute path when a stat fails (spec §4.7).
type identitySet struct {
	mu    sync.Mutex
	infos []os.FileInfo
	paths map[string]bool
}

func newIdentitySet() *identitySet {
	return &identitySet{paths: make(map[string]bool)}
}

func (s *identitySet) seenBefore(path string) bool {
	info, err := filesystem.StatWithRetry(path, currentRetryConfig())
	if err != nil {
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			abs = path
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.paths[abs] {
			return true
		}
		s.paths[abs] = true
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.infos {
		if os.SameFile(existing, info) {
			return true
		}
	}
	s.infos = append(s.infos, info)
	return false
}

// Reconciliation is the result of comparing catalog state against the
// filesystem (spec §4.7).
type Reconciliation struct {
	Missing  []string         // present on disk, absent from the catalog
	Orphaned []*catalog.Video // present in the catalog under rootURL, absent from disk
}

// Compare reconciles the videos already known to the catalog against a
// freshly scanned root (spec §4.7).
func Compare(catalogVideos []*catalog.Video, rootURL string, scanned *Result) Reconciliation {
	onDisk := make(map[string]bool, len(scanned.URLs))
	for _, u := range scanned.URLs {
		onDisk[u] = true
	}

	known := make(map[string]bool, len(catalogVideos))
	for _, v := range catalogVideos {
		known[v.URL] = true
	}

	var recon Reconciliation
	for _, u := range scanned.URLs {
		if !known[u] {
			recon.Missing = append(recon.Missing, u)
		}
	}
	for _, v := range catalogVideos {
		if !strings.HasPrefix(v.URL, rootURL) {
			continue
		}
		if !onDisk[v.URL] {
			recon.Orphaned = append(recon.Orphaned, v)
		}
	}

	return recon
}
