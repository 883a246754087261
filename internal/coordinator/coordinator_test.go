package coordinator

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"videopipe/internal/catalog"
	"videopipe/internal/smartfolder"
)

type fakeCatalog struct {
	mu      sync.Mutex
	videos  map[string]*catalog.Video
	folders map[string]*catalog.LibraryItem
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{videos: map[string]*catalog.Video{}, folders: map[string]*catalog.LibraryItem{}}
}

func (f *fakeCatalog) BeginBatch(ctx context.Context) (*sql.Tx, error) { return nil, nil }
func (f *fakeCatalog) EndBatch(tx *sql.Tx, runErr error) error         { return runErr }

func (f *fakeCatalog) UpsertVideo(tx *sql.Tx, v *catalog.Video) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.videos[v.URL]; ok {
		v.ID = existing.ID
	}
	cp := *v
	f.videos[v.URL] = &cp
	return nil
}

func (f *fakeCatalog) DeleteVideoByURL(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.videos, url)
	return nil
}

func (f *fakeCatalog) FetchVideoByURL(ctx context.Context, url string) (*catalog.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[url]
	if !ok {
		return nil, fmt.Errorf("not found: %s", url)
	}
	return v, nil
}

func (f *fakeCatalog) FetchVideos(ctx context.Context, predicate catalog.VideoPredicate) ([]*catalog.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*catalog.Video
	for _, v := range f.videos {
		if predicate == nil || predicate(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

func (f *fakeCatalog) UpsertFolder(tx *sql.Tx, item *catalog.LibraryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders[item.URL] = item
	return nil
}

func (f *fakeCatalog) FetchFolder(ctx context.Context, url string, itemType catalog.LibraryItemType) (*catalog.LibraryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.folders[url]
	if !ok {
		return nil, fmt.Errorf("not found: %s", url)
	}
	return item, nil
}

func (f *fakeCatalog) Stats(ctx context.Context) (catalog.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return catalog.Stats{TotalVideos: len(f.videos), TotalFolders: len(f.folders)}, nil
}

type fakeProcessor struct {
	mu     sync.Mutex
	calls  int
	fail   map[string]bool
	onCall func(url string, calls int)
}

func (f *fakeProcessor) Process(ctx context.Context, url string) (*catalog.Video, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	shouldFail := f.fail[url]
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall(url, n)
	}
	if shouldFail {
		return nil, fmt.Errorf("processing failed: %s", url)
	}
	return &catalog.Video{
		ID:              url,
		URL:             url,
		Title:           filepath.Base(url),
		DateAdded:       time.Now(),
		ThumbnailStatus: catalog.ThumbnailCompleted,
	}, nil
}

func writeTestFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestOptions_Clamp(t *testing.T) {
	cases := []struct {
		in, want int
	}{{0, 8}, {1, 1}, {12, 12}, {13, 12}, {-5, 1}}
	for _, c := range cases {
		got := Options{ConcurrentOperations: c.in}.clamp().ConcurrentOperations
		if got != c.want {
			t.Errorf("clamp(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestNew_ClampsMaxInflight(t *testing.T) {
	if cap(New(newFakeCatalog(), &fakeProcessor{}, smartfolder.New(), 1).inflight) != 2 {
		t.Error("expected maxInflight clamped up to 2")
	}
	if cap(New(newFakeCatalog(), &fakeProcessor{}, smartfolder.New(), 100).inflight) != 16 {
		t.Error("expected maxInflight clamped down to 16")
	}
}

func TestDiscoverFolder_SmallLibrary(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "movie.mp4"))
	writeTestFile(t, filepath.Join(dir, "movie-preview.mp4"))
	writeTestFile(t, filepath.Join(dir, "other.mov"))

	cat := newFakeCatalog()
	proc := &fakeProcessor{}
	c := New(cat, proc, smartfolder.New(), 8)

	result, err := c.DiscoverFolder(context.Background(), dir, Options{}, Listener{})
	if err != nil {
		t.Fatalf("DiscoverFolder: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Errorf("errors = %v, want none", result.Errors)
	}
	if len(result.Added) != 2 {
		t.Fatalf("added = %v, want 2 originals (preview sibling excluded)", result.Added)
	}
	if len(cat.videos) != 2 {
		t.Errorf("catalog has %d videos, want 2", len(cat.videos))
	}
}

func TestDiscoverFolder_IdempotentSecondRun(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.mp4"))

	cat := newFakeCatalog()
	c := New(cat, &fakeProcessor{}, smartfolder.New(), 8)

	if _, err := c.DiscoverFolder(context.Background(), dir, Options{}, Listener{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := c.DiscoverFolder(context.Background(), dir, Options{}, Listener{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.Added) != 0 {
		t.Errorf("second run added = %v, want none (no filesystem changes)", second.Added)
	}
}

func TestDiscoverFolder_IsUpdateReprocessesKnownURLs(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.mp4"))

	cat := newFakeCatalog()
	c := New(cat, &fakeProcessor{}, smartfolder.New(), 8)

	if _, err := c.DiscoverFolder(context.Background(), dir, Options{}, Listener{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := c.DiscoverFolder(context.Background(), dir, Options{IsUpdate: true}, Listener{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.Updated) != 1 {
		t.Errorf("second run (is_update) updated = %v, want 1", second.Updated)
	}
}

func TestDiscoverFolder_CreatesFolderChainOnce(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a", "b", "movie.mp4"))

	cat := newFakeCatalog()
	c := New(cat, &fakeProcessor{}, smartfolder.New(), 8)

	result, err := c.DiscoverFolder(context.Background(), dir, Options{Recursive: true}, Listener{})
	if err != nil {
		t.Fatalf("DiscoverFolder: %v", err)
	}
	if len(result.CreatedFolders) != 2 {
		t.Fatalf("created folders = %v, want 2 (a, a/b)", result.CreatedFolders)
	}
	if len(cat.folders) != 2 {
		t.Errorf("catalog has %d folders, want 2", len(cat.folders))
	}
}

func TestDiscoverFolder_ReconciliationRemovesOrphaned(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "present.mp4"))

	cat := newFakeCatalog()
	cat.videos[filepath.Join(dir, "gone.mp4")] = &catalog.Video{URL: filepath.Join(dir, "gone.mp4")}

	c := New(cat, &fakeProcessor{}, smartfolder.New(), 8)
	result, err := c.DiscoverFolder(context.Background(), dir, Options{}, Listener{})
	if err != nil {
		t.Fatalf("DiscoverFolder: %v", err)
	}
	if len(result.Removed) != 1 || result.Removed[0] != filepath.Join(dir, "gone.mp4") {
		t.Errorf("removed = %v, want [gone.mp4]", result.Removed)
	}
	if _, ok := cat.videos[filepath.Join(dir, "gone.mp4")]; ok {
		t.Error("expected orphaned video deleted from catalog")
	}
}

func TestDiscoverFolder_PerVideoErrorsAreCapturedNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "good.mp4"))
	writeTestFile(t, filepath.Join(dir, "bad.mp4"))

	cat := newFakeCatalog()
	proc := &fakeProcessor{fail: map[string]bool{filepath.Join(dir, "bad.mp4"): true}}
	c := New(cat, proc, smartfolder.New(), 8)

	result, err := c.DiscoverFolder(context.Background(), dir, Options{}, Listener{})
	if err != nil {
		t.Fatalf("DiscoverFolder returned fatal error: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v, want 1 captured error", result.Errors)
	}
	if len(result.Added) != 1 {
		t.Errorf("added = %v, want 1 (good.mp4 only)", result.Added)
	}
}

func TestDiscoverFolder_CancelStopsAtBatchBoundary(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 150; i++ {
		writeTestFile(t, filepath.Join(dir, fmt.Sprintf("v%03d.mp4", i)))
	}

	cat := newFakeCatalog()
	var c *Coordinator
	proc := &fakeProcessor{}
	c = New(cat, proc, smartfolder.New(), 8)
	proc.onCall = func(url string, n int) {
		if n == 10 {
			c.Cancel()
		}
	}

	var cancelled bool
	result, err := c.DiscoverFolder(context.Background(), dir, Options{}, Listener{
		OnCancel: func() { cancelled = true },
	})
	if err != nil {
		t.Fatalf("DiscoverFolder: %v", err)
	}
	if !cancelled {
		t.Error("expected OnCancel to fire")
	}
	processed := len(result.Added) + len(result.Errors)
	if processed < 50 || processed > 150 {
		t.Errorf("processed = %d, want in range [50,150]", processed)
	}
	if processed >= 150 {
		t.Error("expected run to stop before the second batch")
	}
}

func TestDiscoverSmartFolder_AddedAndRemoved(t *testing.T) {
	cat := newFakeCatalog()
	big := int64(2_000_000_000)
	cat.videos["/lib/a.mp4"] = &catalog.Video{URL: "/lib/a.mp4", FileSize: &big}

	c := New(cat, &fakeProcessor{}, smartfolder.New(), 8)
	criteria := smartfolder.Criteria{MinSize: 1_000_000_000}

	first, err := c.DiscoverSmartFolder(context.Background(), criteria, Listener{})
	if err != nil {
		t.Fatalf("DiscoverSmartFolder: %v", err)
	}
	if len(first.Added) != 1 {
		t.Fatalf("first added = %v, want 1", first.Added)
	}

	cat.videos["/lib/b.mp4"] = &catalog.Video{URL: "/lib/b.mp4", FileSize: &big}
	second, err := c.DiscoverSmartFolder(context.Background(), criteria, Listener{})
	if err != nil {
		t.Fatalf("DiscoverSmartFolder: %v", err)
	}
	if len(second.Added) != 1 || second.Added[0] != "/lib/b.mp4" {
		t.Errorf("second added = %v, want [/lib/b.mp4]", second.Added)
	}
	if len(second.Removed) != 0 {
		t.Errorf("second removed = %v, want none", second.Removed)
	}
}

func TestCheckThumbnails_FiltersByStatus(t *testing.T) {
	cat := newFakeCatalog()
	cat.videos["/lib/done.mp4"] = &catalog.Video{URL: "/lib/done.mp4", ThumbnailStatus: catalog.ThumbnailCompleted}
	cat.videos["/lib/pending.mp4"] = &catalog.Video{URL: "/lib/pending.mp4", ThumbnailStatus: catalog.ThumbnailPending}

	c := New(cat, &fakeProcessor{}, smartfolder.New(), 8)
	videos, err := c.CheckThumbnails(context.Background(), "/lib")
	if err != nil {
		t.Fatalf("CheckThumbnails: %v", err)
	}
	if len(videos) != 1 || videos[0].URL != "/lib/pending.mp4" {
		t.Errorf("videos = %v, want [/lib/pending.mp4]", videos)
	}
}

func TestRegenerateThumbnails_PreservesID(t *testing.T) {
	cat := newFakeCatalog()
	cat.videos["/lib/a.mp4"] = &catalog.Video{ID: "original-id", URL: "/lib/a.mp4", ThumbnailStatus: catalog.ThumbnailError}

	c := New(cat, &fakeProcessor{}, smartfolder.New(), 8)
	result, err := c.RegenerateThumbnails(context.Background(), []*catalog.Video{cat.videos["/lib/a.mp4"]}, Listener{})
	if err != nil {
		t.Fatalf("RegenerateThumbnails: %v", err)
	}
	if len(result.Updated) != 1 {
		t.Fatalf("updated = %v, want 1", result.Updated)
	}
	if cat.videos["/lib/a.mp4"].ID != "original-id" {
		t.Errorf("id = %q, want preserved original-id", cat.videos["/lib/a.mp4"].ID)
	}
	if cat.videos["/lib/a.mp4"].ThumbnailStatus != catalog.ThumbnailCompleted {
		t.Errorf("status = %q, want completed after regeneration", cat.videos["/lib/a.mp4"].ThumbnailStatus)
	}
}
