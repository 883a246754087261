package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"videopipe/internal/catalog"
	"videopipe/internal/coordinator"
	"videopipe/internal/playlist"
	"videopipe/internal/smartfolder"
	"videopipe/internal/video"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultDBPath       = "/data/catalog.db"
	defaultThumbnailDir = "/data/Thumbnails"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	dbPath := envOr("CATALOG_DB", defaultDBPath)
	cat, err := catalog.Open(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open catalog: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure CATALOG_DB is set correctly (current: %s)\n", dbPath)
		os.Exit(1)
	}
	defer func() {
		if err := cat.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close catalog: %v\n", err)
		}
	}()

	args := os.Args[2:]
	switch os.Args[1] {
	case "scan":
		runScan(ctx, cat, args)
	case "stats":
		runStats(ctx, cat)
	case "thumbnails":
		runThumbnails(ctx, cat, args)
	case "smart-eval":
		runSmartEval(ctx, cat, args)
	case "playlist":
		runPlaylist(ctx, cat, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(os.Args[1]))
		printUsage()
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for
// display, using an allowlist so unrecognized input can't smuggle control
// characters into terminal output.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("Catalog Maintenance Tool")
	fmt.Println("")
	fmt.Println("Usage: catalogtool <command> [args]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  scan <root> [--recursive] [--update]    Discover and catalog videos under root")
	fmt.Println("  stats                                    Show catalog-wide statistics")
	fmt.Println("  thumbnails check <root>                  List videos needing a thumbnail")
	fmt.Println("  thumbnails regenerate <root> [--yes]     Regenerate thumbnails for those videos")
	fmt.Println("  smart-eval --name=a,b --min-size=N       Evaluate a smart-folder criteria set")
	fmt.Println("  playlist import <file.wpl> [mediaDir]    Parse a WPL playlist into a catalog entry")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Printf("  CATALOG_DB     - Path to catalog database (default: %s)\n", defaultDBPath)
	fmt.Println("  FFPROBE_PATH   - Path to the ffprobe binary (default: ffprobe)")
	fmt.Println("  FFMPEG_PATH    - Path to the ffmpeg binary (default: ffmpeg)")
	fmt.Printf("  THUMBNAIL_DIR  - Directory for cover thumbnails (default: %s)\n", defaultThumbnailDir)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newProcessor() *video.Processor {
	return video.New(envOr("FFPROBE_PATH", "ffprobe"), envOr("FFMPEG_PATH", "ffmpeg"), envOr("THUMBNAIL_DIR", defaultThumbnailDir), video.Config{
		ThumbnailWidth:        1920,
		Format:                "heif",
		CompressionQuality:    0.8,
		UseAccurateTimestamps: true,
	})
}

func runScan(ctx context.Context, cat *catalog.Catalog, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: scan requires a root path")
		os.Exit(1)
	}
	root := args[0]
	opts := coordinator.Options{ConcurrentOperations: 8}
	for _, a := range args[1:] {
		switch a {
		case "--recursive":
			opts.Recursive = true
		case "--update":
			opts.IsUpdate = true
		}
	}

	c := coordinator.New(cat, newProcessor(), smartfolder.New(), 8)
	result, err := c.DiscoverFolder(ctx, root, opts, coordinator.Listener{
		OnProgress: func(e coordinator.ProgressEvent) {
			fmt.Printf("\r%d/%d videos processed (%d errors)", e.ProcessedVideos, e.TotalVideos, e.ErrorFiles)
		},
	})
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: scan failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Added: %d, Updated: %d, Removed: %d, Folders created: %d\n",
		len(result.Added), len(result.Updated), len(result.Removed), len(result.CreatedFolders))
	if len(result.Errors) > 0 {
		fmt.Printf("%d per-video errors:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  - %v\n", e)
		}
	}
}

func runStats(ctx context.Context, cat *catalog.Catalog) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats, err := cat.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load stats: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Videos:         %d\n", stats.TotalVideos)
	fmt.Printf("Folders:        %d\n", stats.TotalFolders)
	fmt.Printf("Smart folders:  %d\n", stats.TotalSmartFolders)
	fmt.Printf("Playlists:      %d\n", stats.TotalPlaylists)
	fmt.Printf("Mosaics:        %d\n", stats.MosaicsGenerated)
	fmt.Printf("Previews:       %d\n", stats.PreviewsGenerated)
}

func runThumbnails(ctx context.Context, cat *catalog.Catalog, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Error: thumbnails requires a subcommand (check|regenerate) and a root path")
		os.Exit(1)
	}
	sub, root := args[0], args[1]
	c := coordinator.New(cat, newProcessor(), smartfolder.New(), 8)

	videos, err := c.CheckThumbnails(ctx, root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: check failed: %v\n", err)
		os.Exit(1)
	}

	switch sub {
	case "check":
		fmt.Printf("%d videos need a thumbnail:\n", len(videos))
		for _, v := range videos {
			fmt.Printf("  - %s (%s)\n", v.URL, v.ThumbnailStatus)
		}
	case "regenerate":
		if len(videos) == 0 {
			fmt.Println("Nothing to regenerate.")
			return
		}
		if !hasFlag(args[2:], "--yes") && !confirm(fmt.Sprintf("Regenerate %d thumbnail(s)?", len(videos))) {
			fmt.Println("Aborted.")
			return
		}
		result, err := c.RegenerateThumbnails(ctx, videos, coordinator.Listener{
			OnProgress: func(e coordinator.ProgressEvent) {
				fmt.Printf("\r%d/%d regenerated", e.ProcessedVideos, e.TotalVideos)
			},
		})
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: regeneration failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Regenerated: %d, errors: %d\n", len(result.Updated), len(result.Errors))
	default:
		fmt.Fprintf(os.Stderr, "Unknown thumbnails subcommand: %s\n", sanitizeCommand(sub))
		os.Exit(1)
	}
}

func runSmartEval(ctx context.Context, cat *catalog.Catalog, args []string) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	criteria := smartfolder.Criteria{}
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "--name="):
			criteria.NameFilters = strings.Split(strings.TrimPrefix(a, "--name="), ",")
		case strings.HasPrefix(a, "--min-size="):
			if n, err := strconv.ParseInt(strings.TrimPrefix(a, "--min-size="), 10, 64); err == nil {
				criteria.MinSize = n
			}
		case strings.HasPrefix(a, "--max-size="):
			if n, err := strconv.ParseInt(strings.TrimPrefix(a, "--max-size="), 10, 64); err == nil {
				criteria.MaxSize = n
			}
		}
	}

	c := coordinator.New(cat, newProcessor(), smartfolder.New(), 8)
	result, err := c.DiscoverSmartFolder(ctx, criteria, coordinator.Listener{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: smart-folder evaluation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Key: %s\n", smartfolder.CacheKey(criteria))
	fmt.Printf("Added: %d, Removed: %d\n", len(result.Added), len(result.Removed))
}

func runPlaylist(ctx context.Context, cat *catalog.Catalog, args []string) {
	if len(args) < 2 || args[0] != "import" {
		fmt.Fprintln(os.Stderr, "Error: playlist requires a subcommand (import) and a .wpl path")
		os.Exit(1)
	}
	wplPath := args[1]
	mediaDir := filepath.Dir(wplPath)
	if len(args) > 2 {
		mediaDir = args[2]
	}

	pl, err := playlist.ParseWPL(wplPath, mediaDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to parse %s: %v\n", wplPath, err)
		os.Exit(1)
	}

	tx, err := cat.BeginBatch(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to begin transaction: %v\n", err)
		os.Exit(1)
	}
	item := &catalog.LibraryItem{
		ID:           uuid.NewString(),
		Name:         pl.Name,
		Type:         catalog.ItemPlaylist,
		URL:          pl.Path,
		DateCreated:  time.Now(),
		DateModified: time.Now(),
	}
	runErr := cat.UpsertFolder(tx, item)
	if err := cat.EndBatch(tx, runErr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save playlist: %v\n", err)
		os.Exit(1)
	}

	resolved := 0
	for _, pi := range pl.Items {
		if pi.Exists {
			resolved++
		}
	}
	fmt.Printf("Imported playlist %q: %d item(s), %d resolved against %s\n", pl.Name, pl.Count, resolved, mediaDir)
}

func hasFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}

// confirm prompts for a yes/no answer on an interactive terminal. Without
// a controlling terminal there is nobody to answer, so it declines rather
// than blocking on a read that will never complete; callers should pass
// --yes instead for scripted use.
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Printf("%s [y/N] ", prompt)
	var response string
	fmt.Scanln(&response)
	return strings.ToLower(strings.TrimSpace(response)) == "y"
}
