// Package mosaic implements the Mosaic Engine (spec §4.4): per-video
// orchestration of layout computation, frame extraction, composition, and
// atomic artifact writes, deduplicated per video id and reported as staged
// progress.
package mosaic

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"videopipe/internal/catalog"
	"videopipe/internal/compositor"
	"videopipe/internal/errs"
	"videopipe/internal/frames"
	"videopipe/internal/layout"
	"videopipe/internal/logging"
	"videopipe/internal/metrics"
)

// State is a generation's position in the state machine (spec §4.4).
type State string

const (
	Queued     State = "queued"
	InProgress State = "in_progress"
	Completed  State = "completed"
	Failed     State = "failed"
	Cancelled  State = "cancelled"
)

// OutputOptions mirrors MosaicConfiguration.output (spec §3).
type OutputOptions struct {
	Overwrite       bool
	SaveAtRoot      bool
	SeparateFolders bool
	AddFullPath     bool
}

// Config mirrors MosaicConfiguration (spec §3/§6).
type Config struct {
	Width                 int
	Density               layout.Density
	Format                string
	CompressionQuality    float64
	Aspect                layout.AspectRatio
	Spacing               int
	Visual                compositor.VisualSettings
	IncludeMetadata       bool
	UseAccurateTimestamps bool
	AutoLayout            bool
	CustomLayout          bool
	Output                OutputOptions
}

// Defaults matches spec §6's MosaicConfig factory defaults.
var Defaults = Config{
	Width:                 5120,
	Density:               layout.DensityM,
	Format:                "heif",
	CompressionQuality:    0.4,
	Aspect:                layout.Aspect16x9,
	Spacing:               4,
	IncludeMetadata:       true,
	UseAccurateTimestamps: true,
	AutoLayout:            true,
	Visual: compositor.VisualSettings{
		BorderEnabled: true,
		BorderColor:   color.RGBA{R: 255, G: 255, B: 255, A: 255},
		BorderWidth:   1,
		ShadowEnabled: true,
		ShadowOpacity: 0.5,
		ShadowRadius:  4,
		ShadowOffsetY: -2,
	},
}

// ProgressFunc receives staged progress fractions at the breakpoints fixed
// by spec §4.4: queued->0.1, frames->0.5, compose->0.8, write->1.0.
type ProgressFunc func(videoID string, state State, fraction float64)

// Engine generates mosaics, deduplicating concurrent requests per video id.
type Engine struct {
	ffmpegPath   string
	libraryRoots map[string]string // video URL prefix -> library root, for save_at_root resolution

	mu    sync.Mutex
	tasks map[string]*genTask
}

type genTask struct {
	done chan struct{}
	url  string
	err  error
}

// New returns an Engine. libraryRoots maps each registered library root to
// itself; Generate resolves a video's root by longest-prefix match against
// its URL, needed for the save_at_root output option (spec §9 decision #4).
func New(ffmpegPath string, libraryRoots []string) *Engine {
	roots := make(map[string]string, len(libraryRoots))
	for _, r := range libraryRoots {
		roots[r] = r
	}
	return &Engine{ffmpegPath: ffmpegPath, libraryRoots: roots, tasks: make(map[string]*genTask)}
}

// Generate produces a mosaic for v per cfg, writing the artifact atomically
// and returning its path. Concurrent calls for the same video id share one
// in-flight task (spec §4.4 step 1).
func (e *Engine) Generate(ctx context.Context, v *catalog.Video, cfg Config, progress ProgressFunc) (string, error) {
	e.mu.Lock()
	if t, ok := e.tasks[v.ID]; ok {
		e.mu.Unlock()
		<-t.done
		return t.url, t.err
	}
	t := &genTask{done: make(chan struct{})}
	e.tasks[v.ID] = t
	e.mu.Unlock()

	t.url, t.err = e.generate(ctx, v, cfg, progress)
	close(t.done)

	e.mu.Lock()
	delete(e.tasks, v.ID)
	e.mu.Unlock()

	return t.url, t.err
}

func (e *Engine) generate(ctx context.Context, v *catalog.Video, cfg Config, progress ProgressFunc) (string, error) {
	start := time.Now()
	report := func(state State, fraction float64) {
		if progress != nil {
			progress(v.ID, state, fraction)
		}
	}

	report(Queued, 0.1)
	metrics.MosaicInFlight.Inc()
	defer metrics.MosaicInFlight.Dec()

	if ctx.Err() != nil {
		metrics.MosaicGenerationsTotal.WithLabelValues("cancelled").Inc()
		return "", errs.NewMosaicError(errs.GenerationFailed, v.URL, ctx.Err())
	}

	outPath, err := e.outputPath(v, cfg)
	if err != nil {
		metrics.MosaicGenerationsTotal.WithLabelValues("failed").Inc()
		return "", err
	}
	if !cfg.Output.Overwrite {
		if _, statErr := os.Stat(outPath); statErr == nil {
			metrics.MosaicGenerationsTotal.WithLabelValues("file_exists").Inc()
			return "", errs.NewMosaicError(errs.FileExists, v.URL, nil)
		}
	}

	report(InProgress, 0.1)
	thumbCount, err := layout.ThumbnailCount(v.Duration, cfg.Width, cfg.Density, cfg.AutoLayout)
	if err != nil {
		metrics.MosaicGenerationsTotal.WithLabelValues("failed").Inc()
		return "", errs.NewMosaicError(errs.GenerationFailed, v.URL, err)
	}
	l, err := layout.Layout(cfg.Aspect, thumbCount, cfg.Width, cfg.Density, cfg.Spacing, cfg.CustomLayout)
	if err != nil {
		metrics.MosaicGenerationsTotal.WithLabelValues("failed").Inc()
		return "", errs.NewMosaicError(errs.GenerationFailed, v.URL, err)
	}

	timestamps := make([]float64, thumbCount)
	for i, frac := range layout.TimestampFractions(thumbCount) {
		timestamps[i] = frac * v.Duration
	}

	tolerance := frames.Fast
	if cfg.UseAccurateTimestamps {
		tolerance = frames.Accurate
	}

	extractor := frames.New(e.ffmpegPath, v.URL, 8)
	results := extractor.Extract(ctx, timestamps, tolerance, cfg.Width/l.Cols)
	if ctx.Err() != nil {
		metrics.MosaicGenerationsTotal.WithLabelValues("cancelled").Inc()
		return "", errs.NewMosaicError(errs.GenerationFailed, v.URL, ctx.Err())
	}
	if frames.FailureRatio(results) >= 1.0 {
		metrics.MosaicGenerationsTotal.WithLabelValues("failed").Inc()
		return "", errs.NewMosaicError(errs.GenerationFailed, v.URL, fmt.Errorf("all frame extractions failed"))
	}

	report(InProgress, 0.5)
	tiles := make([]compositor.Tile, len(results))
	for i, r := range results {
		if r.Err != nil || r.Frame == nil {
			tiles[i] = compositor.Tile{Frame: frames.Blank(l.ThumbnailSizes[i].W, l.ThumbnailSizes[i].H, r.RequestedTime)}
			continue
		}
		tiles[i] = compositor.Tile{Frame: r.Frame}
	}

	var overlay *compositor.MetadataOverlay
	if cfg.IncludeMetadata {
		o := compositor.MetadataOverlay{Codec: v.CodecTag, Custom: map[string]string{}}
		if v.Bitrate != nil {
			o.Bitrate = *v.Bitrate
		}
		overlay = &o
	}

	data, _, err := compositor.Compose(tiles, l, cfg.Visual, overlay, cfg.Format, cfg.CompressionQuality)
	if err != nil {
		metrics.MosaicGenerationsTotal.WithLabelValues("failed").Inc()
		return "", err
	}

	report(InProgress, 0.8)
	if err := writeAtomic(outPath, data); err != nil {
		metrics.MosaicGenerationsTotal.WithLabelValues("failed").Inc()
		return "", errs.NewMosaicError(errs.SaveFailed, v.URL, err)
	}

	report(Completed, 1.0)
	metrics.MosaicGenerationsTotal.WithLabelValues("completed").Inc()
	metrics.MosaicGenerationDuration.Observe(time.Since(start).Seconds())
	metrics.MosaicTileCount.Observe(float64(thumbCount))

	return outPath, nil
}

// outputPath computes the mosaic's destination per spec §6 "Artifact naming".
func (e *Engine) outputPath(v *catalog.Video, cfg Config) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(v.URL), filepath.Ext(v.URL))
	aspectLabel := strings.ReplaceAll(cfg.Aspect.Name, ":", "x")
	ext := formatExt(cfg.Format)

	baseDir := filepath.Dir(v.URL)
	if cfg.Output.SaveAtRoot {
		root, err := e.resolveLibraryRoot(v.URL)
		if err != nil {
			return "", err
		}
		baseDir = root
	}

	dirName := fmt.Sprintf("_Th%d_%s_%s", cfg.Width, cfg.Density.Name, aspectLabel)
	dir := filepath.Join(baseDir, dirName)

	name := fmt.Sprintf("%s_%d_%s_%s.%s", stem, cfg.Width, cfg.Density.Name, aspectLabel, ext)
	if cfg.Output.AddFullPath {
		full := strings.ReplaceAll(strings.ReplaceAll(v.URL, "/", "_"), " ", "_")
		maxLen := 200 - len(dirName)
		if maxLen > 0 && len(full) > maxLen {
			full = full[len(full)-maxLen:]
		}
		name = fmt.Sprintf("%s_%d_%s_%s.%s", full, cfg.Width, cfg.Density.Name, aspectLabel, ext)
	}

	return filepath.Join(dir, name), nil
}

// resolveLibraryRoot finds the registered library root that is a prefix of
// url, the correction to the teacher-era bug described in spec §9 decision
// #4: save_at_root roots under the library root, not the video's parent.
func (e *Engine) resolveLibraryRoot(url string) (string, error) {
	var best string
	for root := range e.libraryRoots {
		if strings.HasPrefix(url, root) && len(root) > len(best) {
			best = root
		}
	}
	if best == "" {
		return "", errs.NewMosaicError(errs.SaveFailed, url, fmt.Errorf("no library root registered for %s", url))
	}
	return best, nil
}

func formatExt(format string) string {
	switch format {
	case "heif":
		return "heif"
	case "png":
		return "png"
	default:
		return "jpg"
	}
}

// writeAtomic writes data to a temp file in path's directory, fsyncs it,
// and renames it into place (spec §4.4 step 5).
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".mosaic-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	logging.Debug("mosaic: wrote %s (%d bytes)", path, len(data))
	return nil
}

// Cancel removes videoID's entry from the in-flight task map, so a later
// Generate call for it starts a new task instead of joining the running one.
// It does not stop a running generation, delete its temp file, or report a
// Cancelled state; stopping a generation is done by cancelling the context
// passed to Generate. Calling Cancel when no task is in flight is a no-op.
func (e *Engine) Cancel(videoID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.tasks, videoID)
}
