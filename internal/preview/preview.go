// Package preview implements the Preview Engine (spec §4.5): computing a
// segment plan for a sped-up condensed preview, assembling it via ffmpeg's
// filter_complex/concat pipeline, and writing the result atomically.
package preview

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"videopipe/internal/catalog"
	"videopipe/internal/errs"
	"videopipe/internal/layout"
	"videopipe/internal/logging"
	"videopipe/internal/metrics"
)

const ffmpegTimeout = 5 * time.Minute

// Config mirrors PreviewConfiguration (spec §3/§6).
type Config struct {
	PreviewDuration      float64
	Density              layout.Density
	SaveInCustomLocation bool
	CustomSaveLocation   string
	MaxSpeedMultiplier   float64
}

// Defaults matches spec §6's PreviewConfig factory defaults.
var Defaults = Config{
	PreviewDuration:    30,
	Density:            layout.DensityXS,
	MaxSpeedMultiplier: 1.5,
}

// SegmentPlan is the computed shape of a preview's assembly (spec §4.5).
type SegmentPlan struct {
	ExtractCount       int
	PerSegmentDuration float64
	SpeedMultiplier    float64
}

// ComputeSegmentPlan derives a SegmentPlan for a source of durationSeconds,
// per spec §4.5.
func ComputeSegmentPlan(durationSeconds float64, density layout.Density, previewDuration, maxSpeedMultiplier float64) SegmentPlan {
	durationMin := durationSeconds / 60.0

	baseExtractsPerMinute := 12.0
	if durationSeconds > 0 {
		multiplier := density.ExtractMultiplier
		if multiplier <= 0 {
			multiplier = 1.0
		}
		baseExtractsPerMinute = (12.0 / (1 + 0.2*durationMin)) / multiplier
	}

	extractCount := int(math.Ceil(durationMin * baseExtractsPerMinute))
	if extractCount < 4 {
		extractCount = 4
	}

	perSegmentDuration := previewDuration / float64(extractCount)
	if perSegmentDuration < 0.5 {
		perSegmentDuration = 0.5
	}

	ideal := previewDuration / float64(extractCount)
	speedMultiplier := ideal * float64(extractCount) / previewDuration
	if speedMultiplier > maxSpeedMultiplier {
		speedMultiplier = maxSpeedMultiplier
	}

	return SegmentPlan{
		ExtractCount:       extractCount,
		PerSegmentDuration: perSegmentDuration,
		SpeedMultiplier:    speedMultiplier,
	}
}

// SegmentStarts spaces count segment start times uniformly across
// [0, duration-perSegmentDuration] (spec §4.5 step 1).
func SegmentStarts(durationSeconds, perSegmentDuration float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	span := durationSeconds - perSegmentDuration
	if span < 0 {
		span = 0
	}
	if count == 1 {
		return []float64{0}
	}

	starts := make([]float64, count)
	step := span / float64(count-1)
	for i := 0; i < count; i++ {
		starts[i] = step * float64(i)
	}
	return starts
}

// ProgressFunc receives the preview's overall progress fraction; export
// polling is mapped into [0.7, 1.0] per spec §4.5 step 3.
type ProgressFunc func(videoID string, fraction float64)

// Engine generates previews, deduplicating concurrent requests per video id.
type Engine struct {
	ffmpegPath string
	cacheDir   string

	mu    sync.Mutex
	tasks map[string]*genTask
}

type genTask struct {
	done chan struct{}
	url  string
	err  error
}

// New returns an Engine that writes cache-resident previews under cacheDir
// when a request does not specify a custom save location.
func New(ffmpegPath, cacheDir string) *Engine {
	return &Engine{ffmpegPath: ffmpegPath, cacheDir: cacheDir, tasks: make(map[string]*genTask)}
}

// Generate produces a preview for v per cfg and returns its path.
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
	report := func(fraction float64) {
		if progress != nil {
			progress(v.ID, fraction)
		}
	}

	if cfg.PreviewDuration <= 0 {
		cfg.PreviewDuration = Defaults.PreviewDuration
	}
	if cfg.MaxSpeedMultiplier <= 0 {
		cfg.MaxSpeedMultiplier = Defaults.MaxSpeedMultiplier
	}

	metrics.PreviewInFlight.Inc()
	defer metrics.PreviewInFlight.Dec()
	report(0.05)

	plan := ComputeSegmentPlan(v.Duration, cfg.Density, cfg.PreviewDuration, cfg.MaxSpeedMultiplier)
	starts := SegmentStarts(v.Duration, plan.PerSegmentDuration, plan.ExtractCount)
	if len(starts) == 0 {
		metrics.PreviewGenerationsTotal.WithLabelValues("failed").Inc()
		return "", errs.NewPreviewError(errs.UnableToCreateCompositionTracks, v.URL, fmt.Errorf("no segments computed"))
	}
	metrics.PreviewSegmentCount.Observe(float64(plan.ExtractCount))

	outPath, err := e.outputPath(v, cfg)
	if err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("failed").Inc()
		return "", errs.NewPreviewError(errs.UnableToCreateExportSession, v.URL, err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("failed").Inc()
		return "", errs.NewPreviewError(errs.UnableToCreateExportSession, v.URL, err)
	}

	args := buildArgs(v.URL, starts, plan)
	report(0.2)

	tmpPath := outPath + ".tmp"
	defer os.Remove(tmpPath)

	runCtx, cancel := context.WithTimeout(ctx, ffmpegTimeout)
	defer cancel()

	args = append(args, "-progress", "pipe:1", "-nostats", "-y", tmpPath)
	cmd := exec.CommandContext(runCtx, e.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("failed").Inc()
		return "", errs.NewPreviewError(errs.SegmentInsertionFailed, v.URL, err)
	}
	var stderrBuf strings.Builder
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("failed").Inc()
		return "", errs.NewPreviewError(errs.UnableToCreateExportSession, v.URL, err)
	}

	outputDurationUs := int64((plan.PerSegmentDuration / plan.SpeedMultiplier) * float64(plan.ExtractCount) * 1e6)
	watchExportProgress(stdout, outputDurationUs, func(fraction float64) {
		report(0.7 + 0.3*fraction)
	})

	if err := cmd.Wait(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			metrics.PreviewGenerationsTotal.WithLabelValues("failed").Inc()
			return "", errs.NewPreviewError(errs.SegmentInsertionFailed, v.URL, fmt.Errorf("ffmpeg timed out after %v", ffmpegTimeout))
		}
		logging.Warn("preview: ffmpeg failed for %s: %v: %s", v.URL, err, stderrBuf.String())
		metrics.PreviewGenerationsTotal.WithLabelValues("failed").Inc()
		return "", errs.NewPreviewError(errs.SegmentInsertionFailed, v.URL, err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("failed").Inc()
		return "", errs.NewPreviewError(errs.UnableToCreateExportSession, v.URL, err)
	}

	report(1.0)
	metrics.PreviewGenerationsTotal.WithLabelValues("completed").Inc()
	metrics.PreviewGenerationDuration.Observe(time.Since(start).Seconds())

	return outPath, nil
}

// buildArgs constructs the ffmpeg invocation assembling each segment per
// spec §4.5 step 2: scale and setpts-speed each inserted range, then concat,
// grounded on the filter_complex/concat composition pattern used across the
// pack's ffmpeg wrappers for multi-clip previews.
func buildArgs(url string, starts []float64, plan SegmentPlan) []string {
	args := make([]string, 0, len(starts)*6+8)
	for _, ss := range starts {
		args = append(args,
			"-ss", fmt.Sprintf("%.3f", ss),
			"-t", fmt.Sprintf("%.3f", plan.PerSegmentDuration),
			"-i", url,
		)
	}

	var filterParts strings.Builder
	var concatInputs strings.Builder
	for i := range starts {
		fmt.Fprintf(&filterParts, "[%d:v]scale=480:-2,setpts=(PTS-STARTPTS)/%f[v%d];", i, plan.SpeedMultiplier, i)
		fmt.Fprintf(&concatInputs, "[v%d]", i)
	}
	filterComplex := fmt.Sprintf("%s%sconcat=n=%d:v=1:a=0[out]", filterParts.String(), concatInputs.String(), len(starts))

	args = append(args,
		"-filter_complex", filterComplex,
		"-map", "[out]",
		"-c:v", "libx264",
		"-preset", "slow",
		"-crf", "20",
		"-an",
		"-movflags", "+faststart",
	)
	return args
}

// watchExportProgress reads ffmpeg's `-progress pipe:1` key=value stream and
// reports a [0,1] fraction derived from out_time_us against the expected
// total output duration (spec §4.5 step 3: "poll export progress").
func watchExportProgress(r io.Reader, totalUs int64, report func(float64)) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if totalUs <= 0 {
			continue
		}
		line := sc.Text()
		if !strings.HasPrefix(line, "out_time_us=") {
			continue
		}
		val, err := strconv.ParseInt(strings.TrimPrefix(line, "out_time_us="), 10, 64)
		if err != nil {
			continue
		}
		fraction := float64(val) / float64(totalUs)
		if fraction > 1 {
			fraction = 1
		}
		if fraction < 0 {
			fraction = 0
		}
		report(fraction)
	}
}

// outputPath resolves a preview's destination (spec §4.5 step 4, §6 Artifact
// naming). With SaveInCustomLocation set, the file in CustomSaveLocation
// takes the video's stem with a "-preview" suffix (mediatypes.PreviewSuffix,
// which the scanner's preview-sibling pairing recognizes); otherwise it is
// named by the video's ID under a Previews/ subdirectory of the cache
// directory. No branch writes beside the original video.
func (e *Engine) outputPath(v *catalog.Video, cfg Config) (string, error) {
	if cfg.SaveInCustomLocation {
		if cfg.CustomSaveLocation == "" {
			return "", fmt.Errorf("save_in_custom_location set without custom_save_location")
		}
		stem := strings.TrimSuffix(filepath.Base(v.URL), filepath.Ext(v.URL))
		return filepath.Join(cfg.CustomSaveLocation, stem+"-preview.mp4"), nil
	}

	if e.cacheDir == "" {
		return "", fmt.Errorf("no cache directory configured for preview output")
	}
	return filepath.Join(e.cacheDir, "Previews", v.ID+".mp4"), nil
}
