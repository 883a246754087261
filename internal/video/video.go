// Package video implements the Per-Video Processor (spec §4.6): loads a
// video's metadata via ffprobe and then generates its cover thumbnail in
// the same call, deduplicating concurrent requests for the same URL. The
// thumbnail step always runs and runs synchronously; there is no option to
// skip it or to run it in the background.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"videopipe/internal/catalog"
	"videopipe/internal/errs"
	"videopipe/internal/frames"
	"videopipe/internal/logging"
	"videopipe/internal/metrics"
)

// probeResult mirrors ffprobe's `-show_format -show_streams` JSON shape,
// grounded on the same structured-decode approach used elsewhere in the
// pack's ffprobe wrappers rather than the teacher's ad hoc string scanning.
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
		Size     string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Metadata is the subset of Video fields the ffprobe load fills in.
type Metadata struct {
	Duration  float64
	Width     *int
	Height    *int
	FrameRate *float64
	CodecTag  string
	Bitrate   *int64
	FileSize  *int64
}

// Config mirrors ProcessingConfig (spec §3/§6).
type Config struct {
	ThumbnailWidth        int
	Format                string
	CompressionQuality    float64
	UseAccurateTimestamps bool
}

// Processor loads metadata for videos and generates cover thumbnails,
// deduplicating concurrent Process calls for the same URL.
type Processor struct {
	ffprobePath string
	ffmpegPath  string
	thumbDir    string
	cfg         Config

	mu    sync.Mutex
	tasks map[string]*task
}

type task struct {
	done chan struct{}
	v    *catalog.Video
	err  error
}

// New returns a Processor that writes cover thumbnails under thumbDir
// (the app-support "…/Thumbnails" directory per spec §6).
func New(ffprobePath, ffmpegPath, thumbDir string, cfg Config) *Processor {
	return &Processor{
		ffprobePath: ffprobePath,
		ffmpegPath:  ffmpegPath,
		thumbDir:    thumbDir,
		cfg:         cfg,
		tasks:       make(map[string]*task),
	}
}

// Process loads metadata for url and returns a populated catalog.Video. If
// a task for url is already running, its future is returned instead of
// starting a second one (spec §4.6 dedup).
func (p *Processor) Process(ctx context.Context, url string) (*catalog.Video, error) {
	p.mu.Lock()
	if t, ok := p.tasks[url]; ok {
		p.mu.Unlock()
		<-t.done
		return t.v, t.err
	}

	t := &task{done: make(chan struct{})}
	p.tasks[url] = t
	p.mu.Unlock()

	t.v, t.err = p.process(ctx, url)
	close(t.done)

	p.mu.Lock()
	delete(p.tasks, url)
	p.mu.Unlock()

	return t.v, t.err
}

func (p *Processor) process(ctx context.Context, url string) (*catalog.Video, error) {
	start := time.Now()

	info, err := os.Stat(url)
	if err != nil {
		metrics.VideoProcessedTotal.WithLabelValues("error").Inc()
		return nil, errs.NewVideoError(errs.FileNotFound, url, err)
	}

	md, probeErr := p.loadMetadata(ctx, url)
	if probeErr != nil {
		logging.Warn("video: metadata load failed for %s: %v (registering anyway)", url, probeErr)
		metrics.VideoMetadataFieldMissing.WithLabelValues("all").Inc()
		md = &Metadata{}
	}

	size := info.Size()
	if md.FileSize == nil {
		md.FileSize = &size
	}

	v := &catalog.Video{
		ID:              uuid.NewString(),
		URL:             url,
		Title:           titleFromFilename(url),
		Duration:        md.Duration,
		Width:           md.Width,
		Height:          md.Height,
		FrameRate:       md.FrameRate,
		CodecTag:        md.CodecTag,
		Bitrate:         md.Bitrate,
		FileSize:        md.FileSize,
		CustomMetadata:  map[string]string{},
		DateAdded:       time.Now(),
		DateModified:    info.ModTime(),
		ThumbnailStatus: catalog.ThumbnailPending,
	}

	metrics.VideoProcessDuration.Observe(time.Since(start).Seconds())
	metrics.VideoProcessedTotal.WithLabelValues("ok").Inc()

	if thumbURL, err := p.generateThumbnail(ctx, v); err != nil {
		logging.Warn("video: thumbnail generation failed for %s: %v", url, err)
		v.ThumbnailStatus = catalog.ThumbnailError
	} else {
		v.ThumbnailURL = thumbURL
		v.ThumbnailStatus = catalog.ThumbnailCompleted
	}

	return v, nil
}

// loadMetadata runs ffprobe once and interprets the subset of its output the
// spec requires; a field that can't be parsed is simply left nil rather
// than failing the whole load (spec §4.6).
func (p *Processor) loadMetadata(ctx context.Context, url string) (*Metadata, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath, "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errs.NewVideoError(errs.MetadataExtractionFailed, url, fmt.Errorf("%w: %s", err, stderr.String()))
	}

	var probe probeResult
	if err := json.Unmarshal(stdout.Bytes(), &probe); err != nil {
		return nil, errs.NewVideoError(errs.MetadataExtractionFailed, url, err)
	}

	md := &Metadata{}
	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		md.Duration = d
	}
	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		md.Bitrate = &br
	}

	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width > 0 && s.Height > 0 {
			w, h := s.Width, s.Height
			md.Width, md.Height = &w, &h
		}
		md.CodecTag = s.CodecName
		if fr := parseFrameRate(s.RFrameRate); fr > 0 {
			md.FrameRate = &fr
		}
		break
	}

	return md, nil
}

func parseFrameRate(s string) float64 {
	var num, den float64
	if n, err := fmt.Sscanf(s, "%f/%f", &num, &den); err == nil && n == 2 && den != 0 {
		return num / den
	}
	return 0
}

// generateThumbnail extracts a frame at 10% of duration, scales it so its
// longer edge is 480px, and writes it to <thumbDir>/<uuid>_thumb.<ext>
// (spec §4.6 / §6).
func (p *Processor) generateThumbnail(ctx context.Context, v *catalog.Video) (string, error) {
	if v.Duration <= 0 {
		return "", errs.NewVideoError(errs.ThumbnailGenerationFailed, v.URL, fmt.Errorf("unknown duration"))
	}

	if err := os.MkdirAll(p.thumbDir, 0755); err != nil {
		return "", errs.NewVideoError(errs.ThumbnailGenerationFailed, v.URL, err)
	}

	extractor := frames.New(p.ffmpegPath, v.URL, 1)
	tolerance := frames.Fast
	if p.cfg.UseAccurateTimestamps {
		tolerance = frames.Accurate
	}

	results := extractor.Extract(ctx, []float64{v.Duration * 0.10}, tolerance, 480)
	if len(results) == 0 || results[0].Err != nil || results[0].Frame == nil {
		var err error
		if len(results) > 0 {
			err = results[0].Err
		}
		return "", errs.NewVideoError(errs.ThumbnailGenerationFailed, v.URL, err)
	}

	resized := imaging.Fit(results[0].Frame.Image, 480, 480, imaging.Lanczos)

	ext := "jpg"
	outPath := filepath.Join(p.thumbDir, fmt.Sprintf("%s_thumb.%s", v.ID, ext))

	out, err := os.Create(outPath)
	if err != nil {
		return "", errs.NewVideoError(errs.ThumbnailGenerationFailed, v.URL, err)
	}
	defer out.Close()

	quality := int(p.cfg.CompressionQuality * 100)
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	if err := jpeg.Encode(out, resized, &jpeg.Options{Quality: quality}); err != nil {
		return "", errs.NewVideoError(errs.ThumbnailGenerationFailed, v.URL, err)
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues("ok").Inc()
	return outPath, nil
}

func titleFromFilename(url string) string {
	base := filepath.Base(url)
	return base[:len(base)-len(filepath.Ext(base))]
}

// ProgressFunc receives (completed_count, current_title) callbacks during
// ProcessMany (spec §4.6).
type ProgressFunc func(completed int, currentTitle string)

// ProcessMany processes urls with up to maxConcurrent workers in flight,
// returning results in the same order as urls (spec §4.6 batch form).
func (p *Processor) ProcessMany(ctx context.Context, urls []string, maxConcurrent int, progress ProgressFunc) ([]*catalog.Video, []error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}

	videos := make([]*catalog.Video, len(urls))
	errsOut := make([]error, len(urls))

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var completed int
	var mu sync.Mutex

	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				errsOut[i] = ctx.Err()
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			v, err := p.Process(ctx, url)
			videos[i] = v
			errsOut[i] = err

			mu.Lock()
			completed++
			n := completed
			mu.Unlock()

			if progress != nil {
				title := url
				if v != nil {
					title = v.Title
				}
				progress(n, title)
			}
		}(i, url)
	}

	wg.Wait()
	return videos, errsOut
}
