// Package frames implements the Frame Extractor (spec §4.2): an
// ffmpeg-backed source of decoded frames at arbitrary timestamps, bounded by
// a per-extractor semaphore and cooperatively cancellable.
package frames

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"videopipe/internal/errs"
	"videopipe/internal/logging"
	"videopipe/internal/metrics"
)

// TolerancePolicy selects how ffmpeg seeks to a requested timestamp (spec
// §4.2). Only Name is used: "fast" runs ffmpeg with -noaccurate_seek and
// any other name with -accurate_seek. MinTol and MaxTol are not passed to
// ffmpeg, so no seek window is enforced.
type TolerancePolicy struct {
	Name   string
	MinTol float64
	MaxTol float64
}

var (
	// Accurate requires an exact seek; used for mosaic tile extraction.
	Accurate = TolerancePolicy{Name: "accurate", MinTol: 0, MaxTol: 0}
	// Fast lets ffmpeg land on a nearby keyframe (-noaccurate_seek); the
	// 0.5-2.0s bounds are recorded here but not enforced.
	Fast = TolerancePolicy{Name: "fast", MinTol: 0.5, MaxTol: 2.0}
)

// Frame is a single decoded image at the timestamp it was requested for.
type Frame struct {
	RequestedTime float64
	Image         image.Image
	Blank         bool
}

// Result pairs a requested timestamp with its extraction outcome.
type Result struct {
	RequestedTime float64
	Frame         *Frame
	Err           error
}

const defaultMaxConcurrent = 8

// Extractor opens a single video source and serves extract_at requests
// against it, bounded by a semaphore shared across all requests issued
// through this Extractor.
type Extractor struct {
	ffmpegPath string
	url        string
	sem        chan struct{}
}

// New returns an Extractor over url, limiting concurrent ffmpeg subprocesses
// to maxConcurrent (defaulting to 8 when maxConcurrent <= 0).
func New(ffmpegPath, url string, maxConcurrent int) *Extractor {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Extractor{
		ffmpegPath: ffmpegPath,
		url:        url,
		sem:        make(chan struct{}, maxConcurrent),
	}
}

// Extract issues one extraction per entry in timestamps, respecting
// tolerance and an optional maxSize longer-edge constraint, and returns a
// Result per timestamp in the order requested. Cancellation via ctx is
// checked before dispatch and after receipt of each frame; results gathered
// before cancellation are retained.
func (e *Extractor) Extract(ctx context.Context, timestamps []float64, tolerance TolerancePolicy, maxSize int) []Result {
	results := make([]Result, len(timestamps))
	var wg sync.WaitGroup

	for i, ts := range timestamps {
		wg.Add(1)
		go func(i int, ts float64) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[i] = Result{RequestedTime: ts, Err: ctx.Err()}
				return
			case e.sem <- struct{}{}:
			}
			defer func() { <-e.sem }()

			select {
			case <-ctx.Done():
				results[i] = Result{RequestedTime: ts, Err: ctx.Err()}
				return
			default:
			}

			start := time.Now()
			frame, err := e.extractAt(ctx, ts, tolerance, maxSize)
			metrics.FrameExtractionDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				status := "failed"
				if ctx.Err() != nil {
					status = "cancelled"
				}
				metrics.FrameExtractionsTotal.WithLabelValues(status).Inc()
				results[i] = Result{RequestedTime: ts, Err: err}
				return
			}
			metrics.FrameExtractionsTotal.WithLabelValues("ok").Inc()
			results[i] = Result{RequestedTime: ts, Frame: frame}
		}(i, ts)
	}

	wg.Wait()
	return results
}

// extractAt runs ffmpeg to decode a single frame near ts, within tolerance,
// and decodes the resulting JPEG into an image.Image.
func (e *Extractor) extractAt(ctx context.Context, ts float64, tolerance TolerancePolicy, maxSize int) (*Frame, error) {
	metrics.FrameExtractorInFlight.Inc()
	defer metrics.FrameExtractorInFlight.Dec()

	seekFlag := "-accurate_seek"
	if tolerance.Name == Fast.Name {
		seekFlag = "-noaccurate_seek"
	}
	args := []string{seekFlag, "-ss", strconv.FormatFloat(ts, 'f', 3, 64), "-i", e.url, "-frames:v", "1"}

	vf := ""
	if maxSize > 0 {
		vf = fmt.Sprintf("scale='if(gt(iw,ih),min(iw,%d),-2)':'if(gt(iw,ih),-2,min(ih,%d))'", maxSize, maxSize)
	}
	if vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args, "-f", "image2pipe", "-vcodec", "mjpeg", "-")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.Warn("frame extraction failed at %.2fs for %s: %v - %s", ts, e.url, err, stderr.String())
		return nil, errs.NewVideoError(errs.FrameExtractionFailed, e.url, err)
	}

	img, _, err := image.Decode(bytes.NewReader(stdout.Bytes()))
	if err != nil {
		return nil, errs.NewVideoError(errs.FrameExtractionFailed, e.url, err)
	}

	return &Frame{RequestedTime: ts, Image: img}, nil
}

// Blank returns a solid dark-gray placeholder frame of size w x h, used by
// the Thumbnail Compositor whenever an individual frame extraction fails
// (spec §4.2).
func Blank(w, h int, requestedTime float64) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	gray := grayColor{42}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, gray)
		}
	}
	return &Frame{RequestedTime: requestedTime, Image: img, Blank: true}
}

type grayColor struct{ v uint8 }

func (g grayColor) RGBA() (r, gr, b, a uint32) {
	c := uint32(g.v)
	c |= c << 8
	return c, c, c, 0xffff
}

// FailureRatio reports the fraction of results that failed, used by the
// Mosaic Engine to decide between per-tile blank substitution and a fatal
// ExtractionFailed per spec §4.2 ("if >= 100% of frames fail").
func FailureRatio(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	return float64(failed) / float64(len(results))
}
