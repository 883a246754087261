// Package compositor implements the Thumbnail Compositor (spec §4.3): it
// takes a set of extracted frames and a MosaicLayout and renders them onto a
// single raster canvas, optionally decorated with shadows, borders, and a
// metadata overlay strip.
package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"sort"
	"strings"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"videopipe/internal/errs"
	"videopipe/internal/frames"
	"videopipe/internal/layout"
	"videopipe/internal/logging"
)

// VisualSettings controls the decorative elements drawn around each tile
// (spec §4.3 / §3 "VisualSettings").
type VisualSettings struct {
	ShadowEnabled bool
	ShadowOpacity float64
	ShadowRadius  int
	ShadowOffsetX int
	ShadowOffsetY int

	BorderEnabled bool
	BorderColor   color.RGBA
	BorderWidth   int
}

// MetadataOverlay is the optional bottom-strip content drawn when
// include_metadata is set (spec §4.3).
type MetadataOverlay struct {
	Codec   string
	Bitrate int64 // bits per second, human-formatted at draw time
	Custom  map[string]string
}

// backgroundGray is the mosaic canvas's dark-gray fill color.
var backgroundGray = color.RGBA{R: 32, G: 32, B: 32, A: 255}

// Tile pairs an extracted frame with the timestamp label it was requested
// at, the compositor's positional input alongside the MosaicLayout.
type Tile struct {
	Frame *frames.Frame
	Label string
}

// Compose renders tiles onto a canvas sized by l, applying settings and an
// optional overlay, and encodes the result in format ("heif" or "jpeg").
// heif encode failures fall back to jpeg per spec §4.3.
func Compose(tiles []Tile, l *layout.MosaicLayout, settings VisualSettings, overlay *MetadataOverlay, format string, quality float64) ([]byte, string, error) {
	if len(tiles) != len(l.Positions) {
		return nil, "", errs.NewMosaicError(errs.ImageGenerationFailed, "", fmt.Errorf("tile count %d does not match layout position count %d", len(tiles), len(l.Positions)))
	}

	canvas := image.NewRGBA(image.Rect(0, 0, l.MosaicSize.W, l.MosaicSize.H))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(backgroundGray), image.Point{}, draw.Src)

	for i, tile := range tiles {
		pos := l.Positions[i]
		size := l.ThumbnailSizes[i]
		drawTile(canvas, tile, pos, size, settings)
	}

	if overlay != nil {
		drawOverlay(canvas, overlay, l.MosaicSize)
	}

	return encode(canvas, format, quality)
}

func drawTile(canvas *image.RGBA, tile Tile, pos layout.Point, size layout.Size, settings VisualSettings) {
	if settings.ShadowEnabled {
		drawShadow(canvas, pos, size, settings)
	}

	var src image.Image = tile.Frame.Image
	if src == nil {
		src = frames.Blank(size.W, size.H, tile.Frame.RequestedTime).Image
	}
	scaled := imaging.Fill(src, size.W, size.H, imaging.Center, imaging.Lanczos)
	rect := image.Rect(pos.X, pos.Y, pos.X+size.W, pos.Y+size.H)
	draw.Draw(canvas, rect, scaled, image.Point{}, draw.Src)

	if settings.BorderEnabled && settings.BorderWidth > 0 {
		drawBorder(canvas, rect, settings.BorderColor, settings.BorderWidth)
	}
}

// drawShadow draws a translucent offset rectangle beneath a tile. radius is
// approximated as a uniform-alpha expansion rather than a true Gaussian
// blur, matching the cheap approach acceptable for a composited thumbnail.
func drawShadow(canvas *image.RGBA, pos layout.Point, size layout.Size, settings VisualSettings) {
	alpha := uint8(settings.ShadowOpacity * 255)
	shadowColor := color.RGBA{A: alpha}
	r := settings.ShadowRadius

	rect := image.Rect(
		pos.X+settings.ShadowOffsetX-r,
		pos.Y+settings.ShadowOffsetY-r,
		pos.X+settings.ShadowOffsetX+size.W+r,
		pos.Y+settings.ShadowOffsetY+size.H+r,
	).Intersect(canvas.Bounds())

	draw.DrawMask(canvas, rect, image.NewUniform(shadowColor), image.Point{}, nil, image.Point{}, draw.Over)
}

func drawBorder(canvas *image.RGBA, rect image.Rectangle, c color.RGBA, width int) {
	top := image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+width)
	bottom := image.Rect(rect.Min.X, rect.Max.Y-width, rect.Max.X, rect.Max.Y)
	left := image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+width, rect.Max.Y)
	right := image.Rect(rect.Max.X-width, rect.Min.Y, rect.Max.X, rect.Max.Y)

	uni := image.NewUniform(c)
	for _, edge := range []image.Rectangle{top, bottom, left, right} {
		draw.Draw(canvas, edge, uni, image.Point{}, draw.Over)
	}
}

// drawOverlay draws a bottom strip spanning height = 10% of the mosaic,
// with white text (shadowed in black) listing codec, human-formatted
// bitrate, and any custom key/value pairs joined by " | ".
func drawOverlay(canvas *image.RGBA, overlay *MetadataOverlay, size layout.Size) {
	stripHeight := size.H / 10
	if stripHeight < 1 {
		return
	}
	stripRect := image.Rect(0, size.H-stripHeight, size.W, size.H)
	draw.Draw(canvas, stripRect, image.NewUniform(color.RGBA{A: 160}), image.Point{}, draw.Over)

	text := overlayText(overlay)
	drawLabel(canvas, text, 8, size.H-stripHeight/2)
}

func overlayText(overlay *MetadataOverlay) string {
	parts := make([]string, 0, 2+len(overlay.Custom))
	if overlay.Codec != "" {
		parts = append(parts, overlay.Codec)
	}
	if overlay.Bitrate > 0 {
		parts = append(parts, formatBitrate(overlay.Bitrate))
	}

	keys := make([]string, 0, len(overlay.Custom))
	for k := range overlay.Custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, overlay.Custom[k]))
	}

	return strings.Join(parts, " | ")
}

func formatBitrate(bps int64) string {
	const unit = 1000
	if bps < unit {
		return fmt.Sprintf("%d bps", bps)
	}
	div, exp := int64(unit), 0
	for n := bps / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	units := "kMGT"
	return fmt.Sprintf("%.1f %cbps", float64(bps)/float64(div), units[exp])
}

// drawLabel draws s at (x, y) with a one-pixel black drop shadow and a white
// foreground, using the fixed-width basic face shipped with golang.org/x/image.
func drawLabel(canvas *image.RGBA, s string, x, y int) {
	face := basicfont.Face7x13
	point := fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}

	shadowDrawer := &font.Drawer{Dst: canvas, Src: image.NewUniform(color.Black), Face: face, Dot: fixed.Point26_6{X: point.X + fixed.I(1), Y: point.Y + fixed.I(1)}}
	shadowDrawer.DrawString(s)

	textDrawer := &font.Drawer{Dst: canvas, Src: image.NewUniform(color.White), Face: face, Dot: point}
	textDrawer.DrawString(s)
}

// encode renders canvas in format, falling back to jpeg if heif encoding via
// govips is unavailable or fails (spec §4.3).
func encode(canvas *image.RGBA, format string, quality float64) ([]byte, string, error) {
	if format == "heif" {
		if data, err := encodeHEIF(canvas, quality); err == nil {
			return data, "heif", nil
		} else {
			logging.Warn("heif encode unavailable, falling back to jpeg: %v", err)
		}
	}

	var buf bytes.Buffer
	q := int(quality * 100)
	if q <= 0 || q > 100 {
		q = 85
	}
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: q}); err != nil {
		return nil, "", errs.NewMosaicError(errs.ImageGenerationFailed, "", err)
	}
	return buf.Bytes(), "jpeg", nil
}

func encodeHEIF(canvas *image.RGBA, quality float64) ([]byte, error) {
	var pngBuf bytes.Buffer
	if err := jpeg.Encode(&pngBuf, canvas, &jpeg.Options{Quality: 95}); err != nil {
		return nil, err
	}

	ref, err := vips.NewImageFromBuffer(pngBuf.Bytes())
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	q := int(quality * 100)
	if q <= 0 || q > 100 {
		q = 40
	}
	data, _, err := ref.ExportHeif(&vips.HeifExportParams{Quality: q})
	if err != nil {
		return nil, err
	}
	return data, nil
}
