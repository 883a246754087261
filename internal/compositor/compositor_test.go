package compositor

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"videopipe/internal/frames"
	"videopipe/internal/layout"
)

func solidFrame(w, h int, ts float64) *frames.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	return &frames.Frame{RequestedTime: ts, Image: img}
}

func TestCompose_EncodesJPEG(t *testing.T) {
	l, err := layout.Layout(layout.Aspect16x9, 4, 640, layout.DensityM, 4, false)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}

	tiles := make([]Tile, 4)
	for i := range tiles {
		tiles[i] = Tile{Frame: solidFrame(l.ThumbnailSize.W, l.ThumbnailSize.H, float64(i))}
	}

	data, format, err := Compose(tiles, l, VisualSettings{}, nil, "jpeg", 0.8)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %q, want jpeg", format)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("output is not valid jpeg: %v", err)
	}
}

func TestCompose_MismatchedTileCount(t *testing.T) {
	l, err := layout.Layout(layout.Aspect16x9, 4, 640, layout.DensityM, 4, false)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if _, _, err := Compose([]Tile{{Frame: solidFrame(10, 10, 0)}}, l, VisualSettings{}, nil, "jpeg", 0.8); err == nil {
		t.Error("expected error for tile/layout mismatch")
	}
}

func TestCompose_WithOverlayAndDecorations(t *testing.T) {
	l, err := layout.Layout(layout.Aspect16x9, 2, 320, layout.DensityM, 4, false)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	tiles := []Tile{
		{Frame: solidFrame(l.ThumbnailSize.W, l.ThumbnailSize.H, 0)},
		{Frame: solidFrame(l.ThumbnailSize.W, l.ThumbnailSize.H, 1)},
	}
	settings := VisualSettings{
		ShadowEnabled: true,
		ShadowOpacity: 0.5,
		ShadowRadius:  4,
		BorderEnabled: true,
		BorderWidth:   2,
	}
	overlay := &MetadataOverlay{Codec: "h264", Bitrate: 4_500_000, Custom: map[string]string{"fps": "30"}}

	data, _, err := Compose(tiles, l, settings, overlay, "jpeg", 0.8)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty encoded output")
	}
}

func TestFormatBitrate(t *testing.T) {
	tests := []struct {
		bps  int64
		want string
	}{
		{500, "500 bps"},
		{4_500_000, "4.5 Mbps"},
	}
	for _, tt := range tests {
		if got := formatBitrate(tt.bps); got != tt.want {
			t.Errorf("formatBitrate(%d) = %q, want %q", tt.bps, got, tt.want)
		}
	}
}

func TestOverlayText_JoinsWithPipe(t *testing.T) {
	overlay := &MetadataOverlay{Codec: "hevc", Custom: map[string]string{"hdr": "yes"}}
	got := overlayText(overlay)
	want := "hevc | hdr: yes"
	if got != want {
		t.Errorf("overlayText = %q, want %q", got, want)
	}
}
