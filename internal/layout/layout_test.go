package layout

import "testing"

func TestThumbnailCount_ShortDuration(t *testing.T) {
	count, err := ThumbnailCount(3.0, 1280, DensityM, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4 for duration < 5s", count)
	}
}

func TestThumbnailCount_Boundary(t *testing.T) {
	count, err := ThumbnailCount(5.0, 1280, DensityM, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count == 4 {
		t.Errorf("count = %d, expected the formula to apply at exactly 5s, not the <5s shortcut", count)
	}
}

func TestThumbnailCount_CapAt100(t *testing.T) {
	count, err := ThumbnailCount(10_000_000, 1280, DensityXXL, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count > 100 {
		t.Errorf("count = %d, want <= 100", count)
	}
}

func TestThumbnailCount_InvalidWidth(t *testing.T) {
	if _, err := ThumbnailCount(60, 0, DensityM, false); err == nil {
		t.Error("expected error for zero mosaic width")
	}
}

func TestThumbnailCount_InvalidDensity(t *testing.T) {
	if _, err := ThumbnailCount(60, 1280, Density{Factor: 0}, false); err == nil {
		t.Error("expected error for zero density factor")
	}
}

func TestThumbnailCount_DensityOrdering(t *testing.T) {
	dense, err := ThumbnailCount(600, 1280, DensityXXL, false)
	if err != nil {
		t.Fatal(err)
	}
	sparse, err := ThumbnailCount(600, 1280, DensityXXS, false)
	if err != nil {
		t.Fatal(err)
	}
	if dense <= sparse {
		t.Errorf("XXL density count %d should exceed XXS density count %d for the same duration", dense, sparse)
	}
}

func TestLayout_PositionsMatchSizes(t *testing.T) {
	l, err := Layout(Aspect16x9, 12, 1280, DensityM, 4, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(l.Positions) != 12 || len(l.ThumbnailSizes) != 12 {
		t.Fatalf("got %d positions / %d sizes, want 12/12", len(l.Positions), len(l.ThumbnailSizes))
	}
}

func TestLayout_TilesWithinBounds(t *testing.T) {
	l, err := Layout(Aspect16x9, 16, 1280, DensityM, 4, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, pos := range l.Positions {
		size := l.ThumbnailSizes[i]
		if pos.X+size.W > l.MosaicSize.W {
			t.Errorf("tile %d exceeds mosaic width: x=%d w=%d mosaicW=%d", i, pos.X, size.W, l.MosaicSize.W)
		}
		if pos.Y+size.H > l.MosaicSize.H {
			t.Errorf("tile %d exceeds mosaic height: y=%d h=%d mosaicH=%d", i, pos.Y, size.H, l.MosaicSize.H)
		}
	}
}

func TestLayout_CustomModeDoublesFirstTile(t *testing.T) {
	l, err := Layout(Aspect16x9, 12, 1280, DensityM, 4, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base := l.ThumbnailSize
	first := l.ThumbnailSizes[0]
	if first.W != base.W*2 || first.H != base.H*2 {
		t.Errorf("first tile size = %+v, want double base size %+v", first, base)
	}
	for i := 1; i < len(l.ThumbnailSizes); i++ {
		if l.ThumbnailSizes[i] != base {
			t.Errorf("tile %d size = %+v, want base size %+v", i, l.ThumbnailSizes[i], base)
		}
	}
}

func TestLayout_MatchesMosaicDeterminismScenario(t *testing.T) {
	count, err := ThumbnailCount(60, 5120, DensityM, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 42 {
		t.Fatalf("thumb_count = %d, want 42", count)
	}

	l, err := Layout(Aspect16x9, count, 5120, DensityM, 4, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Cols != 6 {
		t.Errorf("cols = %d, want 6", l.Cols)
	}
	if l.Rows != 7 {
		t.Errorf("rows = %d, want 7", l.Rows)
	}
}

func TestLayout_InvalidInputs(t *testing.T) {
	if _, err := Layout(Aspect16x9, 0, 1280, DensityM, 4, false); err == nil {
		t.Error("expected error for zero thumbnail count")
	}
	if _, err := Layout(Aspect16x9, 10, 0, DensityM, 4, false); err == nil {
		t.Error("expected error for zero mosaic width")
	}
}

func TestTimestampFractions_CountAndRange(t *testing.T) {
	fractions := TimestampFractions(10)
	if len(fractions) != 10 {
		t.Fatalf("got %d fractions, want 10", len(fractions))
	}
	for _, f := range fractions {
		if f < 0.05 || f > 0.95 {
			t.Errorf("fraction %v out of [0.05, 0.95] range", f)
		}
	}
}

func TestTimestampFractions_Monotonic(t *testing.T) {
	fractions := TimestampFractions(9)
	for i := 1; i < len(fractions); i++ {
		if fractions[i] < fractions[i-1] {
			t.Errorf("fractions not monotonically increasing at index %d: %v < %v", i, fractions[i], fractions[i-1])
		}
	}
}

func TestTimestampFractions_ZeroCount(t *testing.T) {
	if got := TimestampFractions(0); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestDensities_LookupByName(t *testing.T) {
	for _, name := range []string{"xxs", "xs", "s", "m", "l", "xl", "xxl"} {
		if _, ok := Densities[name]; !ok {
			t.Errorf("missing density preset %q", name)
		}
	}
}
