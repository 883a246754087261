// Package layout implements the Mosaic Engine's geometric layout solver
// (spec §4.1): pure, deterministic functions from a desired thumbnail count
// and mosaic dimensions to a concrete tile grid.
package layout

import (
	"fmt"
	"math"
)

// Density is one of the seven preset density factors (XXS..XXL), each
// controlling how many tiles a mosaic contains and how many segments a
// preview contains for a given source duration (spec GLOSSARY).
type Density struct {
	Name              string
	Factor            float64
	ExtractMultiplier float64
}

var (
	DensityXXS = Density{Name: "xxs", Factor: 2.5, ExtractMultiplier: 3.0}
	DensityXS  = Density{Name: "xs", Factor: 1.75, ExtractMultiplier: 2.0}
	DensityS   = Density{Name: "s", Factor: 1.25, ExtractMultiplier: 1.5}
	DensityM   = Density{Name: "m", Factor: 1.0, ExtractMultiplier: 1.0}
	DensityL   = Density{Name: "l", Factor: 0.75, ExtractMultiplier: 0.75}
	DensityXL  = Density{Name: "xl", Factor: 0.5, ExtractMultiplier: 0.5}
	DensityXXL = Density{Name: "xxl", Factor: 0.35, ExtractMultiplier: 0.35}
)

// Densities indexes the preset densities by their canonical name, used to
// resolve a MosaicConfiguration.Density/PreviewConfiguration.Density string.
var Densities = map[string]Density{
	DensityXXS.Name: DensityXXS,
	DensityXS.Name:  DensityXS,
	DensityS.Name:   DensityS,
	DensityM.Name:   DensityM,
	DensityL.Name:   DensityL,
	DensityXL.Name:  DensityXL,
	DensityXXL.Name: DensityXXL,
}

// AspectRatio is one of the four supported mosaic aspect ratios.
type AspectRatio struct {
	Name  string
	Value float64 // width / height
}

var (
	Aspect16x9 = AspectRatio{Name: "16:9", Value: 16.0 / 9.0}
	Aspect4x3  = AspectRatio{Name: "4:3", Value: 4.0 / 3.0}
	Aspect1x1  = AspectRatio{Name: "1:1", Value: 1.0}
	Aspect21x9 = AspectRatio{Name: "21:9", Value: 21.0 / 9.0}
)

// Point is an integer (x, y) tile position.
type Point struct {
	X, Y int
}

// Size is an integer width/height pair.
type Size struct {
	W, H int
}

// MosaicLayout is the computed geometry of a mosaic (spec §3).
type MosaicLayout struct {
	Rows           int
	Cols           int
	ThumbnailSize  Size
	Positions      []Point
	ThumbnailSizes []Size
	MosaicSize     Size
}

// InvalidConfigurationError is returned for a non-positive width or an
// unrecognized density factor (spec §4.1).
type InvalidConfigurationError struct {
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid mosaic configuration: %s", e.Reason)
}

const (
	thumbnailCountBase = 320.0 / 200.0
	thumbnailCountK    = 10.0
	maxThumbnailCount  = 100
)

// ThumbnailCount computes the desired tile count for a video of the given
// duration (seconds), per spec §4.1. When autoLayout is true, the count is
// rounded up to the next value evenly divisible by the grid's column count
// so the resulting mosaic is rectangular.
func ThumbnailCount(durationSeconds float64, mosaicWidth int, density Density, autoLayout bool) (int, error) {
	if density.Factor <= 0 {
		return 0, &InvalidConfigurationError{Reason: "density factor must be positive"}
	}
	if mosaicWidth <= 0 {
		return 0, &InvalidConfigurationError{Reason: "mosaic width must be positive"}
	}

	if durationSeconds < 5 {
		return 4, nil
	}

	raw := thumbnailCountBase + thumbnailCountK*math.Log(durationSeconds)
	count := int(math.Floor(raw / density.Factor))
	if count > maxThumbnailCount {
		count = maxThumbnailCount
	}
	if count < 1 {
		count = 1
	}

	if autoLayout {
		cols := int(math.Round(math.Sqrt(float64(count))))
		if cols < 1 {
			cols = 1
		}
		if count%cols != 0 {
			count = ((count / cols) + 1) * cols
		}
		if count > maxThumbnailCount {
			count = (maxThumbnailCount / cols) * cols
		}
	}

	return count, nil
}

// Layout computes the full tile grid for thumbCount tiles inside a mosaic of
// mosaicWidth pixels at the given aspect ratio, per spec §4.1.
//
// In custom mode, the first tile of the first row is reserved at twice the
// base tile size and the remaining tiles renumbered around it.
func Layout(aspect AspectRatio, thumbCount, mosaicWidth int, density Density, spacing int, custom bool) (*MosaicLayout, error) {
	if mosaicWidth <= 0 {
		return nil, &InvalidConfigurationError{Reason: "mosaic width must be positive"}
	}
	if density.Factor <= 0 {
		return nil, &InvalidConfigurationError{Reason: "density factor must be positive"}
	}
	if thumbCount < 1 {
		return nil, &InvalidConfigurationError{Reason: "thumbnail count must be at least 1"}
	}
	if spacing < 0 {
		spacing = 0
	}

	cols := int(math.Round(math.Sqrt(float64(thumbCount))))
	if cols < 1 {
		cols = 1
	}
	if cols > thumbCount {
		cols = thumbCount
	}
	rows := int(math.Ceil(float64(thumbCount) / float64(cols)))

	thumbW := float64(mosaicWidth-(cols+1)*spacing) / float64(cols)
	if thumbW < 1 {
		thumbW = 1
	}
	thumbH := thumbW / aspect.Value

	mosaicHeight := int(math.Round(float64(rows)*thumbH + float64(rows+1)*float64(spacing)))

	baseSize := Size{W: int(math.Round(thumbW)), H: int(math.Round(thumbH))}

	positions := make([]Point, 0, thumbCount)
	sizes := make([]Size, 0, thumbCount)

	idx := 0
	for row := 0; row < rows && idx < thumbCount; row++ {
		for col := 0; col < cols && idx < thumbCount; col++ {
			size := baseSize
			if custom && row == 0 && col == 0 {
				size = Size{W: baseSize.W * 2, H: baseSize.H * 2}
			}
			x := spacing + col*(baseSize.W+spacing)
			y := spacing + row*(baseSize.H+spacing)
			positions = append(positions, Point{X: x, Y: y})
			sizes = append(sizes, size)
			idx++
		}
	}

	return &MosaicLayout{
		Rows:           rows,
		Cols:           cols,
		ThumbnailSize:  baseSize,
		Positions:      positions,
		ThumbnailSizes: sizes,
		MosaicSize:     Size{W: mosaicWidth, H: mosaicHeight},
	}, nil
}

// TimestampFractions returns the fractional positions (in [0,1]) along a
// video's duration at which frames should be extracted for a mosaic of
// thumbCount tiles, per spec §4.2's three-segment split:
//
//	first-third: 20% of tiles, uniformly spaced across [5%, 38%]
//	middle:      60% of tiles, uniformly spaced across [38%, 67%]
//	last-third:  remainder,    uniformly spaced across [67%, 95%]
func TimestampFractions(thumbCount int) []float64 {
	if thumbCount < 1 {
		return nil
	}

	firstCount := int(math.Round(float64(thumbCount) * 0.2))
	middleCount := int(math.Round(float64(thumbCount) * 0.6))
	lastCount := thumbCount - firstCount - middleCount
	if lastCount < 0 {
		lastCount = 0
		middleCount = thumbCount - firstCount
	}

	fractions := make([]float64, 0, thumbCount)
	fractions = append(fractions, uniformSpace(0.05, 0.38, firstCount)...)
	fractions = append(fractions, uniformSpace(0.38, 0.67, middleCount)...)
	fractions = append(fractions, uniformSpace(0.67, 0.95, lastCount)...)

	return fractions
}

// uniformSpace returns n points uniformly spaced across [start, end]
// inclusive. n == 0 returns an empty slice; n == 1 returns the midpoint.
func uniformSpace(start, end float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{(start + end) / 2}
	}

	points := make([]float64, n)
	step := (end - start) / float64(n-1)
	for i := 0; i < n; i++ {
		points[i] = start + step*float64(i)
	}
	return points
}
