package engine

import (
	"errors"
	"fmt"
	"image"
)

// Axis is the direction the page image is sliced along.
type Axis int

const (
	// SplitHorizontal slices the image into side-by-side columns.
	SplitHorizontal Axis = iota
	// SplitVertical slices the image into stacked rows.
	SplitVertical
)

// ParseAxis maps a config string to an Axis.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "horizontal":
		return SplitHorizontal, nil
	case "vertical":
		return SplitVertical, nil
	}
	return 0, fmt.Errorf("unknown split axis %q", s)
}

// ErrDegenerateSplit is returned when the image is too small for every
// surface to receive a non-empty region.
var ErrDegenerateSplit = errors.New("image too small to split across surfaces")

// Region is one contiguous slice of a rasterized page along the split axis.
type Region struct {
	Offset int
	Length int
}

// Split partitions an extent into n contiguous, ordered, non-overlapping
// regions that exactly tile it. Every region gets extent/n; the last one
// additionally gets the remainder.
func Split(extent, n int) ([]Region, error) {
	if n < 1 || extent < n {
		return nil, fmt.Errorf("%w: extent %d across %d surfaces", ErrDegenerateSplit, extent, n)
	}
	base := extent / n
	regions := make([]Region, n)
	for i := range regions {
		regions[i] = Region{Offset: i * base, Length: base}
	}
	regions[n-1].Length = extent - base*(n-1)
	return regions, nil
}

// Rect maps a region to the pixel rectangle it covers within bounds.
func (r Region) Rect(bounds image.Rectangle, axis Axis) image.Rectangle {
	if axis == SplitVertical {
		return image.Rect(bounds.Min.X, bounds.Min.Y+r.Offset, bounds.Max.X, bounds.Min.Y+r.Offset+r.Length)
	}
	return image.Rect(bounds.Min.X+r.Offset, bounds.Min.Y, bounds.Min.X+r.Offset+r.Length, bounds.Max.Y)
}

// extentOn returns the image extent along the split axis.
func extentOn(bounds image.Rectangle, axis Axis) int {
	if axis == SplitVertical {
		return bounds.Dy()
	}
	return bounds.Dx()
}
