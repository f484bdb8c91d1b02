package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/disintegration/imaging"
)

// ErrPartialCreate marks a page whose textures could not all be created.
// Nothing from such a page is ever installed in the cache.
var ErrPartialCreate = errors.New("texture creation failed partway through a page")

// scaleTolerance is the scale delta below which a resize is treated as
// jitter and the cache is kept.
const scaleTolerance = 0.01

// State is the explicit program state threaded through every engine call.
// It is only ever mutated by the goroutine running the event loop.
type State struct {
	Source   Source
	Platform Platform
	Axis     Axis

	// PageWidth and PageHeight are the intrinsic dimensions of the first
	// page in document units; the whole deck is assumed uniform, as slide
	// decks are.
	PageWidth  float64
	PageHeight float64

	CurrentPage  int
	CurrentScale float64
	Store        Store
}

// NewState opens the engine around an already-open source and platform and
// builds the cache store named by policy ("indexed" or "window").
func NewState(source Source, platform Platform, axis Axis, policy string) (*State, error) {
	w, h, err := source.PageSize(0)
	if err != nil {
		return nil, fmt.Errorf("reading first page size: %w", err)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid page dimensions %.2fx%.2f", w, h)
	}

	s := &State{
		Source:     source,
		Platform:   platform,
		Axis:       axis,
		PageWidth:  w,
		PageHeight: h,
	}
	s.CurrentScale = ComputeScale(platform.Surfaces(), w, h, axis)
	if s.CurrentScale <= 0 {
		s.CurrentScale = 1.0
	}

	switch policy {
	case "indexed":
		s.Store = newIndexedStore(source.PageCount(), s.renderEntry)
	case "window":
		s.Store = newWindowStore(source.PageCount(), s.renderEntry)
	default:
		return nil, fmt.Errorf("unknown cache policy %q", policy)
	}
	return s, nil
}

// renderEntry is the blocking rasterize → split → upload pipeline. If any
// region's texture fails, everything already created for the page is
// released and no entry is returned.
func (s *State) renderEntry(page int) (*Entry, error) {
	img, err := s.Source.Rasterize(page, s.CurrentScale)
	if err != nil {
		return nil, fmt.Errorf("rasterizing page %d: %w", page, err)
	}

	surfaces := s.Platform.Surfaces()
	bounds := img.Bounds()
	regions, err := Split(extentOn(bounds, s.Axis), len(surfaces))
	if err != nil {
		return nil, fmt.Errorf("splitting page %d: %w", page, err)
	}

	entry := &Entry{PageIndex: page, Regions: make([]RealizedRegion, 0, len(regions))}
	for i, region := range regions {
		rect := region.Rect(bounds, s.Axis)
		pixels := imaging.Crop(img, rect)
		texture, err := surfaces[i].Upload(pixels)
		if err != nil {
			entry.Release()
			return nil, fmt.Errorf("%w: page %d surface %d: %v", ErrPartialCreate, page, i, err)
		}
		entry.Regions = append(entry.Regions, RealizedRegion{
			Texture: texture,
			Width:   rect.Dx(),
			Height:  rect.Dy(),
		})
	}
	return entry, nil
}

// ComputeScale returns the smallest scale at which every surface's slice of
// the page fills its viewport on at least one axis; the most constrained
// surface wins. Surfaces reporting a degenerate size (mid-teardown) are
// skipped; 0 is returned when no usable surface remains.
func ComputeScale(surfaces []Surface, pageWidth, pageHeight float64, axis Axis) float64 {
	if pageWidth <= 0 || pageHeight <= 0 {
		return 0
	}
	n := float64(len(surfaces))
	scale := 0.0
	for _, surface := range surfaces {
		w, h := surface.PixelSize()
		if w <= 0 || h <= 0 {
			continue
		}
		var si float64
		if axis == SplitVertical {
			si = math.Max(float64(w)/pageWidth, float64(h)/(pageHeight/n))
		} else {
			si = math.Max(float64(w)/(pageWidth/n), float64(h)/pageHeight)
		}
		if si > scale {
			scale = si
		}
	}
	return scale
}

// Rescale recomputes the scale from the current surface dimensions. When
// the change exceeds the tolerance the whole cache is invalidated and the
// visible page is re-rendered synchronously, so the screen is never left
// without a valid entry. Returns whether the cache was invalidated.
func (s *State) Rescale() (bool, error) {
	newScale := ComputeScale(s.Platform.Surfaces(), s.PageWidth, s.PageHeight, s.Axis)
	if newScale <= 0 {
		// Teardown race: a surface reported a zero size.
		return false, nil
	}
	if math.Abs(newScale-s.CurrentScale) <= scaleTolerance {
		return false, nil
	}

	s.CurrentScale = newScale
	Logger.Info("Scale changed, invalidating render cache", "scale", newScale)
	s.Store.InvalidateAll()
	if err := s.Store.EnsureOrBlock(s.CurrentPage); err != nil {
		return true, fmt.Errorf("re-rendering page %d after rescale: %w", s.CurrentPage, err)
	}
	return true, nil
}

// Close releases everything the state owns. The source and platform are
// owned by the caller that opened them.
func (s *State) Close() {
	if s.Store != nil {
		s.Store.Close()
	}
}
