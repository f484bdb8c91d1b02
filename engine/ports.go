// Package engine is the paginated render cache: it turns page indexes and
// a shared scale factor into per-window textures, prefetches pages during
// idle time one unit at a time, and throws the whole cache away when a
// window resize changes the scale. All mutation happens on the single
// goroutine running the event loop.
package engine

import (
	"image"
	"log/slog"
	"time"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// Source produces rasterized page images. Implemented by the document
// package; fakes stand in for it in tests.
type Source interface {
	PageCount() int
	// PageSize reports the intrinsic page size in document units (points).
	PageSize(index int) (w, h float64, err error)
	// Rasterize renders one page at the given scale. Slow; the scheduler
	// treats one call as one indivisible unit of work.
	Rasterize(index int, scale float64) (image.Image, error)
}

// Texture is a realized per-window image region. The cache entry that
// created it owns it exclusively and must Release it before dropping it.
type Texture interface {
	Release()
}

// Surface is one output window. Implemented by the display package.
type Surface interface {
	// PixelSize reports the framebuffer size. A zero or negative size
	// means the surface is mid-teardown and must not drive a rescale.
	PixelSize() (w, h int)
	// Upload realizes a packed image as a texture on this surface.
	Upload(img *image.NRGBA) (Texture, error)
	// Present draws a texture letterboxed and centered, preserving the
	// aspect ratio given by its natural dimensions.
	Present(t Texture, naturalWidth, naturalHeight int)
	Fullscreen() bool
	SetFullscreen(on bool)
}

// Platform is the windowing system boundary: it owns the surfaces and
// delivers input, resize, and expose callbacks as explicit event values.
type Platform interface {
	Surfaces() []Surface
	// Wait blocks until at least one event arrives. Only used when the
	// cache is complete and no redraw is pending.
	Wait()
	// WaitTimeout waits for events for at most d, so background cache
	// work cannot starve input and input cannot starve cache work.
	WaitTimeout(d time.Duration)
	// Drain returns the events queued since the last call.
	Drain() []Event
	ShouldClose() bool
	RequestClose()
	// Inject queues an event from another goroutine (remote control,
	// auto-advance) and wakes a blocked Wait.
	Inject(ev Event)
}

// EventKind discriminates loop events.
type EventKind int

const (
	EventNext EventKind = iota
	EventPrevious
	EventFirst
	EventLast
	EventGoTo
	EventToggleFullscreen
	EventQuit
	EventResize
	EventExpose
)

// Event is one discrete input or surface lifecycle notification.
type Event struct {
	Kind EventKind
	// Page is the target index for EventGoTo.
	Page int
	// Surface is the originating surface index for EventToggleFullscreen,
	// EventResize and EventExpose.
	Surface int
}

// Status is the loop's published snapshot for external observers.
type Status struct {
	CurrentPage   int     `json:"currentPage"`
	PageCount     int     `json:"pageCount"`
	Scale         float64 `json:"scale"`
	CacheComplete bool    `json:"cacheComplete"`
}
