// Package display implements the engine's presentation boundary with GLFW
// windows and OpenGL textures. Window-system callbacks are translated into
// explicit engine.Event values and queued for the event loop; nothing in
// here mutates engine state.
package display

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/cdown/beamview/engine"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Platform owns the GLFW windows and the pending event queue. All methods
// except Inject must run on the main thread, as GLFW requires.
type Platform struct {
	windows  []*Window
	surfaces []engine.Surface

	mu     sync.Mutex
	queued []engine.Event
}

// New initializes GLFW and creates count windows sized from the intrinsic
// page dimensions, each showing one slice of the page. The first window
// owns the GL context; the rest share it.
func New(title string, count int, pageWidth, pageHeight float64, axis engine.Axis) (*Platform, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initializing GLFW: %w", err)
	}

	p := &Platform{}
	widths, heights, err := initialGeometry(int(pageWidth), int(pageHeight), count, axis)
	if err != nil {
		glfw.Terminate()
		return nil, err
	}

	var share *glfw.Window
	for i := 0; i < count; i++ {
		name := title
		if count > 1 {
			name = fmt.Sprintf("%s [%d/%d]", title, i+1, count)
		}
		win, err := glfw.CreateWindow(widths[i], heights[i], name, nil, share)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("creating window %d: %w", i, err)
		}
		if share == nil {
			share = win
			win.MakeContextCurrent()
			if err := gl.Init(); err != nil {
				p.Close()
				return nil, fmt.Errorf("initializing OpenGL: %w", err)
			}
		}
		w := &Window{platform: p, win: win, index: i}
		w.installCallbacks()
		p.windows = append(p.windows, w)
		p.surfaces = append(p.surfaces, w)
	}
	return p, nil
}

// initialGeometry sizes the windows so that together they tile the page at
// its intrinsic size, last window taking the remainder.
func initialGeometry(pageWidth, pageHeight, count int, axis engine.Axis) ([]int, []int, error) {
	extent := pageWidth
	if axis == engine.SplitVertical {
		extent = pageHeight
	}
	regions, err := engine.Split(extent, count)
	if err != nil {
		return nil, nil, fmt.Errorf("sizing windows: %w", err)
	}

	widths := make([]int, count)
	heights := make([]int, count)
	for i, r := range regions {
		if axis == engine.SplitVertical {
			widths[i], heights[i] = pageWidth, r.Length
		} else {
			widths[i], heights[i] = r.Length, pageHeight
		}
	}
	return widths, heights, nil
}

// Surfaces implements engine.Platform.
func (p *Platform) Surfaces() []engine.Surface {
	return p.surfaces
}

// Wait blocks until the window system delivers an event or Inject wakes it.
func (p *Platform) Wait() {
	glfw.WaitEvents()
}

// WaitTimeout waits for events for at most d.
func (p *Platform) WaitTimeout(d time.Duration) {
	glfw.WaitEventsTimeout(d.Seconds())
}

// Drain returns the events queued by callbacks and Inject since last call.
func (p *Platform) Drain() []engine.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	evs := p.queued
	p.queued = nil
	return evs
}

// ShouldClose reports whether any window was asked to close.
func (p *Platform) ShouldClose() bool {
	for _, w := range p.windows {
		if w.win.ShouldClose() {
			return true
		}
	}
	return false
}

// RequestClose asks every window to close.
func (p *Platform) RequestClose() {
	for _, w := range p.windows {
		w.win.SetShouldClose(true)
	}
}

// Inject queues an event from another goroutine and wakes a blocked Wait.
func (p *Platform) Inject(ev engine.Event) {
	p.push(ev)
	glfw.PostEmptyEvent()
}

func (p *Platform) push(ev engine.Event) {
	p.mu.Lock()
	p.queued = append(p.queued, ev)
	p.mu.Unlock()
}

// Close destroys all windows and shuts GLFW down. Textures must already
// have been released by their owning cache entries.
func (p *Platform) Close() {
	for _, w := range p.windows {
		if w.win != nil {
			w.win.Destroy()
			w.win = nil
		}
	}
	p.windows = nil
	p.surfaces = nil
	glfw.Terminate()
}
