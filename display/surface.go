package display

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/cdown/beamview/engine"
)

// Window is one output surface backed by a GLFW window and its GL context.
type Window struct {
	platform *Platform
	win      *glfw.Window
	index    int

	// Saved geometry for leaving fullscreen.
	savedX, savedY, savedW, savedH int
}

// installCallbacks translates GLFW callbacks into queued engine events.
func (w *Window) installCallbacks() {
	w.win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		if ev, ok := w.keyEvent(key); ok {
			w.platform.push(ev)
		}
	})
	w.win.SetFramebufferSizeCallback(func(_ *glfw.Window, _, _ int) {
		w.platform.push(engine.Event{Kind: engine.EventResize, Surface: w.index})
	})
	w.win.SetRefreshCallback(func(_ *glfw.Window) {
		w.platform.push(engine.Event{Kind: engine.EventExpose, Surface: w.index})
	})
}

func (w *Window) keyEvent(key glfw.Key) (engine.Event, bool) {
	switch key {
	case glfw.KeyRight, glfw.KeyDown, glfw.KeyPageDown, glfw.KeySpace:
		return engine.Event{Kind: engine.EventNext}, true
	case glfw.KeyLeft, glfw.KeyUp, glfw.KeyPageUp:
		return engine.Event{Kind: engine.EventPrevious}, true
	case glfw.KeyHome:
		return engine.Event{Kind: engine.EventFirst}, true
	case glfw.KeyEnd:
		return engine.Event{Kind: engine.EventLast}, true
	case glfw.KeyF:
		return engine.Event{Kind: engine.EventToggleFullscreen, Surface: w.index}, true
	case glfw.KeyQ:
		return engine.Event{Kind: engine.EventQuit}, true
	}
	return engine.Event{}, false
}

// PixelSize implements engine.Surface.
func (w *Window) PixelSize() (int, int) {
	return w.win.GetFramebufferSize()
}

// Upload creates a GL texture on this window's context from a packed
// NRGBA image.
func (w *Window) Upload(img *image.NRGBA) (engine.Texture, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("degenerate texture %dx%d", width, height)
	}

	w.win.MakeContextCurrent()

	var id uint32
	gl.GenTextures(1, &id)
	if id == 0 {
		return nil, fmt.Errorf("allocating texture for window %d", w.index)
	}
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(width), int32(height), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	return &texture{win: w.win, id: id}, nil
}

// Present draws the texture centered and aspect-preserving, letterboxing
// whatever the region does not cover.
func (w *Window) Present(t engine.Texture, naturalWidth, naturalHeight int) {
	tex, ok := t.(*texture)
	if !ok || tex.id == 0 {
		return
	}

	winW, winH := w.win.GetFramebufferSize()
	if winW <= 0 || winH <= 0 {
		return
	}

	scale := min(float64(winW)/float64(naturalWidth), float64(winH)/float64(naturalHeight))
	dstW := int(float64(naturalWidth) * scale)
	dstH := int(float64(naturalHeight) * scale)
	dstX := (winW - dstW) / 2
	dstY := (winH - dstH) / 2

	w.win.MakeContextCurrent()
	gl.Viewport(0, 0, int32(winW), int32(winH))
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.MatrixMode(gl.PROJECTION)
	gl.LoadIdentity()
	gl.Ortho(0, float64(winW), float64(winH), 0, -1, 1)
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadIdentity()

	gl.Enable(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, tex.id)
	gl.Begin(gl.QUADS)
	gl.TexCoord2f(0, 0)
	gl.Vertex2f(float32(dstX), float32(dstY))
	gl.TexCoord2f(1, 0)
	gl.Vertex2f(float32(dstX+dstW), float32(dstY))
	gl.TexCoord2f(1, 1)
	gl.Vertex2f(float32(dstX+dstW), float32(dstY+dstH))
	gl.TexCoord2f(0, 1)
	gl.Vertex2f(float32(dstX), float32(dstY+dstH))
	gl.End()
	gl.Disable(gl.TEXTURE_2D)

	w.win.SwapBuffers()
}

// Fullscreen reports whether the window currently occupies a monitor.
func (w *Window) Fullscreen() bool {
	return w.win.GetMonitor() != nil
}

// SetFullscreen moves the window onto its monitor's full video mode, or
// restores the geometry saved when fullscreen was entered.
func (w *Window) SetFullscreen(on bool) {
	if on == w.Fullscreen() {
		return
	}
	if on {
		monitor := glfw.GetPrimaryMonitor()
		if monitor == nil {
			return
		}
		w.savedX, w.savedY = w.win.GetPos()
		w.savedW, w.savedH = w.win.GetSize()
		mode := monitor.GetVideoMode()
		w.win.SetMonitor(monitor, 0, 0, mode.Width, mode.Height, mode.RefreshRate)
		return
	}
	w.win.SetMonitor(nil, w.savedX, w.savedY, w.savedW, w.savedH, 0)
}

// texture is a GL texture tied to the context it was created on.
type texture struct {
	win *glfw.Window
	id  uint32
}

// Release deletes the GL texture. Called exactly once by the owning cache
// entry when it is evicted or invalidated.
func (t *texture) Release() {
	if t.id == 0 {
		return
	}
	t.win.MakeContextCurrent()
	gl.DeleteTextures(1, &t.id)
	t.id = 0
}
