package engine

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// fakeSource rasterizes synthetic pages and counts render calls.
type fakeSource struct {
	pages   int
	pageW   float64
	pageH   float64
	renders int
	// failPages makes Rasterize fail for specific pages.
	failPages map[int]bool
}

func newFakeSource(pages int, w, h float64) *fakeSource {
	return &fakeSource{pages: pages, pageW: w, pageH: h}
}

func (f *fakeSource) PageCount() int { return f.pages }

func (f *fakeSource) PageSize(index int) (float64, float64, error) {
	if index < 0 || index >= f.pages {
		return 0, 0, fmt.Errorf("page %d out of range", index)
	}
	return f.pageW, f.pageH, nil
}

func (f *fakeSource) Rasterize(index int, scale float64) (image.Image, error) {
	f.renders++
	if f.failPages[index] {
		return nil, errors.New("synthetic rasterize failure")
	}
	w := int(f.pageW * scale)
	h := int(f.pageH * scale)
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

// fakeTexture records whether it was released.
type fakeTexture struct {
	released bool
}

func (t *fakeTexture) Release() { t.released = true }

// fakeSurface is an in-memory surface with controllable size and upload
// failures.
type fakeSurface struct {
	w, h       int
	fullscreen bool

	uploads  int
	presents int
	created  []*fakeTexture
	// failUpload makes every Upload fail.
	failUpload bool
}

func (s *fakeSurface) PixelSize() (int, int) { return s.w, s.h }

func (s *fakeSurface) Upload(img *image.NRGBA) (Texture, error) {
	s.uploads++
	if s.failUpload {
		return nil, errors.New("synthetic upload failure")
	}
	t := &fakeTexture{}
	s.created = append(s.created, t)
	return t, nil
}

func (s *fakeSurface) Present(t Texture, naturalWidth, naturalHeight int) {
	s.presents++
}

func (s *fakeSurface) Fullscreen() bool      { return s.fullscreen }
func (s *fakeSurface) SetFullscreen(on bool) { s.fullscreen = on }

// fakePlatform replays a script of event batches: each Wait or
// WaitTimeout delivers the next batch, and the platform reports it should
// close once the script runs out.
type fakePlatform struct {
	surfaces []Surface
	script   [][]Event
	pending  []Event

	waits        int
	timeoutWaits int
	closed       bool
}

func newFakePlatform(surfaces ...Surface) *fakePlatform {
	return &fakePlatform{surfaces: surfaces}
}

func (p *fakePlatform) Surfaces() []Surface { return p.surfaces }

func (p *fakePlatform) step() {
	if len(p.script) == 0 {
		p.closed = true
		return
	}
	p.pending = append(p.pending, p.script[0]...)
	p.script = p.script[1:]
}

func (p *fakePlatform) Wait() {
	p.waits++
	p.step()
}

func (p *fakePlatform) WaitTimeout(d time.Duration) {
	p.timeoutWaits++
	p.step()
}

func (p *fakePlatform) Drain() []Event {
	evs := p.pending
	p.pending = nil
	return evs
}

func (p *fakePlatform) ShouldClose() bool { return p.closed }
func (p *fakePlatform) RequestClose()     { p.closed = true }

func (p *fakePlatform) Inject(ev Event) {
	p.pending = append(p.pending, ev)
}
