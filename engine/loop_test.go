package engine

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failOnceSource fails exactly one render at any scale above 1.0, so the
// synchronous re-render inside a rescale fails and the retry happens in
// idle time.
type failOnceSource struct {
	*fakeSource
	failed bool
}

func (f *failOnceSource) Rasterize(index int, scale float64) (image.Image, error) {
	if !f.failed && scale > 1.0 {
		f.failed = true
		f.renders++
		return nil, errors.New("synthetic rasterize failure")
	}
	return f.fakeSource.Rasterize(index, scale)
}

func newTestLoop(t *testing.T, policy string, script [][]Event) (*Loop, *fakeSource, *fakePlatform, []*fakeSurface) {
	t.Helper()
	source := newFakeSource(3, 2000, 800)
	surfaces := []*fakeSurface{
		{w: 1000, h: 800},
		{w: 1000, h: 800},
	}
	platform := newFakePlatform(surfaces[0], surfaces[1])
	platform.script = script
	state, err := NewState(source, platform, SplitHorizontal, policy)
	require.NoError(t, err)
	return NewLoop(state, time.Millisecond), source, platform, surfaces
}

func TestLoopWarmsCacheThenBlocks(t *testing.T) {
	// Four empty ticks: two fill pages 1 and 2, the rest must not render.
	script := [][]Event{{}, {}, {}, {}}
	loop, source, platform, _ := newTestLoop(t, "indexed", script)

	require.NoError(t, loop.Run())

	// Page 0 blocking + pages 1 and 2 in idle time, nothing after.
	assert.Equal(t, 3, source.renders)
	assert.True(t, loop.state.Store.IsComplete())
	assert.Equal(t, 2, platform.timeoutWaits, "bounded waits only while incomplete")
	assert.Equal(t, 3, platform.waits, "indefinite waits once complete")
}

func TestLoopInitialPresent(t *testing.T) {
	loop, _, _, surfaces := newTestLoop(t, "indexed", nil)

	require.NoError(t, loop.Run())

	assert.Equal(t, 1, surfaces[0].presents)
	assert.Equal(t, 1, surfaces[1].presents)
}

func TestLoopNextPastLastPageIsNoOp(t *testing.T) {
	script := [][]Event{
		{{Kind: EventLast}},
		{{Kind: EventNext}},
		{}, {},
	}
	loop, source, _, _ := newTestLoop(t, "indexed", script)

	require.NoError(t, loop.Run())

	assert.Equal(t, 2, loop.state.CurrentPage, "Next at the last page must not move")
	// Pages 0 (initial), 1 (idle) and 2 (EventLast blocking) — the no-op
	// Next must not add a render.
	assert.Equal(t, 3, source.renders)
}

func TestLoopPreviousAtFirstPageIsNoOp(t *testing.T) {
	script := [][]Event{{{Kind: EventPrevious}}, {}, {}}
	loop, _, _, _ := newTestLoop(t, "indexed", script)

	require.NoError(t, loop.Run())
	assert.Equal(t, 0, loop.state.CurrentPage)
}

func TestLoopNavigationPresentsAndNotifies(t *testing.T) {
	script := [][]Event{
		{{Kind: EventNext}},
		{{Kind: EventGoTo, Page: 0}},
	}
	loop, _, _, surfaces := newTestLoop(t, "indexed", script)

	var pages []int
	loop.OnPageChanged = func(page int) { pages = append(pages, page) }

	require.NoError(t, loop.Run())

	assert.Equal(t, []int{1, 0}, pages)
	// Initial present plus one per navigation.
	assert.Equal(t, 3, surfaces[0].presents)
}

func TestLoopFailedNavigationRetainsPage(t *testing.T) {
	script := [][]Event{{{Kind: EventNext}}}
	loop, source, _, surfaces := newTestLoop(t, "indexed", script)
	source.failPages = map[int]bool{1: true}

	require.NoError(t, loop.Run())

	assert.Equal(t, 0, loop.state.CurrentPage, "page index must not advance on render failure")
	assert.Equal(t, 1, surfaces[0].presents, "no redraw for a failed navigation")
}

func TestLoopDoublePressQuit(t *testing.T) {
	script := [][]Event{
		{{Kind: EventQuit}},
		{{Kind: EventQuit}},
		// Never reached: the platform closes on the second quit.
		{}, {}, {}, {}, {},
	}
	loop, _, platform, _ := newTestLoop(t, "indexed", script)

	require.NoError(t, loop.Run())

	assert.True(t, platform.closed)
	assert.Len(t, platform.script, 5, "loop must stop at the second quit press")
}

func TestLoopNavigationDisarmsPendingQuit(t *testing.T) {
	script := [][]Event{
		{{Kind: EventQuit}},
		{{Kind: EventNext}},
		{{Kind: EventQuit}},
		{}, {},
	}
	loop, _, platform, _ := newTestLoop(t, "indexed", script)

	require.NoError(t, loop.Run())

	assert.Len(t, platform.script, 0,
		"a quit after an intervening key starts the confirmation over")
}

func TestLoopExposeRedraws(t *testing.T) {
	script := [][]Event{{{Kind: EventExpose, Surface: 0}}}
	loop, _, _, surfaces := newTestLoop(t, "indexed", script)

	require.NoError(t, loop.Run())

	assert.Equal(t, 2, surfaces[0].presents, "expose repaints the current entry")
}

func TestLoopResizeRescalesSynchronously(t *testing.T) {
	loop, source, platform, surfaces := newTestLoop(t, "indexed", nil)
	platform.script = [][]Event{
		{}, {}, // warm pages 1 and 2
		{{Kind: EventResize, Surface: 0}},
		{}, {},
	}

	// Resize surface 0 before its event is delivered.
	surfaces[0].w = 1200

	require.NoError(t, loop.Run())

	assert.InDelta(t, 1.2, loop.state.CurrentScale, 1e-9)
	assert.NotNil(t, loop.state.Store.Get(0),
		"current page is re-rendered inside the resize handling, not on a later tick")
	// 3 warm renders, 1 synchronous re-render, 2 idle refills.
	assert.Equal(t, 6, source.renders)
}

func TestLoopRepaintsWhenIdleWorkRestoresCurrentPage(t *testing.T) {
	source := &failOnceSource{fakeSource: newFakeSource(2, 2000, 800)}
	surfaces := []*fakeSurface{
		{w: 1000, h: 800},
		{w: 1000, h: 800},
	}
	platform := newFakePlatform(surfaces[0], surfaces[1])
	platform.script = [][]Event{
		{{Kind: EventResize, Surface: 0}},
		{}, {},
	}
	state, err := NewState(source, platform, SplitHorizontal, "indexed")
	require.NoError(t, err)
	loop := NewLoop(state, time.Millisecond)

	// Resize surface 0 before its event is delivered. The synchronous
	// re-render at the new scale fails once, leaving the old frame up.
	surfaces[0].w = 1200

	require.NoError(t, loop.Run())

	assert.InDelta(t, 1.2, loop.state.CurrentScale, 1e-9)
	require.NotNil(t, loop.state.Store.Get(0))
	assert.True(t, loop.state.Store.IsComplete())
	// Initial present, then one more once the idle retry restores page 0.
	assert.Equal(t, 2, surfaces[0].presents,
		"the current page re-rendered in idle time must be repainted")
	// Page 0 and 1 at 1.0, failed re-render, retry, page 1 refill.
	assert.Equal(t, 5, source.renders)
}

func TestLoopToggleFullscreen(t *testing.T) {
	script := [][]Event{
		{{Kind: EventToggleFullscreen, Surface: 1}},
		{}, {}, {}, {},
	}
	loop, _, _, surfaces := newTestLoop(t, "indexed", script)

	require.NoError(t, loop.Run())

	assert.True(t, surfaces[1].fullscreen)
}

func TestLoopPublishesStatus(t *testing.T) {
	script := [][]Event{{{Kind: EventNext}}, {}, {}, {}}
	loop, _, _, _ := newTestLoop(t, "indexed", script)

	var last Status
	loop.PublishStatus = func(st Status) { last = st }

	require.NoError(t, loop.Run())

	assert.Equal(t, 1, last.CurrentPage)
	assert.Equal(t, 3, last.PageCount)
	assert.True(t, last.CacheComplete)
	assert.InDelta(t, 1.0, last.Scale, 1e-9)
}

func TestLoopWindowPolicyEndToEnd(t *testing.T) {
	script := [][]Event{
		{}, // fill next neighbor
		{{Kind: EventNext}},
		{}, {}, {},
	}
	loop, source, _, _ := newTestLoop(t, "window", script)

	require.NoError(t, loop.Run())

	assert.Equal(t, 1, loop.state.CurrentPage)
	assert.NotNil(t, loop.state.Store.Get(1))
	// Renders: page 0 blocking, page 1 idle; the Next is a rotation, then
	// idle fills page 2 (page 0 stays resident as the new previous).
	assert.Equal(t, 3, source.renders)
}
