package engine

import (
	"time"
)

// Loop is the single-threaded cooperative scheduler tying input, surface
// lifecycle, presentation, and background cache work together. It blocks
// indefinitely only when the cache is complete and nothing needs
// repainting; otherwise it polls with a bounded wait and performs at most
// one unit of render work per tick, so worst-case input latency is one
// page render, never the rest of the document.
type Loop struct {
	state    *State
	idleWait time.Duration

	// OnPageChanged, if set, is called after the current page changes
	// (history recording). Runs on the loop goroutine.
	OnPageChanged func(page int)
	// PublishStatus, if set, receives a snapshot after every state
	// change of interest to external observers (remote control).
	PublishStatus func(Status)

	pendingQuit bool
	redraw      bool
}

// NewLoop builds the event loop around an initialized state.
func NewLoop(state *State, idleWait time.Duration) *Loop {
	if idleWait <= 0 {
		idleWait = 10 * time.Millisecond
	}
	return &Loop{state: state, idleWait: idleWait}
}

// Run drives the loop until the platform reports it should close. The
// first page is rendered blocking before anything else; the rest of the
// document arrives through idle ticks.
func (l *Loop) Run() error {
	if err := l.state.Store.EnsureOrBlock(l.state.CurrentPage); err != nil {
		return err
	}
	l.present()
	l.publish()

	platform := l.state.Platform
	for !platform.ShouldClose() {
		if l.state.Store.IsComplete() && !l.redraw {
			platform.Wait()
		} else {
			// Bounded wait so a keypress can interrupt caching.
			platform.WaitTimeout(l.idleWait)
			hadCurrent := l.state.Store.Get(l.state.CurrentPage) != nil
			if l.state.Store.AdvanceIdleWork() {
				// The visible page can arrive through idle work when its
				// synchronous render failed during a rescale; repaint it.
				if !hadCurrent && l.state.Store.Get(l.state.CurrentPage) != nil {
					l.redraw = true
				}
				l.publish()
			}
		}

		for _, ev := range platform.Drain() {
			l.handle(ev)
		}

		if l.redraw {
			l.present()
			l.redraw = false
		}
	}
	return nil
}

// handle processes one event value. A rescale triggered here completes
// fully, including its synchronous re-render, before the loop resumes.
func (l *Loop) handle(ev Event) {
	if ev.Kind != EventQuit {
		l.pendingQuit = false
	}

	switch ev.Kind {
	case EventNext:
		l.navigate(l.state.CurrentPage + 1)
	case EventPrevious:
		l.navigate(l.state.CurrentPage - 1)
	case EventFirst:
		l.navigate(0)
	case EventLast:
		l.navigate(l.state.Source.PageCount() - 1)
	case EventGoTo:
		l.navigate(ev.Page)
	case EventQuit:
		if l.pendingQuit {
			l.state.Platform.RequestClose()
			return
		}
		l.pendingQuit = true
	case EventToggleFullscreen:
		surfaces := l.state.Platform.Surfaces()
		if ev.Surface < 0 || ev.Surface >= len(surfaces) {
			return
		}
		surface := surfaces[ev.Surface]
		surface.SetFullscreen(!surface.Fullscreen())
		l.rescale()
	case EventResize:
		l.rescale()
	case EventExpose:
		l.redraw = true
	}
}

// navigate moves to a page if it is within bounds and can be rendered.
// On a failed render the page index does not advance and the previous
// page stays on screen.
func (l *Loop) navigate(page int) {
	if page < 0 || page >= l.state.Source.PageCount() || page == l.state.CurrentPage {
		return
	}
	if err := l.state.Store.EnsureOrBlock(page); err != nil {
		Logger.Error("Navigation render failed, staying on current page",
			"page", page, "error", err)
		return
	}
	l.state.CurrentPage = page
	l.redraw = true
	if l.OnPageChanged != nil {
		l.OnPageChanged(page)
	}
	l.publish()
}

func (l *Loop) rescale() {
	invalidated, err := l.state.Rescale()
	if err != nil {
		Logger.Error("Rescale failed, previous frame retained", "error", err)
	}
	if invalidated {
		l.publish()
	}
	l.redraw = true
}

// present draws every region of the current page's entry onto its surface.
func (l *Loop) present() {
	entry := l.state.Store.Get(l.state.CurrentPage)
	if entry == nil {
		return
	}
	surfaces := l.state.Platform.Surfaces()
	for i, region := range entry.Regions {
		if i >= len(surfaces) {
			break
		}
		surfaces[i].Present(region.Texture, region.Width, region.Height)
	}
}

func (l *Loop) publish() {
	if l.PublishStatus == nil {
		return
	}
	l.PublishStatus(Status{
		CurrentPage:   l.state.CurrentPage,
		PageCount:     l.state.Source.PageCount(),
		Scale:         l.state.CurrentScale,
		CacheComplete: l.state.Store.IsComplete(),
	})
}
