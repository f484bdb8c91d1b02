package engine

// windowStore keeps at most three resident entries: the current page and
// its two neighbors. Moving to an adjacent page is a pure slot rotation;
// jumping further frees everything and blocks on a single render. Memory
// stays bounded regardless of document size, at the cost of one blocking
// render on every non-adjacent jump.
type windowStore struct {
	prev, cur, next *Entry
	current         int
	pageCount       int
	render          renderFunc
	// started distinguishes a fresh store from one positioned at page 0.
	started bool
}

func newWindowStore(pageCount int, render renderFunc) *windowStore {
	return &windowStore{
		pageCount: pageCount,
		render:    render,
	}
}

func (st *windowStore) Get(page int) *Entry {
	for _, entry := range []*Entry{st.prev, st.cur, st.next} {
		if entry != nil && entry.PageIndex == page {
			return entry
		}
	}
	return nil
}

// EnsureOrBlock shifts the window so that page occupies the current slot.
// Adjacent moves rotate slots, rendering only if the incoming slot is
// empty; anything else is the slow path: render the target, then drop the
// old window. Renders always happen before the move commits, so a failure
// leaves the window exactly where it was.
func (st *windowStore) EnsureOrBlock(page int) error {
	switch {
	case st.started && page == st.current:
		// Repositioning in place; only render if the slot is empty
		// (fresh after an invalidation).
		if st.cur == nil {
			entry, err := st.render(page)
			if err != nil {
				return err
			}
			st.cur = entry
		}
		return nil
	case st.started && page == st.current+1:
		incoming := st.next
		if incoming == nil {
			entry, err := st.render(page)
			if err != nil {
				return err
			}
			incoming = entry
		}
		st.prev.Release()
		st.prev, st.cur, st.next = st.cur, incoming, nil
		st.current = page
		return nil
	case st.started && page == st.current-1:
		incoming := st.prev
		if incoming == nil {
			entry, err := st.render(page)
			if err != nil {
				return err
			}
			incoming = entry
		}
		st.next.Release()
		st.prev, st.cur, st.next = nil, incoming, st.cur
		st.current = page
		return nil
	default:
		Logger.Warn("Page outside cache window, performing blocking render", "page", page)
		entry, err := st.render(page)
		if err != nil {
			return err
		}
		st.InvalidateAll()
		st.cur = entry
		st.current = page
		st.started = true
		return nil
	}
}

// AdvanceIdleWork fills one missing neighbor of the current page, next
// before previous since playback usually moves forward.
func (st *windowStore) AdvanceIdleWork() bool {
	if !st.started || st.cur == nil {
		return false
	}
	if st.next == nil && st.current+1 < st.pageCount {
		entry, err := st.render(st.current + 1)
		if err != nil {
			Logger.Error("Background render failed, will retry", "page", st.current+1, "error", err)
			return true
		}
		st.next = entry
		Logger.Debug("Cached page", "page", st.current+1)
		return true
	}
	if st.prev == nil && st.current-1 >= 0 {
		entry, err := st.render(st.current - 1)
		if err != nil {
			Logger.Error("Background render failed, will retry", "page", st.current-1, "error", err)
			return true
		}
		st.prev = entry
		Logger.Debug("Cached page", "page", st.current-1)
		return true
	}
	return false
}

func (st *windowStore) IsComplete() bool {
	if !st.started || st.cur == nil {
		return false
	}
	if st.next == nil && st.current+1 < st.pageCount {
		return false
	}
	if st.prev == nil && st.current-1 >= 0 {
		return false
	}
	return true
}

func (st *windowStore) InvalidateAll() {
	st.prev.Release()
	st.cur.Release()
	st.next.Release()
	st.prev, st.cur, st.next = nil, nil, nil
}

func (st *windowStore) Close() {
	st.InvalidateAll()
}
