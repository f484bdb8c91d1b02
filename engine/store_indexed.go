package engine

// indexedStore keeps one optional entry per page for the whole document.
// Entries are filled monotonically in idle time and never evicted except
// by a full invalidation, so after one warm pass no navigation ever
// blocks. Memory grows with the document, which is acceptable for slide
// decks of realistic size.
type indexedStore struct {
	entries []*Entry
	render  renderFunc
	filled  int
}

func newIndexedStore(pageCount int, render renderFunc) *indexedStore {
	return &indexedStore{
		entries: make([]*Entry, pageCount),
		render:  render,
	}
}

func (st *indexedStore) Get(page int) *Entry {
	if page < 0 || page >= len(st.entries) {
		return nil
	}
	return st.entries[page]
}

func (st *indexedStore) EnsureOrBlock(page int) error {
	if st.entries[page] != nil {
		return nil
	}
	Logger.Warn("Page not cached, performing blocking render", "page", page)
	entry, err := st.render(page)
	if err != nil {
		return err
	}
	st.install(page, entry)
	return nil
}

// AdvanceIdleWork renders the first missing page, if any. A failed render
// leaves the slot empty; it will be retried on a later tick.
func (st *indexedStore) AdvanceIdleWork() bool {
	if st.IsComplete() {
		return false
	}
	for i, entry := range st.entries {
		if entry != nil {
			continue
		}
		rendered, err := st.render(i)
		if err != nil {
			Logger.Error("Background render failed, will retry", "page", i, "error", err)
			return true
		}
		st.install(i, rendered)
		Logger.Debug("Cached page", "page", i)
		return true
	}
	return false
}

func (st *indexedStore) install(page int, entry *Entry) {
	st.entries[page] = entry
	st.filled++
	if st.IsComplete() {
		Logger.Info("Caching complete", "pages", len(st.entries))
	}
}

func (st *indexedStore) IsComplete() bool {
	return st.filled == len(st.entries)
}

func (st *indexedStore) InvalidateAll() {
	for i, entry := range st.entries {
		if entry != nil {
			entry.Release()
			st.entries[i] = nil
		}
	}
	st.filled = 0
}

func (st *indexedStore) Close() {
	st.InvalidateAll()
}
