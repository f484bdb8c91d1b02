package engine

// renderFunc performs one blocking render of a page into a cache entry.
type renderFunc func(page int) (*Entry, error)

// Store is the render cache. Both shapes — the whole-document indexed
// store and the sliding window — sit behind this interface; the event
// loop cannot tell them apart.
type Store interface {
	// Get returns the resident entry for a page, or nil.
	Get(page int) *Entry
	// EnsureOrBlock makes the page resident, performing a blocking render
	// if needed. On error no entry is installed.
	EnsureOrBlock(page int) error
	// AdvanceIdleWork performs at most one unit of background rendering
	// and reports whether there was anything to do. One unit per idle
	// tick keeps worst-case input latency bounded by a single render.
	AdvanceIdleWork() bool
	// IsComplete reports that no background work remains.
	IsComplete() bool
	// InvalidateAll releases every entry and resets scheduling state.
	InvalidateAll()
	// Close releases all resources on shutdown.
	Close()
}
