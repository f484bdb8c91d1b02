package engine

// RealizedRegion is one region of a page realized as a texture, plus its
// natural pixel size for aspect-preserving presentation.
type RealizedRegion struct {
	Texture Texture
	Width   int
	Height  int
}

// Entry is the realized representation of one page at the current scale:
// one texture per surface. It exclusively owns its textures.
type Entry struct {
	PageIndex int
	Regions   []RealizedRegion
}

// Release frees every texture the entry owns. Safe on a nil entry and
// safe to call more than once.
func (e *Entry) Release() {
	if e == nil {
		return
	}
	for i, r := range e.Regions {
		if r.Texture != nil {
			r.Texture.Release()
			e.Regions[i].Texture = nil
		}
	}
}
