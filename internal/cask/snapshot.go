package cask

// CategoryList pairs a static category with its member packages, sorted by
// popularity. Chunks is the same list pre-split into fixed-size pairs for
// side-by-side display; it references the same Package pointers.
type CategoryList struct {
	Category Category
	Casks    []*Package
	Chunks   [][]*Package
}

// Snapshot is the atomic output of one aggregation cycle. Every Package
// referenced from the installed/outdated/category/tap collections is the same
// instance held in ByID; indices never hold copies.
type Snapshot struct {
	ByID       map[string]*Package
	All        []*Package // source-feed order
	Installed  []*Package
	Outdated   []*Package
	Categories []CategoryList
	Taps       map[string][]*Package // tap id -> non-default-tap packages
}

// Get returns the package for id, or nil when absent.
func (s *Snapshot) Get(id string) *Package {
	if s == nil {
		return nil
	}
	return s.ByID[id]
}

// ChunkPairs splits pkgs into groups of two, preserving order. The final
// group holds one element when len(pkgs) is odd.
func ChunkPairs(pkgs []*Package) [][]*Package {
	chunks := make([][]*Package, 0, (len(pkgs)+1)/2)
	for i := 0; i < len(pkgs); i += 2 {
		end := i + 2
		if end > len(pkgs) {
			end = len(pkgs)
		}
		chunks = append(chunks, pkgs[i:end])
	}
	return chunks
}
