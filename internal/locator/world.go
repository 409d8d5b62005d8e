package locator

// World is the read-only terrain surface the finder probes. Implementations
// must be safe for use from the search goroutine.
type World interface {
	Name() string
	// HighestSolidY returns the y of the topmost non-passable block of the
	// column, liquids included.
	HighestSolidY(x, z int) int
	// IsChunkLoaded reports whether the chunk holding block column (x, z) is
	// loaded. Probing unloaded chunks would force their generation.
	IsChunkLoaded(x, z int) bool
	MaterialAt(x, y, z int) Material
}
