// Package cache provides the slide cache contract consumed by the renderer,
// plus the in-memory and database-backed implementations.
package cache

import (
	"image"
	"log/slog"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Store is a page-index keyed cache of rendered slide buffers.
//
// Implementations must be safe for concurrent Retrieve/Put calls and must
// never touch the document library lock. Eviction, capacity and persistence
// policy are entirely the implementation's concern.
type Store interface {
	// Retrieve returns the cached buffer for a page index, if present.
	Retrieve(index int) (*image.RGBA, bool)

	// Put stores the buffer for a page index, overwriting any previous
	// entry. Cached buffers are aliased by callers of the renderer and must
	// never be mutated afterwards.
	Put(index int, img *image.RGBA)
}
