// Package render implements the slide rendering core: it turns a page index
// into a fixed-size opaque raster, serving from or filling a pluggable cache,
// while all calls into the underlying rendering library stay serialized
// behind the deck's library lock.
package render

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"

	"github.com/drummonds/godeck/cache"
	"github.com/drummonds/godeck/document"
)

// Renderer produces a fixed-size raster for a zero-based page index.
type Renderer interface {
	Render(index int) (*image.RGBA, error)
}

// CacheAware is the optional caching capability a Renderer may offer. The
// cache can be swapped or disabled (nil) at any time; in-flight renders keep
// whatever store they started with.
type CacheAware interface {
	SetCache(store cache.Store)
	Cache() cache.Store
}

// SlideNotFoundError reports a page index outside [0, PageCount). It is the
// only error kind raised by the core itself; library failures are wrapped and
// passed through.
type SlideNotFoundError struct {
	Index int
}

func (e *SlideNotFoundError) Error() string {
	return fmt.Sprintf("slide %d not found", e.Index)
}

// SlideRenderer renders deck pages onto an opaque black background at a fixed
// target size. It is stateless across calls apart from the cache reference,
// which is mutable configuration. The deck metadata is borrowed and must
// outlive the renderer.
type SlideRenderer struct {
	meta   document.Metadata
	width  int
	height int
	scale  float64

	mu    sync.RWMutex // guards store only
	store cache.Store
}

var (
	_ Renderer   = (*SlideRenderer)(nil)
	_ CacheAware = (*SlideRenderer)(nil)
)

// New creates a renderer for the given deck and target size. The scaling
// factor is fixed at construction as the larger of the two axis ratios
// ("cover fit"): the page fills the whole target area and overflow on the
// other axis is cropped, never letterboxed.
//
// A nil metadata or non-positive target size is a programming error and
// panics.
func New(meta document.Metadata, targetWidth, targetHeight int) *SlideRenderer {
	if meta == nil {
		panic("render: nil deck metadata")
	}
	if targetWidth <= 0 || targetHeight <= 0 {
		panic(fmt.Sprintf("render: invalid target size %dx%d", targetWidth, targetHeight))
	}

	scale := math.Max(
		float64(targetWidth)/meta.PageWidth(),
		float64(targetHeight)/meta.PageHeight(),
	)

	return &SlideRenderer{
		meta:   meta,
		width:  targetWidth,
		height: targetHeight,
		scale:  scale,
	}
}

// SetCache installs, replaces or (with nil) disables the cache.
func (r *SlideRenderer) SetCache(store cache.Store) {
	r.mu.Lock()
	r.store = store
	r.mu.Unlock()
}

// Cache returns the current cache, or nil when caching is disabled.
func (r *SlideRenderer) Cache() cache.Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store
}

// Scale returns the document-units-to-pixels factor computed at construction.
func (r *SlideRenderer) Scale() float64 { return r.scale }

// TargetSize returns the fixed raster size in pixels.
func (r *SlideRenderer) TargetSize() (width, height int) { return r.width, r.height }

// Render produces the raster for a page. The bounds check runs before any
// cache or lock interaction, so a SlideNotFoundError has zero side effects. A
// cache hit returns the cached buffer as-is, without touching the deck. On a
// miss the deck's library is called twice, each time under its lock for the
// minimum duration: once to fetch the page handle, once to rasterize it. The
// buffer handed back may also be referenced by the cache and must be treated
// as read-only.
func (r *SlideRenderer) Render(index int) (*image.RGBA, error) {
	if index < 0 || index >= r.meta.PageCount() {
		return nil, &SlideNotFoundError{Index: index}
	}

	store := r.Cache()
	if store != nil {
		if img, ok := store.Retrieve(index); ok {
			return img, nil
		}
	}

	page, err := r.meta.Page(index)
	if err != nil {
		return nil, fmt.Errorf("fetching page handle: %w", err)
	}

	// Buffer allocation and the background fill are pure work and stay
	// outside the library lock. The fill must be opaque: decks routinely
	// declare transparent page backgrounds, and compositing those over an
	// uninitialized buffer would leak garbage pixels.
	buffer := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	draw.Draw(buffer, buffer.Bounds(), image.Black, image.Point{}, draw.Src)

	overlay := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	if err := page.RenderInto(overlay, r.scale); err != nil {
		return nil, fmt.Errorf("rendering page %d: %w", index, err)
	}

	// Source-over at the origin; the overlay covers the whole target, so the
	// black background shows through only where the page was transparent.
	draw.Draw(buffer, buffer.Bounds(), overlay, image.Point{}, draw.Over)

	if store != nil {
		store.Put(index, buffer)
	}

	return buffer, nil
}
