package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/drummonds/godeck/cache"
	"github.com/drummonds/godeck/document"
)

// fakeDeck is an instrumented document.Metadata: it counts page-handle
// fetches and library lock acquisitions, and detects overlapping critical
// sections, so tests can verify the renderer's locking discipline.
type fakeDeck struct {
	lock       document.LibraryLock
	pageWidth  float64
	pageHeight float64
	pageCount  int

	fill        color.RGBA    // what a page render paints, alpha included
	libraryHold time.Duration // time spent inside each library call
	convertHold time.Duration // unlocked pixel-conversion time per render

	pageCalls    atomic.Int64
	renderCalls  atomic.Int64
	lockAcquired atomic.Int64
	lockActive   atomic.Int64
	lockOverlaps atomic.Int64
}

func newFakeDeck(pageWidth, pageHeight float64, pageCount int) *fakeDeck {
	return &fakeDeck{
		pageWidth:  pageWidth,
		pageHeight: pageHeight,
		pageCount:  pageCount,
		fill:       color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

func (d *fakeDeck) PageWidth() float64  { return d.pageWidth }
func (d *fakeDeck) PageHeight() float64 { return d.pageHeight }
func (d *fakeDeck) PageCount() int      { return d.pageCount }

func (d *fakeDeck) Page(index int) (document.Page, error) {
	d.pageCalls.Add(1)
	if err := d.library(func() error { return nil }); err != nil {
		return nil, err
	}
	return &fakePage{deck: d, number: index}, nil
}

// library simulates one call into a non-reentrant rendering library.
func (d *fakeDeck) library(fn func() error) error {
	return d.lock.Do(func() error {
		d.lockAcquired.Add(1)
		if d.lockActive.Add(1) != 1 {
			d.lockOverlaps.Add(1)
		}
		defer d.lockActive.Add(-1)
		if d.libraryHold > 0 {
			time.Sleep(d.libraryHold)
		}
		return fn()
	})
}

type fakePage struct {
	deck   *fakeDeck
	number int
}

func (p *fakePage) RenderInto(dst *image.RGBA, scale float64) error {
	p.deck.renderCalls.Add(1)
	if err := p.deck.library(func() error { return nil }); err != nil {
		return err
	}
	// Pixel conversion happens after the lock is released, like the real
	// backends.
	if p.deck.convertHold > 0 {
		time.Sleep(p.deck.convertHold)
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(p.deck.fill), image.Point{}, draw.Src)
	return nil
}

// countingCache is an instrumented cache.Store.
type countingCache struct {
	mu        sync.RWMutex
	entries   map[int]*image.RGBA
	retrieves atomic.Int64
	puts      atomic.Int64
}

func newCountingCache() *countingCache {
	return &countingCache{entries: make(map[int]*image.RGBA)}
}

func (c *countingCache) Retrieve(index int) (*image.RGBA, bool) {
	c.retrieves.Add(1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.entries[index]
	return img, ok
}

func (c *countingCache) Put(index int, img *image.RGBA) {
	c.puts.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[index] = img
}

func TestRenderReturnsTargetSizedBuffers(t *testing.T) {
	deck := newFakeDeck(100, 100, 5)
	renderer := New(deck, 320, 240)

	for index := 0; index < deck.PageCount(); index++ {
		img, err := renderer.Render(index)
		if err != nil {
			t.Fatalf("Render(%d) failed: %v", index, err)
		}
		if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 240 {
			t.Errorf("Render(%d) returned %v, expected 320x240", index, img.Bounds())
		}
	}
}

func TestRenderOutOfRangeHasNoSideEffects(t *testing.T) {
	deck := newFakeDeck(100, 100, 3)
	renderer := New(deck, 100, 100)
	store := newCountingCache()
	renderer.SetCache(store)

	for _, index := range []int{-1, 3, 100} {
		_, err := renderer.Render(index)

		var notFound *SlideNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("Render(%d): expected SlideNotFoundError, got %v", index, err)
		}
		if notFound.Index != index {
			t.Errorf("Error carries index %d, expected %d", notFound.Index, index)
		}
	}

	if n := store.retrieves.Load(); n != 0 {
		t.Errorf("Out-of-range render touched the cache %d times", n)
	}
	if n := deck.lockAcquired.Load(); n != 0 {
		t.Errorf("Out-of-range render acquired the library lock %d times", n)
	}
	if n := deck.pageCalls.Load(); n != 0 {
		t.Errorf("Out-of-range render fetched %d page handles", n)
	}
}

func TestCoverFitScale(t *testing.T) {
	deck := newFakeDeck(100, 100, 1)
	renderer := New(deck, 200, 100)

	if got := renderer.Scale(); got != 2.0 {
		t.Errorf("Expected scale 2.0, got %v", got)
	}
}

func TestNewPanicsOnBadPreconditions(t *testing.T) {
	expectPanic := func(name string, fn func()) {
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected panic", name)
			}
		}()
		fn()
	}

	deck := newFakeDeck(100, 100, 1)
	expectPanic("nil metadata", func() { New(nil, 10, 10) })
	expectPanic("zero width", func() { New(deck, 0, 10) })
	expectPanic("negative height", func() { New(deck, 10, -1) })
}

func TestCacheHitBypassesLibrary(t *testing.T) {
	deck := newFakeDeck(100, 100, 5)
	renderer := New(deck, 100, 100)
	store := newCountingCache()
	cached := image.NewRGBA(image.Rect(0, 0, 100, 100))
	store.entries[3] = cached
	renderer.SetCache(store)

	img, err := renderer.Render(3)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if img != cached {
		t.Error("Cache hit did not return the cached buffer instance")
	}
	if n := deck.pageCalls.Load(); n != 0 {
		t.Errorf("Cache hit fetched %d page handles", n)
	}
	if n := deck.lockAcquired.Load(); n != 0 {
		t.Errorf("Cache hit acquired the library lock %d times", n)
	}
	if n := store.puts.Load(); n != 0 {
		t.Errorf("Cache hit re-stored the buffer %d times", n)
	}
}

func TestCacheMissStoresExactlyOnce(t *testing.T) {
	deck := newFakeDeck(100, 100, 10)
	renderer := New(deck, 64, 64)
	store := newCountingCache()
	renderer.SetCache(store)

	img, err := renderer.Render(5)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if n := store.puts.Load(); n != 1 {
		t.Fatalf("Expected exactly one cache store, got %d", n)
	}
	if store.entries[5] != img {
		t.Error("Cache holds a different buffer than the one returned")
	}
	if n := deck.lockAcquired.Load(); n != 2 {
		t.Errorf("Expected two lock acquisitions on a miss, got %d", n)
	}
}

func TestRenderDeterministicWithoutCache(t *testing.T) {
	deck := newFakeDeck(100, 100, 2)
	deck.fill = color.RGBA{R: 40, G: 120, B: 200, A: 255}
	renderer := New(deck, 50, 50)

	first, err := renderer.Render(1)
	if err != nil {
		t.Fatalf("First render failed: %v", err)
	}
	second, err := renderer.Render(1)
	if err != nil {
		t.Fatalf("Second render failed: %v", err)
	}

	if first == second {
		t.Fatal("Uncached renders returned the same buffer instance")
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("Uncached renders are not pixel-identical")
	}
}

func TestTransparentPagesCompositeOverBlack(t *testing.T) {
	deck := newFakeDeck(100, 100, 1)
	// Fully transparent page: the opaque black background must show through.
	deck.fill = color.RGBA{}
	renderer := New(deck, 8, 8)

	img, err := renderer.Render(0)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got := img.RGBAAt(4, 4); got != (color.RGBA{A: 255}) {
		t.Errorf("Expected opaque black, got %v", got)
	}

	// Half-transparent white over black keeps the source channels and ends
	// up opaque (premultiplied source-over).
	deck.fill = color.RGBA{R: 128, G: 128, B: 128, A: 128}
	img, err = renderer.Render(0)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	got := img.RGBAAt(4, 4)
	if got.A != 255 {
		t.Errorf("Composited pixel is not opaque: %v", got)
	}
	if got.R != 128 || got.G != 128 || got.B != 128 {
		t.Errorf("Expected 50%% white over black to stay (128,128,128), got %v", got)
	}
}

func TestSetCacheNilDisablesCaching(t *testing.T) {
	deck := newFakeDeck(100, 100, 2)
	renderer := New(deck, 32, 32)
	store := newCountingCache()
	renderer.SetCache(store)
	renderer.SetCache(nil)

	if renderer.Cache() != nil {
		t.Fatal("Expected nil cache after disabling")
	}
	if _, err := renderer.Render(0); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if n := store.retrieves.Load() + store.puts.Load(); n != 0 {
		t.Errorf("Disabled cache was touched %d times", n)
	}
}

func TestConcurrentRendersSerializeOnlyLibraryCalls(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timing-sensitive concurrency test in short mode")
	}

	deck := newFakeDeck(100, 100, 64)
	deck.libraryHold = 2 * time.Millisecond
	deck.convertHold = 10 * time.Millisecond
	renderer := New(deck, 64, 64)

	// Baseline: one render on its own.
	start := time.Now()
	if _, err := renderer.Render(0); err != nil {
		t.Fatalf("Baseline render failed: %v", err)
	}
	single := time.Since(start)

	const workers = 8
	var wg sync.WaitGroup
	start = time.Now()
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			if _, err := renderer.Render(index); err != nil {
				errs <- fmt.Errorf("Render(%d): %w", index, err)
			}
		}(i + 1)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	elapsed := time.Since(start)

	if n := deck.lockOverlaps.Load(); n != 0 {
		t.Errorf("Library critical sections overlapped %d times", n)
	}
	// If every render were fully serialized this would take at least
	// workers*single; the unlocked conversion work must run in parallel.
	if elapsed >= time.Duration(workers)*single {
		t.Errorf("Concurrent renders fully serialized: %v for %d workers (single render %v)",
			elapsed, workers, single)
	}
}

var _ cache.Store = (*countingCache)(nil)
