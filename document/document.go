// Package document wraps the underlying page-rendering libraries (MuPDF via
// go-fitz, PDFium via go-pdfium) behind a small metadata contract. Neither
// library is safe for concurrent invocation, so every call into one is
// serialized through a LibraryLock owned by the open deck.
package document

import (
	"image"

	"github.com/oklog/ulid/v2"
)

// Metadata exposes the already-resolved geometry of a deck and hands out
// opaque page handles. Page dimensions are in document units (points) and do
// not change for the lifetime of the deck.
type Metadata interface {
	PageWidth() float64
	PageHeight() float64
	PageCount() int

	// Page performs exactly one call into the rendering library (under the
	// deck's library lock) and returns a handle for the given zero-based
	// page index.
	Page(index int) (Page, error)
}

// Page is an opaque handle for a single page of an open deck.
//
// A handle stays valid after the library lock is released: implementations
// carry only the page number and its geometry, never lock-held library
// state. If a backend ever hands out handles tied to lock-held state this
// assumption breaks and the handle fetch and render must share one critical
// section.
type Page interface {
	// RenderInto rasterizes the page at the given scale (document units to
	// pixels) into dst at a zero offset, performing exactly one library call
	// under the deck's library lock. Alpha is preserved; compositing onto a
	// background is the caller's job.
	RenderInto(dst *image.RGBA, scale float64) error
}

// Deck couples page metadata with the identity and origin the serving layer
// needs.
type Deck interface {
	Metadata
	ID() ulid.ULID
	Path() string
	Close() error
}
