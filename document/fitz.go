package document

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/gen2brain/go-fitz"
	"github.com/oklog/ulid/v2"
)

// Presentation is a MuPDF-backed deck. It owns the fitz document and the
// library lock serializing every call into it; MuPDF is not reentrant.
type Presentation struct {
	doc  *fitz.Document
	lock *LibraryLock

	id   ulid.ULID
	path string

	// resolved once at open time, immutable afterwards
	pageWidth  float64
	pageHeight float64
	pageCount  int
}

// Open opens a deck with go-fitz. Page count and the geometry of the first
// page are resolved eagerly so later reads never touch the library.
func Open(path string) (*Presentation, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open deck %s: %w", path, err)
	}

	pres := &Presentation{
		doc:       doc,
		lock:      &LibraryLock{},
		id:        ulid.Make(),
		path:      path,
		pageCount: doc.NumPage(),
	}

	if pres.pageCount > 0 {
		bounds, err := doc.Bound(0)
		if err != nil {
			doc.Close()
			return nil, fmt.Errorf("unable to read page geometry of %s: %w", path, err)
		}
		pres.pageWidth = float64(bounds.Dx())
		pres.pageHeight = float64(bounds.Dy())
	}

	return pres, nil
}

// ID returns the ULID assigned to this deck at open time.
func (p *Presentation) ID() ulid.ULID { return p.id }

// Path returns the file the deck was opened from.
func (p *Presentation) Path() string { return p.path }

func (p *Presentation) PageWidth() float64 { return p.pageWidth }

func (p *Presentation) PageHeight() float64 { return p.pageHeight }

func (p *Presentation) PageCount() int { return p.pageCount }

// Page fetches a handle for the given page. The bounds lookup is the one
// library call here and runs under the library lock.
func (p *Presentation) Page(index int) (Page, error) {
	var bounds image.Rectangle
	err := p.lock.Do(func() error {
		var err error
		bounds, err = p.doc.Bound(index)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to fetch page %d: %w", index, err)
	}
	return &fitzPage{pres: p, number: index, bounds: bounds}, nil
}

// Close releases the fitz document.
func (p *Presentation) Close() error {
	return p.lock.Do(func() error {
		return p.doc.Close()
	})
}

// fitzPage carries only the page number and its geometry, so it stays valid
// while the library lock is not held (see the Page interface contract).
type fitzPage struct {
	pres   *Presentation
	number int
	bounds image.Rectangle
}

// RenderInto rasterizes the page at 72*scale DPI (fitz page geometry is in
// points, 72 per inch). Only the library call itself holds the lock; the
// pixel copy into dst runs after it is released.
func (pg *fitzPage) RenderInto(dst *image.RGBA, scale float64) error {
	var img image.Image
	err := pg.pres.lock.Do(func() error {
		var err error
		img, err = pg.pres.doc.ImageDPI(pg.number, 72*scale)
		return err
	})
	if err != nil {
		return fmt.Errorf("unable to render page %d: %w", pg.number, err)
	}

	// Zero offset; anything past the target bounds is cropped.
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return nil
}
