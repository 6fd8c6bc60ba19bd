package document

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"os"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
	"github.com/oklog/ulid/v2"
)

// PdfiumPresentation is a go-pdfium (WebAssembly, no CGo) backed deck. A
// single wasm worker is used and every call into it is serialized through the
// library lock, same as the fitz backend.
type PdfiumPresentation struct {
	pool     pdfium.Pool
	instance pdfium.Pdfium
	doc      references.FPDF_DOCUMENT
	lock     *LibraryLock

	id   ulid.ULID
	path string

	pageWidth  float64
	pageHeight float64
	pageCount  int
}

// OpenPdfium opens a deck with the PDFium WebAssembly backend. A single wasm
// worker is enough because the library lock serializes all rendering anyway.
func OpenPdfium(path string) (*PdfiumPresentation, error) {
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	pdfBytes, err := os.ReadFile(path)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to read deck file: %w", err)
	}

	doc, err := instance.OpenDocument(&requests.OpenDocument{
		File: &pdfBytes,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to open deck %s: %w", path, err)
	}

	pres := &PdfiumPresentation{
		pool:     pool,
		instance: instance,
		doc:      doc.Document,
		lock:     &LibraryLock{},
		id:       ulid.Make(),
		path:     path,
	}

	pageCount, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		pres.Close()
		return nil, fmt.Errorf("unable to get page count: %w", err)
	}
	pres.pageCount = pageCount.PageCount

	if pres.pageCount > 0 {
		size, err := instance.GetPageSize(&requests.GetPageSize{
			Page: pres.pageRef(0),
		})
		if err != nil {
			pres.Close()
			return nil, fmt.Errorf("unable to read page geometry of %s: %w", path, err)
		}
		pres.pageWidth = size.Width
		pres.pageHeight = size.Height
	}

	return pres, nil
}

func (p *PdfiumPresentation) ID() ulid.ULID { return p.id }

func (p *PdfiumPresentation) Path() string { return p.path }

func (p *PdfiumPresentation) PageWidth() float64 { return p.pageWidth }

func (p *PdfiumPresentation) PageHeight() float64 { return p.pageHeight }

func (p *PdfiumPresentation) PageCount() int { return p.pageCount }

// Page fetches a handle for the given page; the geometry lookup is the one
// library call and runs under the library lock.
func (p *PdfiumPresentation) Page(index int) (Page, error) {
	err := p.lock.Do(func() error {
		_, err := p.instance.GetPageSize(&requests.GetPageSize{
			Page: p.pageRef(index),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to fetch page %d: %w", index, err)
	}
	return &pdfiumPage{pres: p, number: index}, nil
}

// Close closes the document and shuts down the wasm worker pool.
func (p *PdfiumPresentation) Close() error {
	err := p.lock.Do(func() error {
		_, err := p.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
			Document: p.doc,
		})
		return err
	})
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	p.instance = nil
	return err
}

func (p *PdfiumPresentation) pageRef(index int) requests.Page {
	return requests.Page{
		ByIndex: &requests.PageByIndex{
			Document: p.doc,
			Index:    index,
		},
	}
}

type pdfiumPage struct {
	pres   *PdfiumPresentation
	number int
}

// RenderInto rasterizes the page at 72*scale DPI. The pixel copy happens
// inside the locked region: Cleanup releases the wasm memory backing the
// result image, so the pixels must be copied out before it runs.
func (pg *pdfiumPage) RenderInto(dst *image.RGBA, scale float64) error {
	err := pg.pres.lock.Do(func() error {
		pageRender, err := pg.pres.instance.RenderPageInDPI(&requests.RenderPageInDPI{
			DPI:  int(math.Round(72 * scale)),
			Page: pg.pres.pageRef(pg.number),
		})
		if err != nil {
			return err
		}
		defer pageRender.Cleanup()

		img := pageRender.Result.Image
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to render page %d: %w", pg.number, err)
	}
	return nil
}
