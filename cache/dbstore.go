package cache

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"time"

	"github.com/drummonds/godeck/database"
)

// DBStore is a persistent slide cache backed by the database layer. Buffers
// are PNG-encoded on the way in and decoded on the way out, keyed by deck
// ULID, page index and target geometry so a deck re-served at a different
// size never aliases stale rasters.
//
// The Store contract has no error returns, so database failures degrade to a
// cache miss (Retrieve) or a dropped write (Put) and are only logged.
type DBStore struct {
	db     database.Repository
	deck   string
	width  int
	height int
}

// NewDBStore creates a database-backed slide cache for one deck at one target
// geometry.
func NewDBStore(db database.Repository, deckULID string, width, height int) *DBStore {
	return &DBStore{db: db, deck: deckULID, width: width, height: height}
}

// Retrieve loads and decodes the stored raster for a page index.
func (s *DBStore) Retrieve(index int) (*image.RGBA, bool) {
	raster, err := s.db.GetSlideRaster(s.deck, index, s.width, s.height)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			Logger.Warn("Slide cache read failed, treating as miss", "page", index, "error", err)
		}
		return nil, false
	}

	img, err := png.Decode(bytes.NewReader(raster.PNG))
	if err != nil {
		Logger.Warn("Stored slide raster is not decodable, treating as miss", "page", index, "error", err)
		return nil, false
	}

	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, true
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, true
}

// Put encodes and upserts the raster for a page index.
func (s *DBStore) Put(index int, img *image.RGBA) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		Logger.Error("Unable to encode slide raster for caching", "page", index, "error", err)
		return
	}

	raster := &database.SlideRaster{
		DeckULID:   s.deck,
		PageIndex:  index,
		Width:      s.width,
		Height:     s.height,
		PNG:        buf.Bytes(),
		RenderedAt: time.Now(),
	}
	if err := s.db.SaveSlideRaster(raster); err != nil {
		Logger.Error("Unable to persist slide raster", "page", index, "error", err)
	}
}
