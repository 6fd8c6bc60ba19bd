package database

import (
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// SlideRaster is one cached page rendering. Rasters are keyed by deck ULID,
// page index and target geometry so the same deck served at two sizes never
// mixes buffers.
type SlideRaster struct {
	ID         int
	DeckULID   string
	PageIndex  int
	Width      int
	Height     int
	PNG        []byte
	RenderedAt time.Time
}

// Repository defines database operations
type Repository interface {
	Close() error

	SaveSlideRaster(raster *SlideRaster) error
	GetSlideRaster(deckULID string, pageIndex, width, height int) (*SlideRaster, error)
	DeleteSlideRasters(deckULID string) error
	CountSlideRasters(deckULID string) (int, error)

	CreateJob(jobType JobType, message string) (*Job, error)
	GetJob(id ulid.ULID) (*Job, error)
	GetRecentJobs(limit, offset int) ([]Job, error)
	GetActiveJobs() ([]Job, error)
	UpdateJobStatus(id ulid.ULID, status JobStatus, message string) error
	UpdateJobProgress(id ulid.ULID, progress int, currentStep string) error
	UpdateJobError(id ulid.ULID, errorMsg string) error
	CompleteJob(id ulid.ULID, result string) error
}

// CalculateULID builds a ULID for the given timestamp
func CalculateULID(t time.Time) (ulid.ULID, error) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	newULID, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return newULID, err
	}
	return newULID, nil
}
