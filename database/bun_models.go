package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunSlideRaster represents the slide_rasters table for Bun ORM
type BunSlideRaster struct {
	bun.BaseModel `bun:"table:slide_rasters,alias:sr"`

	ID         int       `bun:"id,pk,autoincrement"`
	DeckULID   string    `bun:"deck_ulid,notnull"`
	PageIndex  int       `bun:"page_index,notnull"`
	Width      int       `bun:"width,notnull"`
	Height     int       `bun:"height,notnull"`
	PNG        []byte    `bun:"png,notnull"`
	RenderedAt time.Time `bun:"rendered_at,notnull,default:current_timestamp"`
}

// ToSlideRaster converts BunSlideRaster to SlideRaster
func (br *BunSlideRaster) ToSlideRaster() *SlideRaster {
	return &SlideRaster{
		ID:         br.ID,
		DeckULID:   br.DeckULID,
		PageIndex:  br.PageIndex,
		Width:      br.Width,
		Height:     br.Height,
		PNG:        br.PNG,
		RenderedAt: br.RenderedAt,
	}
}

// FromSlideRaster converts SlideRaster to BunSlideRaster
func FromSlideRaster(raster *SlideRaster) *BunSlideRaster {
	return &BunSlideRaster{
		ID:         raster.ID,
		DeckULID:   raster.DeckULID,
		PageIndex:  raster.PageIndex,
		Width:      raster.Width,
		Height:     raster.Height,
		PNG:        raster.PNG,
		RenderedAt: raster.RenderedAt,
	}
}

// BunJob represents the jobs table for Bun ORM
type BunJob struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID          string     `bun:"id,pk"` // ULID as string
	Type        string     `bun:"type,notnull"`
	Status      string     `bun:"status,default:'pending'"`
	Progress    int        `bun:"progress,default:0"`
	CurrentStep string     `bun:"current_step,default:''"`
	TotalSteps  int        `bun:"total_steps,default:0"`
	Message     string     `bun:"message,default:''"`
	Error       string     `bun:"error,nullzero"`
	Result      string     `bun:"result,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	StartedAt   *time.Time `bun:"started_at,nullzero"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
}

// ToJob converts BunJob to Job
func (bj *BunJob) ToJob() (*Job, error) {
	parsedULID, err := ulid.Parse(bj.ID)
	if err != nil {
		return nil, err
	}

	return &Job{
		ID:          parsedULID,
		Type:        JobType(bj.Type),
		Status:      JobStatus(bj.Status),
		Progress:    bj.Progress,
		CurrentStep: bj.CurrentStep,
		TotalSteps:  bj.TotalSteps,
		Message:     bj.Message,
		Error:       bj.Error,
		Result:      bj.Result,
		CreatedAt:   bj.CreatedAt,
		UpdatedAt:   bj.UpdatedAt,
		StartedAt:   bj.StartedAt,
		CompletedAt: bj.CompletedAt,
	}, nil
}

// FromJob converts Job to BunJob
func FromJob(job *Job) *BunJob {
	return &BunJob{
		ID:          job.ID.String(),
		Type:        string(job.Type),
		Status:      string(job.Status),
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		TotalSteps:  job.TotalSteps,
		Message:     job.Message,
		Error:       job.Error,
		Result:      job.Result,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}
