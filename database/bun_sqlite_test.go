package database

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/drummonds/godeck/config"
	"github.com/oklog/ulid/v2"
)

func TestBunSQLiteDatabase(t *testing.T) {
	// Initialize logger for tests
	if Logger == nil {
		Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	db := NewRepository(config.ServerConfig{DatabaseType: "sqlite", DatabaseDbname: ":memory:"})
	defer db.Close()

	t.Log("Bun SQLite database setup successfully")

	deckID := ulid.Make().String()

	t.Run("Save and retrieve slide raster", func(t *testing.T) {
		raster := &SlideRaster{
			DeckULID:   deckID,
			PageIndex:  3,
			Width:      1920,
			Height:     1080,
			PNG:        []byte{0x89, 0x50, 0x4e, 0x47},
			RenderedAt: time.Now(),
		}

		if err := db.SaveSlideRaster(raster); err != nil {
			t.Fatalf("Failed to save raster: %v", err)
		}

		retrieved, err := db.GetSlideRaster(deckID, 3, 1920, 1080)
		if err != nil {
			t.Fatalf("Failed to get raster: %v", err)
		}
		if retrieved.PageIndex != 3 || len(retrieved.PNG) != 4 {
			t.Errorf("Retrieved raster does not match: %+v", retrieved)
		}

		// Different geometry must not match
		if _, err := db.GetSlideRaster(deckID, 3, 640, 480); err != ErrNotFound {
			t.Errorf("Expected ErrNotFound for other geometry, got %v", err)
		}
	})

	t.Run("Upsert overwrites raster", func(t *testing.T) {
		raster := &SlideRaster{
			DeckULID:   deckID,
			PageIndex:  3,
			Width:      1920,
			Height:     1080,
			PNG:        []byte{0x01, 0x02},
			RenderedAt: time.Now(),
		}

		if err := db.SaveSlideRaster(raster); err != nil {
			t.Fatalf("Failed to upsert raster: %v", err)
		}

		retrieved, err := db.GetSlideRaster(deckID, 3, 1920, 1080)
		if err != nil {
			t.Fatalf("Failed to get raster after upsert: %v", err)
		}
		if len(retrieved.PNG) != 2 {
			t.Errorf("Upsert did not overwrite PNG, got %d bytes", len(retrieved.PNG))
		}

		count, err := db.CountSlideRasters(deckID)
		if err != nil {
			t.Fatalf("Failed to count rasters: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 raster after upsert, got %d", count)
		}
	})

	t.Run("Delete deck rasters", func(t *testing.T) {
		if err := db.DeleteSlideRasters(deckID); err != nil {
			t.Fatalf("Failed to delete rasters: %v", err)
		}
		count, err := db.CountSlideRasters(deckID)
		if err != nil {
			t.Fatalf("Failed to count rasters: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected 0 rasters after delete, got %d", count)
		}
	})

	t.Run("Create and update job", func(t *testing.T) {
		job, err := db.CreateJob(JobTypePrefetch, "Warm slide cache")
		if err != nil {
			t.Fatalf("Failed to create job: %v", err)
		}
		if job.Status != JobStatusPending {
			t.Errorf("Expected pending status, got %s", job.Status)
		}

		if err := db.UpdateJobStatus(job.ID, JobStatusRunning, "Rendering slides"); err != nil {
			t.Fatalf("Failed to update job status: %v", err)
		}
		if err := db.UpdateJobProgress(job.ID, 50, "Slide 5 of 10"); err != nil {
			t.Fatalf("Failed to update job progress: %v", err)
		}

		active, err := db.GetActiveJobs()
		if err != nil {
			t.Fatalf("Failed to get active jobs: %v", err)
		}
		if len(active) != 1 {
			t.Fatalf("Expected 1 active job, got %d", len(active))
		}
		if active[0].Progress != 50 {
			t.Errorf("Expected progress 50, got %d", active[0].Progress)
		}

		if err := db.CompleteJob(job.ID, `{"slidesRendered": 10}`); err != nil {
			t.Fatalf("Failed to complete job: %v", err)
		}

		completed, err := db.GetJob(job.ID)
		if err != nil {
			t.Fatalf("Failed to get job: %v", err)
		}
		if completed.Status != JobStatusCompleted {
			t.Errorf("Expected completed status, got %s", completed.Status)
		}
		if completed.CompletedAt == nil {
			t.Error("CompletedAt not set on completed job")
		}
	})

	t.Run("Failed job records error", func(t *testing.T) {
		job, err := db.CreateJob(JobTypePrefetch, "Doomed run")
		if err != nil {
			t.Fatalf("Failed to create job: %v", err)
		}

		if err := db.UpdateJobError(job.ID, "deck vanished"); err != nil {
			t.Fatalf("Failed to record job error: %v", err)
		}

		failed, err := db.GetJob(job.ID)
		if err != nil {
			t.Fatalf("Failed to get job: %v", err)
		}
		if failed.Status != JobStatusFailed || failed.Error != "deck vanished" {
			t.Errorf("Job error not recorded: %+v", failed)
		}
	})

	t.Run("Recent jobs ordering", func(t *testing.T) {
		jobs, err := db.GetRecentJobs(10, 0)
		if err != nil {
			t.Fatalf("Failed to get recent jobs: %v", err)
		}
		if len(jobs) < 2 {
			t.Fatalf("Expected at least 2 jobs, got %d", len(jobs))
		}
	})
}
