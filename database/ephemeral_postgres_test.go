package database

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/drummonds/godeck/config"
	"github.com/oklog/ulid/v2"
)

func TestEphemeralPostgresDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping ephemeral postgres integration test in short mode")
	}

	if Logger == nil {
		Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	db := NewRepository(config.ServerConfig{DatabaseType: "ephemeral"})
	defer db.Close()

	deckID := ulid.Make().String()

	raster := &SlideRaster{
		DeckULID:   deckID,
		PageIndex:  0,
		Width:      800,
		Height:     600,
		PNG:        []byte{0x89, 0x50},
		RenderedAt: time.Now(),
	}
	if err := db.SaveSlideRaster(raster); err != nil {
		t.Fatalf("Failed to save raster: %v", err)
	}

	retrieved, err := db.GetSlideRaster(deckID, 0, 800, 600)
	if err != nil {
		t.Fatalf("Failed to get raster: %v", err)
	}
	if retrieved.DeckULID != deckID {
		t.Errorf("Retrieved raster for wrong deck: %s", retrieved.DeckULID)
	}

	job, err := db.CreateJob(JobTypePrefetch, "Postgres job roundtrip")
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	if _, err := db.GetJob(job.ID); err != nil {
		t.Fatalf("Failed to get job back: %v", err)
	}
}
