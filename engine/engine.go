package engine

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/ledongthuc/pdf"
	"github.com/oklog/ulid/v2"

	"github.com/drummonds/godeck/cache"
	"github.com/drummonds/godeck/config"
	"github.com/drummonds/godeck/database"
	"github.com/drummonds/godeck/document"
	"github.com/drummonds/godeck/render"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Deck         document.Deck
	Renderer     render.Renderer

	// MemCache is set when the memory cache backend is active; it exists
	// alongside the render.CacheAware view purely for the stats endpoint.
	MemCache *cache.Memory
}

// prefetchJobFunc renders every slide of the deck once so the cache is warm
// before a viewer asks for anything.
func (serverHandler *ServerHandler) prefetchJobFunc() {
	// Add panic recovery to prevent entire application crash
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in prefetch job", "panic", r)
		}
	}()

	pageCount := serverHandler.Deck.PageCount()
	Logger.Info("Starting prefetch job", "pages", pageCount)

	rendered := 0
	for index := 0; index < pageCount; index++ {
		if _, err := serverHandler.Renderer.Render(index); err != nil {
			Logger.Error("Prefetch render failed", "page", index, "error", err)
			continue
		}
		rendered++
	}

	Logger.Info("Prefetch job finished", "rendered", rendered, "pages", pageCount)
}

// prefetchJobFuncWithTracking wraps the prefetch job with progress tracking
func (serverHandler *ServerHandler) prefetchJobFuncWithTracking(jobID ulid.ULID) {
	// Add panic recovery and update job status on panic
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in prefetch job", "panic", r, "jobID", jobID)
			serverHandler.DB.UpdateJobError(jobID, fmt.Sprintf("Panic: %v", r))
		}
	}()

	if err := serverHandler.DB.UpdateJobStatus(jobID, database.JobStatusRunning, "Rendering slides"); err != nil {
		Logger.Error("Failed to update job status", "error", err)
	}

	pageCount := serverHandler.Deck.PageCount()
	if pageCount == 0 {
		serverHandler.DB.CompleteJob(jobID, `{"slidesRendered": 0, "message": "Deck has no pages"}`)
		return
	}

	rendered := 0
	errorCount := 0
	for index := 0; index < pageCount; index++ {
		if _, err := serverHandler.Renderer.Render(index); err != nil {
			Logger.Error("Prefetch render failed", "page", index, "error", err, "jobID", jobID)
			errorCount++
		} else {
			rendered++
		}

		progress := ((index + 1) * 100) / pageCount
		step := fmt.Sprintf("Slide %d of %d", index+1, pageCount)
		if err := serverHandler.DB.UpdateJobProgress(jobID, progress, step); err != nil {
			Logger.Error("Failed to update job progress", "error", err)
		}
	}

	result := fmt.Sprintf(`{"slidesRendered": %d, "errors": %d}`, rendered, errorCount)
	if errorCount > 0 && rendered == 0 {
		serverHandler.DB.UpdateJobError(jobID, fmt.Sprintf("All %d renders failed", errorCount))
		return
	}
	if err := serverHandler.DB.CompleteJob(jobID, result); err != nil {
		Logger.Error("Failed to complete job", "error", err)
	}
}

// slideText extracts the plain text of one slide. Extraction goes through the
// pure-Go pdf reader and never touches the rendering library or its lock.
func (serverHandler *ServerHandler) slideText(index int) (string, error) {
	path := serverHandler.Deck.Path()
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return "", fmt.Errorf("text extraction is only supported for PDF decks, not %s", filepath.Ext(path))
	}

	pdfFile, reader, err := pdf.Open(path)
	if err != nil {
		Logger.Error("Unable to open PDF for text extraction", "path", path, "error", err)
		return "", err
	}
	defer pdfFile.Close()

	// ledongthuc page numbers are 1-based
	page := reader.Page(index + 1)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d has no content", index)
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		Logger.Error("Unable to extract slide text", "page", index, "error", err)
		return "", err
	}
	return text, nil
}
