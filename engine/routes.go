package engine

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"

	"github.com/drummonds/godeck/database"
	"github.com/drummonds/godeck/render"
)

// GetDeckInfo returns the metadata of the deck being served
func (serverHandler *ServerHandler) GetDeckInfo(c echo.Context) error {
	deck := serverHandler.Deck

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ulid":            deck.ID().String(),
		"path":            deck.Path(),
		"pageCount":       deck.PageCount(),
		"pageWidth":       deck.PageWidth(),
		"pageHeight":      deck.PageHeight(),
		"targetWidth":     serverHandler.ServerConfig.TargetWidth,
		"targetHeight":    serverHandler.ServerConfig.TargetHeight,
		"rendererBackend": serverHandler.ServerConfig.RendererBackend,
		"cacheBackend":    serverHandler.ServerConfig.CacheBackend,
	})
}

// slideIndexParam parses the :index path parameter and writes the 400 response
// itself on garbage input
func slideIndexParam(c echo.Context) (int, bool) {
	indexStr := c.Param("index")
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid slide index: " + indexStr,
		})
		return 0, false
	}
	return index, true
}

// GetSlide renders one slide and returns it as a PNG
func (serverHandler *ServerHandler) GetSlide(c echo.Context) error {
	index, ok := slideIndexParam(c)
	if !ok {
		return nil
	}

	img, err := serverHandler.Renderer.Render(index)
	if err != nil {
		var notFound *render.SlideNotFoundError
		if errors.As(err, &notFound) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"error":     "Slide not found",
				"index":     notFound.Index,
				"pageCount": serverHandler.Deck.PageCount(),
			})
		}
		Logger.Error("Slide render failed", "index", index, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to render slide",
		})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		Logger.Error("Unable to encode slide as PNG", "index", index, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to encode slide",
		})
	}

	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// GetSlideThumbnail renders one slide downscaled to the configured thumbnail width
func (serverHandler *ServerHandler) GetSlideThumbnail(c echo.Context) error {
	index, ok := slideIndexParam(c)
	if !ok {
		return nil
	}

	img, err := serverHandler.Renderer.Render(index)
	if err != nil {
		var notFound *render.SlideNotFoundError
		if errors.As(err, &notFound) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"error": "Slide not found",
				"index": notFound.Index,
			})
		}
		Logger.Error("Thumbnail render failed", "index", index, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to render slide",
		})
	}

	resized := imaging.Resize(img, serverHandler.ServerConfig.ThumbnailWidth, 0, imaging.Lanczos)
	sharpened := imaging.Sharpen(resized, 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, sharpened); err != nil {
		Logger.Error("Unable to encode thumbnail as PNG", "index", index, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to encode thumbnail",
		})
	}

	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// GetSlideText returns the plain text of one slide
func (serverHandler *ServerHandler) GetSlideText(c echo.Context) error {
	index, ok := slideIndexParam(c)
	if !ok {
		return nil
	}

	if index < 0 || index >= serverHandler.Deck.PageCount() {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Slide not found",
			"index": index,
		})
	}

	text, err := serverHandler.slideText(index)
	if err != nil {
		Logger.Error("Slide text extraction failed", "index", index, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to extract slide text",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"index": index,
		"text":  text,
	})
}

// GetCacheStats returns hit/miss/eviction counters for the memory cache and the
// raster count for the database cache
func (serverHandler *ServerHandler) GetCacheStats(c echo.Context) error {
	stats := map[string]interface{}{
		"backend": serverHandler.ServerConfig.CacheBackend,
	}

	if serverHandler.MemCache != nil {
		hits, misses, evictions := serverHandler.MemCache.Stats()
		stats["slides"] = serverHandler.MemCache.Len()
		stats["hits"] = hits
		stats["misses"] = misses
		stats["evictions"] = evictions
	}

	if serverHandler.ServerConfig.CacheBackend == "database" {
		count, err := serverHandler.DB.CountSlideRasters(serverHandler.Deck.ID().String())
		if err != nil {
			Logger.Error("Failed to count cached rasters", "error", err)
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{
				"error": "Failed to read cache stats",
			})
		}
		stats["slides"] = count
	}

	return c.JSON(http.StatusOK, stats)
}

// ClearCache drops every cached raster for the current deck. The clear is
// quick enough to run inline, but it is still tracked as a job so the history
// shows when the cache was flushed.
func (serverHandler *ServerHandler) ClearCache(c echo.Context) error {
	Logger.Info("Cache clear triggered via API")

	job, err := serverHandler.DB.CreateJob(database.JobTypeCacheClear, "Clearing slide cache")
	if err != nil {
		Logger.Error("Failed to create cache clear job", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create job",
		})
	}

	dropped := 0
	if serverHandler.MemCache != nil {
		dropped = serverHandler.MemCache.Len()
		serverHandler.MemCache.Clear()
	}

	if serverHandler.ServerConfig.CacheBackend == "database" {
		deckID := serverHandler.Deck.ID().String()
		count, err := serverHandler.DB.CountSlideRasters(deckID)
		if err == nil {
			dropped = count
		}
		if err := serverHandler.DB.DeleteSlideRasters(deckID); err != nil {
			Logger.Error("Failed to delete cached rasters", "error", err)
			serverHandler.DB.UpdateJobError(job.ID, err.Error())
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{
				"error": "Failed to clear database cache",
			})
		}
	}

	if err := serverHandler.DB.CompleteJob(job.ID, fmt.Sprintf(`{"slidesDropped": %d}`, dropped)); err != nil {
		Logger.Error("Failed to complete cache clear job", "error", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Cache cleared",
		"jobId":   job.ID.String(),
	})
}

// RunPrefetchNow triggers a prefetch sweep manually
func (serverHandler *ServerHandler) RunPrefetchNow(c echo.Context) error {
	Logger.Info("Manual prefetch triggered via API")

	job, err := serverHandler.DB.CreateJob(database.JobTypePrefetch, "Starting slide prefetch")
	if err != nil {
		Logger.Error("Failed to create prefetch job", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create job",
		})
	}

	go func() {
		serverHandler.prefetchJobFuncWithTracking(job.ID)
	}()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Prefetch started",
		"jobId":   job.ID.String(),
	})
}
