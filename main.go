package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/drummonds/godeck/cache"
	config "github.com/drummonds/godeck/config"
	database "github.com/drummonds/godeck/database"
	"github.com/drummonds/godeck/document"
	engine "github.com/drummonds/godeck/engine"
	"github.com/drummonds/godeck/render"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
	cache.Logger = Logger
}

func main() {
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	// Show info banner if using ephemeral database
	if serverConfig.DatabaseType == "ephemeral" {
		fmt.Println("\n" + strings.Repeat("=", 50))
		fmt.Println("🚀  EPHEMERAL DATABASE MODE")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Println("• Database will be destroyed on exit")
		fmt.Println("• Perfect for testing and development")
		fmt.Println("• No persistent data storage")
		fmt.Println(strings.Repeat("=", 50) + "\n")
	}

	// Setup database (handles ephemeral, postgres, cockroachdb, sqlite)
	Logger.Info("Setting up database", "type", serverConfig.DatabaseType)
	db := database.NewRepository(serverConfig)
	defer db.Close()
	Logger.Info("Database setup complete")

	// Open the deck with the configured rendering backend
	Logger.Info("Opening deck", "path", serverConfig.DeckPath, "backend", serverConfig.RendererBackend)
	var deck document.Deck
	var err error
	switch serverConfig.RendererBackend {
	case "pdfium":
		deck, err = document.OpenPdfium(serverConfig.DeckPath)
	default:
		deck, err = document.Open(serverConfig.DeckPath)
	}
	if err != nil {
		Logger.Error("Unable to open deck", "path", serverConfig.DeckPath, "error", err)
		os.Exit(1)
	}
	defer deck.Close()
	Logger.Info("Deck opened", "pages", deck.PageCount())

	renderer := render.New(deck, serverConfig.TargetWidth, serverConfig.TargetHeight)

	// Wire the cache backend into the renderer
	var memCache *cache.Memory
	switch serverConfig.CacheBackend {
	case "memory":
		memCache = cache.NewMemory(serverConfig.CacheCapacity)
		renderer.SetCache(memCache)
		Logger.Info("Memory cache enabled", "capacity", serverConfig.CacheCapacity)
	case "database":
		renderer.SetCache(cache.NewDBStore(db, deck.ID().String(),
			serverConfig.TargetWidth, serverConfig.TargetHeight))
		Logger.Info("Database cache enabled")
	case "none":
		Logger.Info("Caching disabled")
	default:
		Logger.Warn("Unknown cache backend, caching disabled", "backend", serverConfig.CacheBackend)
	}

	e := echo.New()
	Logger.Info("Echo created")

	// Custom 404 handler, everything here is an API so always answer JSON
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		if code == http.StatusNotFound {
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested API endpoint does not exist",
				"path":    c.Request().URL.Path,
			})
			return
		}

		e.DefaultHTTPErrorHandler(err, c)
	}

	serverHandler := engine.ServerHandler{
		DB:           db,
		Echo:         e,
		ServerConfig: serverConfig,
		Deck:         deck,
		Renderer:     renderer,
		MemCache:     memCache,
	}
	Logger.Info("About to run startup checks")
	if err := serverHandler.StartupChecks(); err != nil { //Run all the sanity checks
		Logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}
	Logger.Info("Startup checks complete, about to initialize schedules")
	serverHandler.InitializeSchedules() //initialize all the cron jobs
	Logger.Info("Schedules initialized")

	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))

	// Deck API routes
	e.GET("/api/deck", serverHandler.GetDeckInfo)
	e.GET("/api/slide/:index", serverHandler.GetSlide)
	e.GET("/api/slide/:index/thumbnail", serverHandler.GetSlideThumbnail)
	e.GET("/api/slide/:index/text", serverHandler.GetSlideText)

	// Cache API routes
	e.GET("/api/cache/stats", serverHandler.GetCacheStats)
	e.DELETE("/api/cache", serverHandler.ClearCache)

	// Job tracking API routes
	e.POST("/api/jobs/prefetch", serverHandler.RunPrefetchNow)
	e.GET("/api/jobs", serverHandler.GetRecentJobs)
	e.GET("/api/jobs/active", serverHandler.GetActiveJobs)
	e.GET("/api/jobs/:id", serverHandler.GetJob)

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	Logger.Info("Starting HTTP server")

	// Try to start server with automatic port increment if port is in use
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort
	var startErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		startErr = e.Start(addr)

		// Check if error is "address already in use"
		if startErr != nil && isAddressInUse(startErr) {
			Logger.Warn("Port already in use, trying next port",
				"port", serverConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)

			// Increment port for next attempt
			portNum := 0
			fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)

			if attempt == maxRetries-1 {
				Logger.Error("Failed to find available port after maximum retries",
					"start_port", startPort,
					"end_port", serverConfig.ListenAddrPort,
					"max_retries", maxRetries)
				os.Exit(1)
			}
		} else if startErr != nil {
			// Some other error occurred
			Logger.Error("Failed to start server", "error", startErr)
			os.Exit(1)
		} else {
			// Server started successfully
			break
		}
	}

	if startErr == nil && serverConfig.ListenAddrPort != startPort {
		Logger.Warn("Server started on alternative port due to conflicts",
			"requested_port", startPort,
			"actual_port", serverConfig.ListenAddrPort)
	}
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "address already in use")
}
