package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP     string
	ListenAddrPort   string
	DatabaseType     string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string `json:"-"`
	DatabaseDbname   string
	DatabaseSslmode  string
	DeckPath         string // absolute path to the document being served
	RendererBackend  string // "fitz" (CGo/MuPDF) or "pdfium" (WebAssembly)
	TargetWidth      int    // slide raster width in pixels
	TargetHeight     int    // slide raster height in pixels
	CacheBackend     string // "memory", "database" or "none"
	CacheCapacity    int    // max slides held by the memory cache, 0 = unbounded
	ThumbnailWidth   int    // width of downscaled previews
	PrefetchOnStart  bool
	PrefetchInterval int // minutes between prefetch sweeps, 0 disables the schedule
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	serverConfigLive := ServerConfig{}

	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	// Load configuration from environment variables with defaults

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")

	// Database configuration
	serverConfigLive.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	serverConfigLive.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	serverConfigLive.DatabasePort = getEnv("DATABASE_PORT", "5432")
	serverConfigLive.DatabaseUser = getEnv("DATABASE_USER", "godeck")
	serverConfigLive.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	serverConfigLive.DatabaseDbname = getEnv("DATABASE_NAME", "godeck")
	serverConfigLive.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "")

	logger.Info("Database configuration loaded", "type", serverConfigLive.DatabaseType)

	// Deck configuration
	deckPath := filepath.ToSlash(getEnv("DECK_PATH", "deck.pdf"))
	deckPathAbs, err := filepath.Abs(deckPath)
	if err != nil {
		logger.Error("Failed creating absolute path for deck file", "error", err)
	}
	serverConfigLive.DeckPath = deckPathAbs

	serverConfigLive.RendererBackend = getEnv("RENDERER_BACKEND", "fitz")

	// Raster geometry. The renderer scales every page to cover exactly this
	// area, so these fix the size of every buffer the server hands out.
	serverConfigLive.TargetWidth = getEnvInt("TARGET_WIDTH", 1920)
	serverConfigLive.TargetHeight = getEnvInt("TARGET_HEIGHT", 1080)
	serverConfigLive.ThumbnailWidth = getEnvInt("THUMBNAIL_WIDTH", 320)

	// Cache configuration
	serverConfigLive.CacheBackend = getEnv("CACHE_BACKEND", "memory")
	serverConfigLive.CacheCapacity = getEnvInt("CACHE_CAPACITY", 64)

	// Prefetch configuration
	serverConfigLive.PrefetchOnStart = getEnvBool("PREFETCH_ON_START", true)
	serverConfigLive.PrefetchInterval = getEnvInt("PREFETCH_INTERVAL", 0)

	fmt.Println("\n========================================")
	fmt.Println("   godeck - Slide Deck Viewer Server")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Serving deck: %s\n", serverConfigLive.DeckPath)
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "godeck.log"))
	fmt.Println("Initializing...")

	logger.Info("About to setup database", "type", serverConfigLive.DatabaseType)

	return serverConfigLive, logger
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "debug")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "godeck.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}
